package scheduler

import (
	"math"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
)

// minDuration keeps CR/ATC division away from zero for milestones and
// other near-zero-duration tasks.
const minDuration = 1.0 / 24.0 // one hour, expressed in days

// SortKey is the uniform total order every strategy fills: ascending
// on (Primary, Secondary, ID), lower Primary meaning more urgent.
type SortKey struct {
	Primary   float64
	Secondary float64
	ID        string
}

// Less implements the canonical tuple comparison shared by every
// strategy: primary ascending, then secondary ascending, then id.
func (k SortKey) Less(o SortKey) bool {
	if k.Primary != o.Primary {
		return k.Primary < o.Primary
	}
	if k.Secondary != o.Secondary {
		return k.Secondary < o.Secondary
	}
	return k.ID < o.ID
}

// SortInput is the per-task data the sort-key evaluator needs; Deadline
// is nil when the preprocessor found no downstream pressure for this task.
type SortInput struct {
	TaskID       string
	Deadline     *time.Time
	DurationDays float64
	Priority     int
}

// ComputeSortKeys evaluates the configured strategy over one eligible
// batch, returning keys in the same order as the input slice.
func ComputeSortKeys(inputs []SortInput, now time.Time, cfg config.SchedulingConfig) []SortKey {
	crs := criticalRatios(inputs, now, cfg.Preprocessor)

	keys := make([]SortKey, len(inputs))
	switch cfg.Strategy.Strategy {
	case "cr_first":
		for i, in := range inputs {
			keys[i] = SortKey{Primary: crs[i], Secondary: -float64(in.Priority), ID: in.TaskID}
		}
	case "priority_first":
		for i, in := range inputs {
			keys[i] = SortKey{Primary: -float64(in.Priority), Secondary: crs[i], ID: in.TaskID}
		}
	case "atc":
		atcs := apparentTardinessCosts(inputs, now, crs, cfg.Strategy)
		for i, in := range inputs {
			keys[i] = SortKey{Primary: -atcs[i], ID: in.TaskID}
		}
	default: // "weighted"
		for i, in := range inputs {
			score := cfg.Strategy.CRWeight*crs[i] + cfg.Strategy.PriorityWeight*(100-float64(in.Priority))
			keys[i] = SortKey{Primary: score, ID: in.TaskID}
		}
	}
	return keys
}

// criticalRatios computes CR = slack/duration for every task with a
// deadline, and assigns the configured default CR (derived from the
// max CR of deadline-bearing tasks in this same batch) to the rest.
func criticalRatios(inputs []SortInput, now time.Time, cfg config.PreprocessorConfig) []float64 {
	crs := make([]float64, len(inputs))
	hasDeadline := make([]bool, len(inputs))
	maxCR := math.Inf(-1)

	for i, in := range inputs {
		if in.Deadline == nil {
			continue
		}
		dur := math.Max(in.DurationDays, minDuration)
		slack := in.Deadline.Sub(now).Hours() / 24
		cr := slack / dur
		crs[i] = cr
		hasDeadline[i] = true
		if cr > maxCR {
			maxCR = cr
		}
	}
	if math.IsInf(maxCR, -1) {
		maxCR = 0
	}
	defaultCR := math.Max(maxCR*cfg.DefaultCRMultiplier, cfg.DefaultCRFloor)

	for i := range inputs {
		if !hasDeadline[i] {
			crs[i] = defaultCR
		}
	}
	return crs
}

// apparentTardinessCosts computes ATC = (priority/dur) * exp(-max(0,
// slack) / (K * avg_dur)), falling back to a floored default urgency
// (derived from the minimum urgency among deadline-bearing tasks) for
// tasks without a deadline.
func apparentTardinessCosts(inputs []SortInput, now time.Time, crs []float64, cfg config.StrategyConfig) []float64 {
	var totalDur float64
	for _, in := range inputs {
		totalDur += math.Max(in.DurationDays, minDuration)
	}
	avgDur := minDuration
	if len(inputs) > 0 {
		avgDur = math.Max(totalDur/float64(len(inputs)), minDuration)
	}

	urgency := make([]float64, len(inputs))
	hasDeadline := make([]bool, len(inputs))
	minUrgency := math.Inf(1)
	for i, in := range inputs {
		if in.Deadline == nil {
			continue
		}
		dur := math.Max(in.DurationDays, minDuration)
		slack := crs[i] * dur // crs[i] already carries slack/dur for deadline tasks
		u := math.Exp(-math.Max(0, slack) / (cfg.ATCK * avgDur))
		urgency[i] = u
		hasDeadline[i] = true
		if u < minUrgency {
			minUrgency = u
		}
	}
	if math.IsInf(minUrgency, 1) {
		minUrgency = 0
	}
	defaultUrgency := math.Max(minUrgency*cfg.ATCDefaultUrgencyMultiplier, cfg.ATCDefaultUrgencyFloor)

	atcs := make([]float64, len(inputs))
	for i, in := range inputs {
		dur := math.Max(in.DurationDays, minDuration)
		u := urgency[i]
		if !hasDeadline[i] {
			u = defaultUrgency
		}
		atcs[i] = (float64(in.Priority) / dur) * u
	}
	return atcs
}
