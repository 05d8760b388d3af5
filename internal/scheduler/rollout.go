package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// boundedRolloutHook implements §4.5: a precommitHook that, when the
// tick's leading candidate is "relaxed" and a more urgent future task
// contends for the same resource, simulates committing now (scenario
// A) against skipping this tick (scenario B) and picks the cheaper one.
func boundedRolloutHook(rs *runState, sorted []string) (map[string]bool, error) {
	if len(sorted) == 0 {
		return nil, nil
	}
	leadID := sorted[0]
	lead := rs.tasksByID[leadID]
	cfg := rs.bundle.Config.Rollout

	if !isRelaxed(rs, leadID, cfg) {
		return nil, nil
	}

	res, err := Resolve(*lead, rs.now, rs.store, rs.resolverCtx)
	if err != nil {
		return nil, err
	}
	if res.Deferred {
		return nil, nil
	}

	effectiveDuration := res.End.Sub(rs.now).Hours() / 24
	horizon := addDays(rs.now, effectiveDuration)
	if cfg.MaxHorizonDays > 0 {
		if cap := rs.now.AddDate(0, 0, int(cfg.MaxHorizonDays)); horizon.After(cap) {
			horizon = cap
		}
	}

	competingID, ok := findContender(rs, leadID, res.ResourceIDs, horizon, cfg)
	if !ok {
		return nil, nil
	}

	baseline := rs
	cloneA := rs.clone()
	cloneA.commit(leadID, res)
	if err := runForwardPassBounded(cloneA, noopHook, &horizon); err != nil {
		return nil, err
	}

	cloneB := rs.clone()
	if err := runForwardPassBounded(cloneB, skipOnceHook(leadID), &horizon); err != nil {
		return nil, err
	}

	scoreA := scenarioScore(baseline, cloneA, horizon)
	scoreB := scenarioScore(baseline, cloneB, horizon)

	decision := domain.RolloutDecision{TaskID: leadID, CompetingID: competingID, ScoreA: scoreA, ScoreB: scoreB}
	if scoreB < scoreA {
		decision.Decision = "skip"
		rs.rolloutDecisions = append(rs.rolloutDecisions, decision)
		return map[string]bool{leadID: true}, nil
	}
	decision.Decision = "schedule"
	rs.rolloutDecisions = append(rs.rolloutDecisions, decision)
	return nil, nil
}

// isRelaxed reports whether a task qualifies for rollout consideration:
// low priority, or (when it has a deadline) a slack-heavy CR.
func isRelaxed(rs *runState, taskID string, cfg config.RolloutConfig) bool {
	if rs.priorities[taskID] < cfg.PriorityThreshold {
		return true
	}
	cr, ok := taskCR(rs, taskID)
	return ok && cr > cfg.CRRelaxedThreshold
}

func taskCR(rs *runState, taskID string) (float64, bool) {
	dl := rs.deadlines[taskID]
	if dl == nil {
		return 0, false
	}
	dur := math.Max(rs.tasksByID[taskID].DurationDays, minDuration)
	return dl.Sub(rs.now).Hours() / 24 / dur, true
}

// findContender looks for another unscheduled task that is eligible
// now or would become eligible before the horizon, contends for one of
// leadResources, and is strictly more urgent than the lead task.
func findContender(rs *runState, leadID string, leadResources []string, horizon time.Time, cfg config.RolloutConfig) (string, bool) {
	ids := make([]string, 0, len(rs.unscheduled))
	for id := range rs.unscheduled {
		if id != leadID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	leadPriority := rs.priorities[leadID]
	leadCR, leadHasCR := taskCR(rs, leadID)

	for _, uid := range ids {
		eligibleAt, ok := taskEarliestEligible(rs, uid)
		if !ok || !eligibleAt.Before(horizon) {
			continue
		}
		if !resourcesOverlap(rs, uid, leadResources) {
			continue
		}
		if rs.priorities[uid]-leadPriority >= cfg.MinPriorityGap {
			return uid, true
		}
		if leadHasCR {
			if uCR, ok := taskCR(rs, uid); ok && leadCR-uCR >= cfg.MinCRUrgencyGap {
				return uid, true
			}
		}
	}
	return "", false
}

// taskEarliestEligible predicts when uid would first satisfy the
// eligibility test, given the currently scheduled set. Returns false
// if uid depends on a task with no scheduled end yet (unpredictable).
func taskEarliestEligible(rs *runState, uid string) (time.Time, bool) {
	t := rs.tasksByID[uid]
	earliest := rs.now
	if t.StartAfter != nil && t.StartAfter.After(earliest) {
		earliest = *t.StartAfter
	}
	for _, dep := range t.Dependencies {
		if rs.bundle.CompletedTaskIDs[dep.PredecessorID] {
			continue
		}
		pred, ok := rs.scheduled[dep.PredecessorID]
		if !ok {
			return time.Time{}, false
		}
		threshold := addDays(pred.EndDate, 1+dep.LagDays)
		if threshold.After(earliest) {
			earliest = threshold
		}
	}
	return earliest, true
}

// resourcesOverlap reports whether uid's resource requirement could
// ever draw on any id in leadResources.
func resourcesOverlap(rs *runState, uid string, leadResources []string) bool {
	u := rs.tasksByID[uid]
	var candidates []string
	if u.ResourceRequirement.Kind == domain.RequirementExplicit {
		for _, a := range u.ResourceRequirement.Explicit {
			candidates = append(candidates, a.ResourceID)
		}
	} else {
		node, ok := rs.resolverCtx.Specs[uid]
		if !ok {
			return false
		}
		ids, err := Expand(node, uid, rs.resolverCtx.ResourceOrder, rs.resolverCtx.ResourceSet, rs.resolverCtx.Groups)
		if err != nil {
			return false
		}
		candidates = ids
	}
	set := make(map[string]bool, len(leadResources))
	for _, r := range leadResources {
		set[r] = true
	}
	for _, c := range candidates {
		if set[c] {
			return true
		}
	}
	return false
}

// scenarioScore implements the §4.5 scoring function: a penalty for
// every task newly scheduled during the simulated window, plus a
// penalty for tasks still eligible-but-unscheduled at the horizon.
func scenarioScore(baseline, final *runState, horizon time.Time) float64 {
	var score float64

	for id, st := range final.scheduled {
		if _, already := baseline.scheduled[id]; already {
			continue
		}
		priority := float64(final.priorities[id])
		offsetDays := st.StartDate.Sub(baseline.now).Hours() / 24
		score += offsetDays * (priority / 100)

		if dl := final.deadlines[id]; dl != nil {
			if over := st.EndDate.Sub(*dl).Hours() / 24; over > 0 {
				score += 10 * priority * over
			}
		}
	}

	delayDays := horizon.Sub(baseline.now).Hours() / 24
	for _, id := range final.eligibleIDs() {
		priority := float64(final.priorities[id])
		score += delayDays * (priority / 100)

		if dl := final.deadlines[id]; dl != nil {
			effort := math.Max(final.tasksByID[id].DurationDays, minDuration)
			prospective := addDays(horizon, effort)
			if over := prospective.Sub(*dl).Hours() / 24; over > 0 {
				score += 10 * priority * over
			}
		}
	}

	return score
}
