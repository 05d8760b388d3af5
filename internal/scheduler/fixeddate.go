package scheduler

import (
	"fmt"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// applyFixedDates implements §4.7: tasks pinned by start_on/end_on are
// inserted into the resource store before the forward pass runs,
// winning over any DNS period they overlap. They never enter the
// unscheduled set.
func applyFixedDates(rs *runState) error {
	for id, t := range rs.tasksByID {
		if !t.IsFixed() {
			continue
		}

		start, end := fixedSpan(*t)
		ids, err := fixedResourceIDs(*t, rs)
		if err != nil {
			return err
		}
		if err := rs.store.InsertOverride(ids, start, end); err != nil {
			return fmt.Errorf("fixed-date task %q: %w", id, err)
		}

		rs.scheduled[id] = domain.ScheduledTask{
			TaskID:       id,
			StartDate:    start,
			EndDate:      end,
			DurationDays: t.DurationDays,
			Resources:    ids,
		}
		delete(rs.unscheduled, id)
	}
	return nil
}

// fixedSpan resolves the effective start/end of a pinned task, filling
// whichever endpoint is missing from duration_days.
func fixedSpan(t domain.Task) (time.Time, time.Time) {
	days := daysInclusiveSpan(t.DurationDays)
	switch {
	case t.StartOn != nil && t.EndOn != nil:
		return *t.StartOn, *t.EndOn
	case t.StartOn != nil:
		return *t.StartOn, t.StartOn.AddDate(0, 0, days-1)
	default:
		return t.EndOn.AddDate(0, 0, -(days - 1)), *t.EndOn
	}
}

func daysInclusiveSpan(durationDays float64) int {
	n := int(durationDays)
	if float64(n) < durationDays {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// fixedResourceIDs resolves the resources a fixed task claims: every
// resource in an explicit set, or the first candidate of a spec (a
// pinned window has no "earliest completion" to arbitrate between
// candidates, so the declared order decides).
func fixedResourceIDs(t domain.Task, rs *runState) ([]string, error) {
	if t.ResourceRequirement.Kind == domain.RequirementExplicit {
		ids := make([]string, len(t.ResourceRequirement.Explicit))
		for i, a := range t.ResourceRequirement.Explicit {
			ids[i] = a.ResourceID
		}
		return ids, nil
	}

	node, ok := rs.resolverCtx.Specs[t.ID]
	if !ok {
		return nil, fmt.Errorf("resolver: no parsed spec cached for fixed task %q", t.ID)
	}
	candidates, err := Expand(node, t.ID, rs.resolverCtx.ResourceOrder, rs.resolverCtx.ResourceSet, rs.resolverCtx.Groups)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []string{domain.UnassignedResourceID}, nil
	}
	return candidates[:1], nil
}

// checkFixedPredecessorLateness implements the §4.7 warning: a fixed
// task whose predecessor (scheduled by any means) finishes, with lag,
// after the fixed task's own start.
func checkFixedPredecessorLateness(rs *runState) []domain.Warning {
	var warnings []domain.Warning
	for id, t := range rs.tasksByID {
		if !t.IsFixed() {
			continue
		}
		self, ok := rs.scheduled[id]
		if !ok {
			continue
		}
		for _, dep := range t.Dependencies {
			if rs.bundle.CompletedTaskIDs[dep.PredecessorID] {
				continue
			}
			pred, ok := rs.scheduled[dep.PredecessorID]
			if !ok {
				continue
			}
			threshold := addDays(pred.EndDate, 1+dep.LagDays)
			if threshold.After(self.StartDate) {
				warnings = append(warnings, domain.Warning{
					Code:         domain.WarningFixedTaskPredecessorLate,
					TaskID:       id,
					PredID:       dep.PredecessorID,
					Message:      "predecessor finishes after this task's pinned start",
					LatenessDays: threshold.Sub(self.StartDate).Hours() / 24,
				})
			}
		}
	}
	return warnings
}
