package scheduler

import (
	"sort"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/resourcestore"
)

// runState is the full mutable state of one forward-pass run: the
// object bounded rollout clones to simulate alternative futures.
type runState struct {
	bundle      domain.Bundle
	tasksByID   map[string]*domain.Task
	deadlines   map[string]*time.Time
	priorities  map[string]int
	store       *resourcestore.Store
	resolverCtx ResolverContext

	unscheduled map[string]bool
	scheduled   map[string]domain.ScheduledTask
	now         time.Time

	warnings         []domain.Warning
	rolloutDecisions []domain.RolloutDecision
}

func addDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * float64(24*time.Hour)))
}

// eligibleIDs returns the unsorted §4.4-step-1 eligible set: every
// predecessor is scheduled (or pre-completed) with its lag satisfied,
// and start_after allows `now`.
func (rs *runState) eligibleIDs() []string {
	var out []string
	for id := range rs.unscheduled {
		t := rs.tasksByID[id]
		if t.StartAfter != nil && t.StartAfter.After(rs.now) {
			continue
		}
		ready := true
		for _, dep := range t.Dependencies {
			if rs.bundle.CompletedTaskIDs[dep.PredecessorID] {
				continue
			}
			pred, ok := rs.scheduled[dep.PredecessorID]
			if !ok {
				ready = false
				break
			}
			threshold := addDays(pred.EndDate, 1+dep.LagDays)
			if threshold.After(rs.now) {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, id)
		}
	}
	return out
}

// sortedByKey returns ids ordered per the configured strategy's total order.
func (rs *runState) sortedByKey(ids []string) []string {
	inputs := make([]SortInput, len(ids))
	for i, id := range ids {
		t := rs.tasksByID[id]
		inputs[i] = SortInput{
			TaskID:       id,
			Deadline:     rs.deadlines[id],
			DurationDays: t.DurationDays,
			Priority:     rs.priorities[id],
		}
	}
	keys := ComputeSortKeys(inputs, rs.now, rs.bundle.Config)
	keyByID := make(map[string]SortKey, len(ids))
	for i, id := range ids {
		keyByID[id] = keys[i]
	}

	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return keyByID[out[i]].Less(keyByID[out[j]])
	})
	return out
}

// commit records a ScheduledTask, inserts its resource occupation
// (none for a milestone), and raises any warranted warnings.
func (rs *runState) commit(id string, res Resolution) {
	t := rs.tasksByID[id]
	late := t.EndBefore != nil && res.End.After(*t.EndBefore)

	st := domain.ScheduledTask{
		TaskID:       id,
		StartDate:    rs.now,
		EndDate:      res.End,
		DurationDays: t.DurationDays,
		Resources:    res.ResourceIDs,
		Late:         late,
	}
	rs.scheduled[id] = st
	delete(rs.unscheduled, id)
	if !t.IsMilestone() {
		_ = rs.store.Insert(res.ResourceIDs, rs.now, res.End)
	}

	if late {
		lateness := res.End.Sub(*t.EndBefore).Hours() / 24
		rs.warnings = append(rs.warnings, domain.Warning{
			Code:         domain.WarningDeadlineMissed,
			TaskID:       id,
			Message:      "scheduled end misses declared deadline",
			LatenessDays: lateness,
		})
	}
	for _, r := range res.ResourceIDs {
		if r == domain.UnassignedResourceID {
			rs.warnings = append(rs.warnings, domain.Warning{
				Code:    domain.WarningUnassignedTask,
				TaskID:  id,
				Message: "resource spec resolved to no candidate; ran on the shared unassigned resource",
			})
			break
		}
	}
}

// advance moves `now` to the earliest future event: a dependency
// threshold clearing, a start_after opening, or a busy/DNS interval
// ending. Returns false if no future event exists.
func (rs *runState) advance() bool {
	var best *time.Time

	consider := func(t time.Time) {
		if !t.After(rs.now) {
			return
		}
		if best == nil || t.Before(*best) {
			tt := t
			best = &tt
		}
	}

	for id := range rs.unscheduled {
		t := rs.tasksByID[id]
		if t.StartAfter != nil {
			consider(*t.StartAfter)
		}
		for _, dep := range t.Dependencies {
			if rs.bundle.CompletedTaskIDs[dep.PredecessorID] {
				continue
			}
			if pred, ok := rs.scheduled[dep.PredecessorID]; ok {
				consider(addDays(pred.EndDate, 1+dep.LagDays))
			}
		}
	}

	for _, rid := range rs.store.KnownResourceIDs() {
		for _, iv := range rs.store.Schedule(rid).Intervals() {
			if !iv.End.Before(rs.now) {
				consider(iv.End.AddDate(0, 0, 1))
			}
		}
	}

	if best == nil {
		return false
	}
	rs.now = *best
	return true
}

// clone deep-copies the mutable portions of state for rollout
// simulation: scheduled/unscheduled maps and the resource store.
func (rs *runState) clone() *runState {
	scheduled := make(map[string]domain.ScheduledTask, len(rs.scheduled))
	for k, v := range rs.scheduled {
		scheduled[k] = v
	}
	unscheduled := make(map[string]bool, len(rs.unscheduled))
	for k, v := range rs.unscheduled {
		unscheduled[k] = v
	}

	return &runState{
		bundle:      rs.bundle,
		tasksByID:   rs.tasksByID,
		deadlines:   rs.deadlines,
		priorities:  rs.priorities,
		store:       rs.store.Clone(),
		resolverCtx: rs.resolverCtx,
		unscheduled: unscheduled,
		scheduled:   scheduled,
		now:         rs.now,
	}
}
