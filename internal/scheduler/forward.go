package scheduler

import (
	"sort"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// precommitHook runs once per tick, after the eligible set is sorted
// but before the plain commit loop, and returns the set of task ids to
// skip for this tick only (still eligible next tick). Bounded rollout
// is the only non-trivial hook; Parallel SGS uses noopHook.
type precommitHook func(rs *runState, sorted []string) (map[string]bool, error)

func noopHook(*runState, []string) (map[string]bool, error) { return nil, nil }

// skipOnceHook forces one specific task to be skipped the first time
// it leads the sorted eligible list, then gets out of the way — used
// by rollout's scenario B to simulate "leave t unscheduled this tick".
func skipOnceHook(taskID string) precommitHook {
	used := false
	return func(rs *runState, sorted []string) (map[string]bool, error) {
		if !used && len(sorted) > 0 && sorted[0] == taskID {
			used = true
			return map[string]bool{taskID: true}, nil
		}
		return nil, nil
	}
}

// runForwardPass drives §4.4 to completion.
func runForwardPass(rs *runState, hook precommitHook) error {
	return runForwardPassBounded(rs, hook, nil)
}

// runForwardPassBounded is §4.4's loop, optionally stopping once `now`
// reaches horizon (used by rollout's scenario simulations; nil means
// run to completion).
func runForwardPassBounded(rs *runState, hook precommitHook, horizon *time.Time) error {
	if hook == nil {
		hook = noopHook
	}
	for len(rs.unscheduled) > 0 {
		if horizon != nil && !rs.now.Before(*horizon) {
			return nil
		}

		eligible := rs.eligibleIDs()
		if len(eligible) == 0 {
			if !rs.advance() {
				return unschedulableError(rs)
			}
			continue
		}

		sorted := rs.sortedByKey(eligible)
		skip, err := hook(rs, sorted)
		if err != nil {
			return err
		}

		committedAny := false
		for _, id := range sorted {
			if skip[id] {
				continue
			}
			res, err := Resolve(*rs.tasksByID[id], rs.now, rs.store, rs.resolverCtx)
			if err != nil {
				return err
			}
			if res.Deferred {
				continue
			}
			rs.commit(id, res)
			committedAny = true
		}

		if !committedAny {
			if !rs.advance() {
				return unschedulableError(rs)
			}
		}
	}
	return nil
}

func unschedulableError(rs *runState) error {
	ids := make([]string, 0, len(rs.unscheduled))
	for id := range rs.unscheduled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &domain.UnschedulableResidualError{TaskIDs: ids}
}
