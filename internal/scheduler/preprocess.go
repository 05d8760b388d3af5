package scheduler

import (
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// Preprocess runs the backward pass: a topological walk of the
// non-completed task set that back-propagates deadlines across lagged
// dependency edges, plus the flat priority default fill. It returns
// deadline and priority maps keyed by task id, covering every
// non-completed task.
func Preprocess(tasks []domain.Task, completedIDs map[string]bool, cfg config.PreprocessorConfig) (map[string]*time.Time, map[string]int, error) {
	byID := make(map[string]*domain.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	var live []string
	for _, t := range tasks {
		if !completedIDs[t.ID] {
			live = append(live, t.ID)
		}
	}

	indegree := make(map[string]int, len(live))
	successors := make(map[string][]string) // predID -> []taskID, live edges only
	for _, id := range live {
		indegree[id] = 0
	}
	for _, id := range live {
		t := byID[id]
		for _, dep := range t.Dependencies {
			pred, ok := byID[dep.PredecessorID]
			if !ok {
				return nil, nil, &domain.UnknownDependencyError{TaskID: t.ID, MissingID: dep.PredecessorID}
			}
			if completedIDs[pred.ID] {
				continue
			}
			indegree[id]++
			successors[pred.ID] = append(successors[pred.ID], id)
		}
	}

	order, ok := topoSort(live, indegree, successors)
	if !ok {
		return nil, nil, cycleError(live, indegree, successors)
	}

	deadlines := make(map[string]*time.Time, len(live))
	for _, id := range live {
		t := byID[id]
		// end_on is authoritative over end_before: a fixed end date is
		// not merely "whichever is earlier", it wins outright even if
		// end_before would otherwise be tighter.
		if t.EndOn != nil {
			deadlines[id] = t.EndOn
			continue
		}
		deadlines[id] = t.EndBefore
	}

	for i := len(order) - 1; i >= 0; i-- {
		t := byID[order[i]]
		for _, dep := range t.Dependencies {
			if completedIDs[dep.PredecessorID] {
				continue
			}
			cur := deadlines[t.ID]
			if cur == nil {
				continue
			}
			proposed := cur.AddDate(0, 0, -int(t.DurationDays)-int(dep.LagDays))
			existing := deadlines[dep.PredecessorID]
			if existing == nil || proposed.Before(*existing) {
				deadlines[dep.PredecessorID] = &proposed
			}
		}
	}

	priorities := make(map[string]int, len(live))
	for _, id := range live {
		t := byID[id]
		if t.Priority > 0 {
			priorities[id] = t.Priority
		} else {
			priorities[id] = cfg.DefaultPriority
		}
	}

	return deadlines, priorities, nil
}

// topoSort runs Kahn's algorithm over the live node set, consuming
// copies of indegree/successors so the caller's maps are left intact.
func topoSort(live []string, indegree map[string]int, successors map[string][]string) ([]string, bool) {
	work := make(map[string]int, len(indegree))
	for k, v := range indegree {
		work[k] = v
	}

	var queue []string
	for _, id := range live {
		if work[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(live))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, succ := range successors[id] {
			work[succ]--
			if work[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	return order, len(order) == len(live)
}

// cycleError reconstructs the edge list among nodes that never reached
// in-degree zero, for a readable CycleDetectedError.
func cycleError(live []string, indegree map[string]int, successors map[string][]string) error {
	work := make(map[string]int, len(indegree))
	for k, v := range indegree {
		work[k] = v
	}
	var queue []string
	for _, id := range live {
		if work[id] == 0 {
			queue = append(queue, id)
		}
	}
	resolved := make(map[string]bool, len(live))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved[id] = true
		for _, succ := range successors[id] {
			work[succ]--
			if work[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	var edges []domain.CycleEdge
	for pred, succs := range successors {
		if resolved[pred] {
			continue
		}
		for _, succ := range succs {
			if !resolved[succ] {
				edges = append(edges, domain.CycleEdge{FromID: pred, ToID: succ})
			}
		}
	}
	return &domain.CycleDetectedError{Edges: edges}
}
