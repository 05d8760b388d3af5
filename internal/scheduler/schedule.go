// Package scheduler implements the RCPS engine's scheduling algorithms:
// the backward-pass preprocessor, the sort-key evaluator, the
// auto-assignment resolver, and the three forward-pass variants
// (Parallel SGS, Bounded Rollout, Critical Path) that turn a bundle
// into a committed AlgorithmResult.
package scheduler

import (
	"sort"

	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/resourcestore"
)

// Schedule is the engine's single entry point: a pure function from a
// bundle to a result. It never touches the clock or a random source;
// RunID and GeneratedAt are left zero for the caller (the CLI's schedule
// command) to stamp, keeping the core's determinism guarantee intact.
func Schedule(bundle domain.Bundle) (domain.AlgorithmResult, error) {
	if err := bundle.Config.Validate(); err != nil {
		return domain.AlgorithmResult{}, err
	}

	deadlines, priorities, err := Preprocess(bundle.Tasks, bundle.CompletedTaskIDs, bundle.Config.Preprocessor)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	tasksByID := make(map[string]*domain.Task, len(bundle.Tasks))
	for i := range bundle.Tasks {
		t := &bundle.Tasks[i]
		if bundle.CompletedTaskIDs[t.ID] {
			continue
		}
		t.ComputedDeadline = deadlines[t.ID]
		t.ComputedPriority = priorities[t.ID]
		tasksByID[t.ID] = t
	}

	resolverCtx, err := buildResolverContext(bundle, tasksByID)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	store := resourcestore.New(bundle.Resources, bundle.GlobalDNSPeriods)

	unscheduled := make(map[string]bool, len(tasksByID))
	for id, t := range tasksByID {
		if !t.IsFixed() {
			unscheduled[id] = true
		}
	}

	rs := &runState{
		bundle:      bundle,
		tasksByID:   tasksByID,
		deadlines:   deadlines,
		priorities:  priorities,
		store:       store,
		resolverCtx: resolverCtx,
		unscheduled: unscheduled,
		scheduled:   make(map[string]domain.ScheduledTask),
		now:         bundle.CurrentDate,
	}

	if err := applyFixedDates(rs); err != nil {
		return domain.AlgorithmResult{}, err
	}

	algorithm := domain.Algorithm(bundle.Config.Algorithm)
	switch algorithm {
	case domain.AlgorithmBoundedRollout:
		err = runForwardPass(rs, boundedRolloutHook)
	case domain.AlgorithmCriticalPath:
		err = runCriticalPath(rs)
	default:
		algorithm = domain.AlgorithmParallelSGS
		err = runForwardPass(rs, noopHook)
	}
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	warnings := append(rs.warnings, checkFixedPredecessorLateness(rs)...)
	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].TaskID != warnings[j].TaskID {
			return warnings[i].TaskID < warnings[j].TaskID
		}
		return warnings[i].Code < warnings[j].Code
	})

	scheduledTasks := make([]domain.ScheduledTask, 0, len(rs.scheduled))
	for _, st := range rs.scheduled {
		scheduledTasks = append(scheduledTasks, st)
	}
	sort.SliceStable(scheduledTasks, func(i, j int) bool {
		a, b := scheduledTasks[i], scheduledTasks[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.TaskID < b.TaskID
	})

	result := domain.AlgorithmResult{
		Algorithm:        algorithm,
		ScheduledTasks:   scheduledTasks,
		Warnings:         warnings,
		RolloutDecisions: rs.rolloutDecisions,
	}
	return result, nil
}

// buildResolverContext parses every spec-kind task's resource
// requirement once, up front, per the "parse once into an AST" design note.
func buildResolverContext(bundle domain.Bundle, tasksByID map[string]*domain.Task) (ResolverContext, error) {
	order := make([]string, len(bundle.Resources))
	set := make(map[string]bool, len(bundle.Resources))
	for i, r := range bundle.Resources {
		order[i] = r.ID
		set[r.ID] = true
	}

	specs := make(map[string]SpecNode, len(tasksByID))
	for id, t := range tasksByID {
		if t.ResourceRequirement.Kind != domain.RequirementSpec {
			continue
		}
		node, err := ParseSpec(t.ResourceRequirement.SpecText, bundle.Groups)
		if err != nil {
			return ResolverContext{}, err
		}
		specs[id] = node
	}

	return ResolverContext{
		ResourceOrder: order,
		ResourceSet:   set,
		Groups:        bundle.Groups,
		Specs:         specs,
	}, nil
}
