package domain

import "time"

// ResourceAllocation is one (resource_id, allocation) pair within an
// explicit resource requirement. Allocation is in (0, 1].
type ResourceAllocation struct {
	ResourceID string
	Allocation float64
}

// ResourceRequirement is either an explicit set of named resources that
// must all be held simultaneously, or a textual spec parsed into a Spec
// AST and resolved at scheduling time (see internal/scheduler.ParseSpec).
type ResourceRequirement struct {
	Kind    RequirementKind
	Explicit []ResourceAllocation
	SpecText string
}

// Dependency is a predecessor edge with a minimum lag in days.
type Dependency struct {
	PredecessorID string
	LagDays       float64
}

// Task is the unit of scheduling.
type Task struct {
	ID                  string
	DurationDays        float64
	ResourceRequirement ResourceRequirement
	Dependencies        []Dependency
	Priority            int // 0-100; 0 means "use config default"

	StartAfter *time.Time
	EndBefore  *time.Time
	StartOn    *time.Time
	EndOn      *time.Time

	// Derived, filled by the preprocessor.
	ComputedDeadline *time.Time
	ComputedPriority int
}

// IsMilestone reports whether the task has zero duration.
func (t Task) IsMilestone() bool {
	return t.DurationDays <= 0
}

// IsFixed reports whether the task's start or end date is pinned and
// bypasses the forward pass (still claims resources).
func (t Task) IsFixed() bool {
	return t.StartOn != nil || t.EndOn != nil
}

// EffectivePriority returns the explicit priority, falling back to the
// computed (preprocessor-assigned) value.
func (t Task) EffectivePriority() int {
	if t.Priority > 0 {
		return t.Priority
	}
	return t.ComputedPriority
}
