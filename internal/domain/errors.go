package domain

import "fmt"

// CycleEdge is one edge of a detected dependency cycle.
type CycleEdge struct {
	FromID string
	ToID   string
}

// CycleDetectedError is fatal: the preprocessor could not find a
// topological order over the non-completed task set.
type CycleDetectedError struct {
	Edges []CycleEdge
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected among %d dependency edges", len(e.Edges))
}

// UnknownDependencyError is fatal: a task names a predecessor that does
// not exist in the bundle.
type UnknownDependencyError struct {
	TaskID    string
	MissingID string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.TaskID, e.MissingID)
}

// UnschedulableResidualError is fatal: the forward pass could not make
// progress while tasks remained unscheduled.
type UnschedulableResidualError struct {
	TaskIDs []string
}

func (e *UnschedulableResidualError) Error() string {
	return fmt.Sprintf("%d task(s) could not be scheduled: no further event exists", len(e.TaskIDs))
}

// UnknownResourceError is fatal: a resource spec names a resource id
// that is not present in the bundle.
type UnknownResourceError struct {
	TaskID     string
	ResourceID string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("task %q references unknown resource %q", e.TaskID, e.ResourceID)
}

// UnknownGroupError is fatal: a resource spec names a group that is not
// present in the bundle.
type UnknownGroupError struct {
	TaskID string
	Group  string
}

func (e *UnknownGroupError) Error() string {
	return fmt.Sprintf("task %q references unknown group %q", e.TaskID, e.Group)
}
