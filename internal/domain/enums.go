package domain

// Strategy selects the sort-key evaluator used by the forward pass.
type Strategy string

const (
	StrategyWeighted       Strategy = "weighted"
	StrategyCRFirst        Strategy = "cr_first"
	StrategyPriorityFirst  Strategy = "priority_first"
	StrategyATC            Strategy = "atc"
)

// Algorithm selects the forward-pass variant used to turn the sorted
// eligible set into committed ScheduledTasks.
type Algorithm string

const (
	AlgorithmParallelSGS   Algorithm = "parallel_sgs"
	AlgorithmBoundedRollout Algorithm = "bounded_rollout"
	AlgorithmCriticalPath  Algorithm = "critical_path"
)

// RequirementKind distinguishes an explicit resource set from a textual spec.
type RequirementKind string

const (
	RequirementExplicit RequirementKind = "explicit"
	RequirementSpec     RequirementKind = "spec"
)

// UnassignedResourceID is the shared pseudo-resource that serializes tasks
// whose resource spec resolves to an empty candidate set.
const UnassignedResourceID = "__unassigned__"
