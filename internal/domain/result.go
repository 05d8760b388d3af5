package domain

import "time"

// ScheduledTask is one committed scheduling decision.
type ScheduledTask struct {
	TaskID       string
	StartDate    time.Time
	EndDate      time.Time
	DurationDays float64
	Resources    []string
	Late         bool
}

// RolloutDecision records one bounded-rollout choice for explainability.
type RolloutDecision struct {
	TaskID      string
	Decision    string // "schedule" or "skip"
	CompetingID string
	ScoreA      float64
	ScoreB      float64
}

// AlgorithmResult is the output of one scheduling run.
type AlgorithmResult struct {
	RunID            string
	GeneratedAt      time.Time
	Algorithm        Algorithm
	ScheduledTasks   []ScheduledTask
	Warnings         []Warning
	RolloutDecisions []RolloutDecision
}

// WarningCode identifies a non-fatal condition raised during scheduling.
type WarningCode string

const (
	WarningDeadlineMissed           WarningCode = "DEADLINE_MISSED"
	WarningFixedTaskPredecessorLate WarningCode = "FIXED_TASK_PREDECESSOR_LATE"
	WarningUnassignedTask           WarningCode = "UNASSIGNED_TASK"
)

// Warning is a non-fatal condition collected alongside the result.
type Warning struct {
	Code       WarningCode
	TaskID     string
	PredID     string
	Message    string
	LatenessDays float64
}
