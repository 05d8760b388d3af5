package scheduler

import (
	"testing"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contendedRolloutBundle has a low-priority "relaxed" lead task that
// shares its resource with a much higher-priority task becoming
// eligible shortly after — the textbook bounded-rollout tradeoff.
func contendedRolloutBundle() domain.Bundle {
	cfg := config.DefaultSchedulingConfig()
	cfg.Algorithm = "bounded_rollout"
	return domain.Bundle{
		Tasks: []domain.Task{
			{ID: "relaxed", DurationDays: 10, Priority: 10, ResourceRequirement: domain.ResourceRequirement{
				Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "shared", Allocation: 1}}}},
			{ID: "gate", DurationDays: 1, Priority: 95, ResourceRequirement: domain.ResourceRequirement{
				Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "other", Allocation: 1}}}},
			{ID: "urgent", DurationDays: 2, Priority: 95, Dependencies: []domain.Dependency{{PredecessorID: "gate"}},
				ResourceRequirement: domain.ResourceRequirement{
					Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "shared", Allocation: 1}}}},
		},
		Resources:        []domain.Resource{{ID: "shared"}, {ID: "other"}},
		Groups:           map[string][]string{},
		CurrentDate:      day("2027-02-01"),
		CompletedTaskIDs: map[string]bool{},
		Config:           cfg,
	}
}

func TestBoundedRollout_ProducesAdmissibleSchedule(t *testing.T) {
	result, err := Schedule(contendedRolloutBundle())
	require.NoError(t, err)
	require.Len(t, result.ScheduledTasks, 3)

	byID := make(map[string]domain.ScheduledTask, 3)
	for _, st := range result.ScheduledTasks {
		byID[st.TaskID] = st
	}

	relaxed, urgent := byID["relaxed"], byID["urgent"]
	overlap := !relaxed.EndDate.Before(urgent.StartDate) && !urgent.EndDate.Before(relaxed.StartDate)
	assert.False(t, overlap, "shared resource must remain exclusive regardless of rollout decision")
	assert.False(t, urgent.StartDate.Before(byID["gate"].EndDate.AddDate(0, 0, 1)))
}

func TestBoundedRollout_RecordedDecisionsAreScheduleOrSkip(t *testing.T) {
	result, err := Schedule(contendedRolloutBundle())
	require.NoError(t, err)
	for _, d := range result.RolloutDecisions {
		assert.Contains(t, []string{"schedule", "skip"}, d.Decision)
	}
}

func TestIsRelaxed_LowPriorityQualifies(t *testing.T) {
	bundle := contendedRolloutBundle()
	rs := newRunState(bundle)
	rs.priorities["relaxed"] = 10
	assert.True(t, isRelaxed(rs, "relaxed", bundle.Config.Rollout))
}

func TestIsRelaxed_HighPriorityNoDeadlineDoesNotQualify(t *testing.T) {
	bundle := contendedRolloutBundle()
	rs := newRunState(bundle)
	rs.priorities["urgent"] = 95
	assert.False(t, isRelaxed(rs, "urgent", bundle.Config.Rollout))
}

// TestScenarioScore_UsesBackPropagatedDeadlineForScheduledTasks proves
// the already-scheduled tardiness term scores against the
// back-propagated deadlines map, not a task's raw EndBefore field —
// the two diverge whenever a downstream deadline has tightened an
// upstream task's effective due date.
func TestScenarioScore_UsesBackPropagatedDeadlineForScheduledTasks(t *testing.T) {
	now := day("2027-02-01")
	loose := now.AddDate(0, 0, 20)
	tight := now.AddDate(0, 0, 2)

	bundle := domain.Bundle{
		Tasks: []domain.Task{
			{ID: "upstream", DurationDays: 5, Priority: 50, EndBefore: &loose, ResourceRequirement: domain.ResourceRequirement{
				Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "shared", Allocation: 1}}}},
		},
		Resources:        []domain.Resource{{ID: "shared"}},
		Groups:           map[string][]string{},
		CurrentDate:      now,
		CompletedTaskIDs: map[string]bool{},
	}

	baseline := newRunState(bundle)

	final := newRunState(bundle)
	final.deadlines["upstream"] = &tight
	endDate := now.AddDate(0, 0, 5)
	final.scheduled["upstream"] = domain.ScheduledTask{
		TaskID: "upstream", StartDate: now, EndDate: endDate, DurationDays: 5, Resources: []string{"shared"},
	}

	score := scenarioScore(baseline, final, now.AddDate(0, 0, 5))
	assert.Greater(t, score, 10.0, "end date beyond the back-propagated deadline must incur the tardiness penalty even though it is still within the raw end_before")
}
