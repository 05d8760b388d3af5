package scheduler

import (
	"testing"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_PropagatesDeadlineAcrossLaggedChain(t *testing.T) {
	endBefore := day("2026-06-20")
	tasks := []domain.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 3, Dependencies: []domain.Dependency{{PredecessorID: "a", LagDays: 1}}},
		{ID: "c", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "b"}}, EndBefore: &endBefore},
	}

	deadlines, _, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.NoError(t, err)

	require.NotNil(t, deadlines["c"])
	assert.True(t, deadlines["c"].Equal(endBefore))

	require.NotNil(t, deadlines["b"])
	assert.True(t, deadlines["b"].Equal(endBefore.AddDate(0, 0, -1)))

	require.NotNil(t, deadlines["a"])
	assert.True(t, deadlines["a"].Equal(endBefore.AddDate(0, 0, -1-3-1)))
}

func TestPreprocess_SkipsCompletedPredecessors(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", DurationDays: 2},
		{ID: "b", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "a"}}},
	}
	deadlines, priorities, err := Preprocess(tasks, map[string]bool{"a": true}, config.DefaultSchedulingConfig().Preprocessor)
	require.NoError(t, err)
	_, stillPresent := deadlines["a"]
	assert.False(t, stillPresent)
	assert.Contains(t, priorities, "b")
}

func TestPreprocess_DetectsCycle(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "c"}}},
		{ID: "b", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "a"}}},
		{ID: "c", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "b"}}},
	}
	_, _, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.Error(t, err)
	var cycleErr *domain.CycleDetectedError
	assert.ErrorAs(t, err, &cycleErr)
	assert.NotEmpty(t, cycleErr.Edges)
}

func TestPreprocess_UnknownDependencyIsFatal(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "ghost"}}},
	}
	_, _, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.Error(t, err)
	var unknownErr *domain.UnknownDependencyError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestPreprocess_DefaultPriorityFillsUnset(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", DurationDays: 1, Priority: 90},
		{ID: "b", DurationDays: 1},
	}
	_, priorities, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.NoError(t, err)
	assert.Equal(t, 90, priorities["a"])
	assert.Equal(t, config.DefaultSchedulingConfig().Preprocessor.DefaultPriority, priorities["b"])
}

func TestPreprocess_NoDeadlineLeavesNilForOrphanChain(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", DurationDays: 1},
		{ID: "b", DurationDays: 1, Dependencies: []domain.Dependency{{PredecessorID: "a"}}},
	}
	deadlines, _, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.NoError(t, err)
	assert.Nil(t, deadlines["a"])
	assert.Nil(t, deadlines["b"])
}

func TestPreprocess_EndOnTakesPrecedenceOverEndBefore(t *testing.T) {
	endOn := day("2026-07-10")
	endBefore := day("2026-07-01") // tighter than end_on, but end_on must still win
	tasks := []domain.Task{
		{ID: "fixed", DurationDays: 2, EndOn: &endOn, EndBefore: &endBefore},
	}

	deadlines, _, err := Preprocess(tasks, map[string]bool{}, config.DefaultSchedulingConfig().Preprocessor)
	require.NoError(t, err)

	require.NotNil(t, deadlines["fixed"])
	assert.True(t, deadlines["fixed"].Equal(endOn), "end_on is authoritative over end_before even when end_before is earlier")
}
