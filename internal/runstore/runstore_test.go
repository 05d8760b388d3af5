package runstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() domain.AlgorithmResult {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return domain.AlgorithmResult{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		Algorithm:   domain.AlgorithmParallelSGS,
		ScheduledTasks: []domain.ScheduledTask{
			{TaskID: "design", StartDate: start, EndDate: start.AddDate(0, 0, 2), DurationDays: 2, Resources: []string{"alice"}},
		},
		Warnings: []domain.Warning{
			{Code: domain.WarningDeadlineMissed, TaskID: "design", Message: "late", LatenessDays: 1.5},
		},
		RolloutDecisions: []domain.RolloutDecision{
			{TaskID: "design", Decision: "schedule", ScoreA: 1.2, ScoreB: 3.4},
		},
	}
}

func TestStore_SaveAndGet_RoundTrips(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := New(db)
	ctx := context.Background()

	result := sampleResult()
	require.NoError(t, store.Save(ctx, result, "bundle.yaml", "hash-1"))

	fetched, err := store.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Algorithm, fetched.Algorithm)
	require.Len(t, fetched.ScheduledTasks, 1)
	assert.Equal(t, "design", fetched.ScheduledTasks[0].TaskID)
	assert.Equal(t, []string{"alice"}, fetched.ScheduledTasks[0].Resources)
	require.Len(t, fetched.Warnings, 1)
	assert.Equal(t, domain.WarningDeadlineMissed, fetched.Warnings[0].Code)
	require.Len(t, fetched.RolloutDecisions, 1)
	assert.Equal(t, "schedule", fetched.RolloutDecisions[0].Decision)
}

func TestStore_Get_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := New(db)
	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List_OrdersMostRecentFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := New(db)
	ctx := context.Background()

	older := sampleResult()
	older.GeneratedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleResult()
	newer.GeneratedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, older, "a.yaml", "hash-a"))
	require.NoError(t, store.Save(ctx, newer, "b.yaml", "hash-b"))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID)
	assert.Equal(t, older.RunID, runs[1].RunID)
}

func TestBundleHash_SameContentSameHash(t *testing.T) {
	bundle := domain.Bundle{
		Tasks: []domain.Task{
			{ID: "design", DurationDays: 2, ResourceRequirement: domain.ResourceRequirement{
				Kind: domain.RequirementExplicit, Explicit: []domain.ResourceAllocation{{ResourceID: "alice", Allocation: 1}}}},
		},
		Resources:        []domain.Resource{{ID: "alice"}},
		Groups:           map[string][]string{},
		CurrentDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CompletedTaskIDs: map[string]bool{},
	}

	hashA, err := BundleHash(bundle)
	require.NoError(t, err)
	hashB, err := BundleHash(bundle)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	bundle.Tasks[0].DurationDays = 3
	hashC, err := BundleHash(bundle)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)
}

func TestStore_FindByBundleHash(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := New(db)
	ctx := context.Background()

	result := sampleResult()
	require.NoError(t, store.Save(ctx, result, "bundle.yaml", "hash-1"))

	found, ok, err := store.FindByBundleHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.RunID, found.RunID)

	_, ok, err = store.FindByBundleHash(ctx, "no-such-hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Save_RollsBackOnInjectedFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	failAfter := &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: errors.New("injected failure")}
	store := NewWithUnitOfWork(database, failAfter)
	ctx := context.Background()

	result := sampleResult()
	err := store.Save(ctx, result, "bundle.yaml", "hash-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected failure")

	_, getErr := New(database).Get(ctx, result.RunID)
	assert.ErrorIs(t, getErr, ErrNotFound, "failed save must not leave a partial run row behind")
}
