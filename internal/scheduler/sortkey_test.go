package scheduler

import (
	"testing"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestComputeSortKeys_CRFirstOrdersByTightestSlack(t *testing.T) {
	now := day("2026-10-01")
	tight := now.AddDate(0, 0, 3)
	loose := now.AddDate(0, 0, 30)
	inputs := []SortInput{
		{TaskID: "loose", Deadline: &loose, DurationDays: 1, Priority: 50},
		{TaskID: "tight", Deadline: &tight, DurationDays: 1, Priority: 50},
	}
	cfg := config.DefaultSchedulingConfig()
	cfg.Strategy.Strategy = "cr_first"

	keys := ComputeSortKeys(inputs, now, cfg)
	assert.True(t, keys[1].Less(keys[0]), "tight deadline should sort before loose one")
}

func TestComputeSortKeys_PriorityFirstOrdersHighestFirst(t *testing.T) {
	now := day("2026-10-01")
	inputs := []SortInput{
		{TaskID: "low", DurationDays: 1, Priority: 10},
		{TaskID: "high", DurationDays: 1, Priority: 90},
	}
	cfg := config.DefaultSchedulingConfig()
	cfg.Strategy.Strategy = "priority_first"

	keys := ComputeSortKeys(inputs, now, cfg)
	assert.True(t, keys[1].Less(keys[0]))
}

func TestComputeSortKeys_NoDeadlineTasksGetSharedDefaultCR(t *testing.T) {
	now := day("2026-10-01")
	inputs := []SortInput{
		{TaskID: "a", DurationDays: 1, Priority: 50},
		{TaskID: "b", DurationDays: 1, Priority: 50},
	}
	cfg := config.DefaultSchedulingConfig()
	cfg.Strategy.Strategy = "cr_first"

	keys := ComputeSortKeys(inputs, now, cfg)
	assert.Equal(t, keys[0].Primary, keys[1].Primary)
	assert.Equal(t, "a", keys[0].ID)
}

func TestComputeSortKeys_ATCFavorsUrgentHighPriority(t *testing.T) {
	now := day("2026-10-01")
	soon := now.AddDate(0, 0, 1)
	far := now.AddDate(0, 0, 60)
	inputs := []SortInput{
		{TaskID: "urgent", Deadline: &soon, DurationDays: 2, Priority: 80},
		{TaskID: "relaxed", Deadline: &far, DurationDays: 2, Priority: 80},
	}
	cfg := config.DefaultSchedulingConfig()
	cfg.Strategy.Strategy = "atc"

	keys := ComputeSortKeys(inputs, now, cfg)
	assert.True(t, keys[0].Less(keys[1]), "urgent task should win under ATC")
}

func TestSortKey_Less_TieBreaksOnID(t *testing.T) {
	a := SortKey{Primary: 1, Secondary: 1, ID: "a"}
	b := SortKey{Primary: 1, Secondary: 1, ID: "b"}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}
