package resourcestore

import (
	"testing"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSchedule_CompletionTime_NoInterruption(t *testing.T) {
	s := NewSchedule("alice", nil, nil)
	end := s.CompletionTime(d("2025-01-01"), 5)
	assert.Equal(t, d("2025-01-05"), end)
}

func TestSchedule_CompletionTime_DNSInterruption(t *testing.T) {
	// DNS 01-06..01-10 splits a 10-day effort into two 5-day blocks.
	s := NewSchedule("alice", []domain.DateRange{{Start: d("2025-01-06"), End: d("2025-01-10")}}, nil)
	end := s.CompletionTime(d("2025-01-01"), 10)
	assert.Equal(t, d("2025-01-15"), end)
}

func TestSchedule_CompletionTime_StartsDuringDNS(t *testing.T) {
	s := NewSchedule("alice", []domain.DateRange{{Start: d("2025-01-01"), End: d("2025-01-03")}}, nil)
	// starting inside the DNS window earns nothing until it lifts
	end := s.CompletionTime(d("2025-01-01"), 2)
	assert.Equal(t, d("2025-01-05"), end)
}

func TestSchedule_GlobalDNSMerged(t *testing.T) {
	global := []domain.DateRange{{Start: d("2025-02-01"), End: d("2025-02-02")}}
	s := NewSchedule("alice", nil, global)
	assert.True(t, s.IsBlocked(d("2025-02-01")))
	assert.False(t, s.IsBusy(d("2025-02-01")))
}

func TestSchedule_Insert_Exclusivity(t *testing.T) {
	s := NewSchedule("alice", nil, nil)
	require.NoError(t, s.Insert(d("2025-01-01"), d("2025-01-05")))
	err := s.Insert(d("2025-01-03"), d("2025-01-06"))
	assert.Error(t, err)

	// strictly-after insert takes the O(1) append path and succeeds.
	require.NoError(t, s.Insert(d("2025-01-06"), d("2025-01-10")))
	assert.True(t, s.IsBusy(d("2025-01-08")))
}

func TestSchedule_Insert_OutOfOrderStillSorted(t *testing.T) {
	s := NewSchedule("alice", nil, nil)
	require.NoError(t, s.Insert(d("2025-02-01"), d("2025-02-05")))
	require.NoError(t, s.Insert(d("2025-01-01"), d("2025-01-05")))
	ivs := s.Intervals()
	require.Len(t, ivs, 2)
	assert.True(t, ivs[0].Start.Before(ivs[1].Start))
}

func TestSchedule_NextFreeDay(t *testing.T) {
	s := NewSchedule("alice", []domain.DateRange{{Start: d("2025-01-01"), End: d("2025-01-03")}}, nil)
	assert.Equal(t, d("2025-01-04"), s.NextFreeDay(d("2025-01-01")))
}

func TestSchedule_Milestone_ZeroEffort(t *testing.T) {
	s := NewSchedule("alice", nil, nil)
	assert.Equal(t, d("2025-01-01"), s.CompletionTime(d("2025-01-01"), 0))
}

func TestStore_MultiResource_RequiresAllFree(t *testing.T) {
	st := New([]domain.Resource{
		{ID: "alice"},
		{ID: "bob", DNSPeriods: []domain.DateRange{{Start: d("2025-01-02"), End: d("2025-01-02")}}},
	}, nil)

	end := st.CompletionTime([]string{"alice", "bob"}, d("2025-01-01"), 2)
	// bob is out on 01-02, so only 01-01 and 01-03 count toward the 2 days needed.
	assert.Equal(t, d("2025-01-03"), end)
}

func TestStore_IsBusyAny(t *testing.T) {
	st := New([]domain.Resource{{ID: "alice"}, {ID: "bob"}}, nil)
	require.NoError(t, st.Insert([]string{"alice"}, d("2025-01-01"), d("2025-01-05")))
	assert.True(t, st.IsBusyAny([]string{"alice", "bob"}, d("2025-01-02")))
	assert.False(t, st.IsBusyAny([]string{"bob"}, d("2025-01-02")))
}

func TestStore_Insert_MultiResource(t *testing.T) {
	st := New([]domain.Resource{{ID: "alice"}, {ID: "bob"}}, nil)
	require.NoError(t, st.Insert([]string{"alice", "bob"}, d("2025-01-01"), d("2025-01-03")))
	assert.True(t, st.Schedule("alice").IsBusy(d("2025-01-02")))
	assert.True(t, st.Schedule("bob").IsBusy(d("2025-01-02")))
}
