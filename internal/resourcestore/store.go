package resourcestore

import (
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// Store holds one Schedule per resource id. It is the object the
// scheduler's forward pass and resolver query and mutate while
// advancing through event ticks.
type Store struct {
	schedules map[string]*Schedule
}

// New builds a Store from a bundle's resources, seeding each
// resource's schedule with its own DNS periods plus the bundle's
// global DNS periods.
func New(resources []domain.Resource, globalDNS []domain.DateRange) *Store {
	st := &Store{schedules: make(map[string]*Schedule, len(resources))}
	for _, r := range resources {
		st.schedules[r.ID] = NewSchedule(r.ID, r.DNSPeriods, globalDNS)
	}
	return st
}

// Schedule returns the per-resource schedule, creating an empty one
// (no DNS) on first reference — this covers the shared unassigned
// resource and group members that are not declared as bundle resources.
func (st *Store) Schedule(resourceID string) *Schedule {
	s, ok := st.schedules[resourceID]
	if !ok {
		s = &Schedule{resourceID: resourceID}
		st.schedules[resourceID] = s
	}
	return s
}

// IsBusyAny reports whether any of resourceIDs has a committed task
// occupying day. Used by the forward pass to decide whether a task
// must be deferred to the next event tick.
func (st *Store) IsBusyAny(resourceIDs []string, day time.Time) bool {
	for _, id := range resourceIDs {
		if st.Schedule(id).IsBusy(day) {
			return true
		}
	}
	return false
}

// CompletionTime accrues effort across the intersection of free days
// on ALL named resources: a day counts only if every resource in
// resourceIDs is unblocked (neither busy nor DNS) that day.
func (st *Store) CompletionTime(resourceIDs []string, from time.Time, effortDays float64) time.Time {
	if effortDays <= 0 {
		return dayOf(from)
	}
	if len(resourceIDs) == 1 {
		return st.Schedule(resourceIDs[0]).CompletionTime(from, effortDays)
	}
	needed := daysNeeded(effortDays)
	day := dayOf(from)
	accrued := 0
	for {
		if !st.anyBlocked(resourceIDs, day) {
			accrued++
			if accrued == needed {
				return day
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

func (st *Store) anyBlocked(resourceIDs []string, day time.Time) bool {
	for _, id := range resourceIDs {
		if st.Schedule(id).IsBlocked(day) {
			return true
		}
	}
	return false
}

// Insert commits a busy interval on every named resource.
func (st *Store) Insert(resourceIDs []string, start, end time.Time) error {
	for _, id := range resourceIDs {
		if err := st.Schedule(id).Insert(start, end); err != nil {
			return err
		}
	}
	return nil
}

// InsertOverride commits a pinned fixed-date busy interval on every
// named resource, clipping any DNS periods it overlaps.
func (st *Store) InsertOverride(resourceIDs []string, start, end time.Time) error {
	for _, id := range resourceIDs {
		if err := st.Schedule(id).InsertOverride(start, end); err != nil {
			return err
		}
	}
	return nil
}

// KnownResourceIDs returns every resource id the store has a schedule
// for, including ones (like the shared unassigned resource) created
// lazily on first reference.
func (st *Store) KnownResourceIDs() []string {
	out := make([]string, 0, len(st.schedules))
	for id := range st.schedules {
		out = append(out, id)
	}
	return out
}

// Clone deep-copies every per-resource schedule, for rollout's
// scenario simulation: the clone's mutations never reach the original.
func (st *Store) Clone() *Store {
	out := &Store{schedules: make(map[string]*Schedule, len(st.schedules))}
	for id, s := range st.schedules {
		out.schedules[id] = s.clone()
	}
	return out
}
