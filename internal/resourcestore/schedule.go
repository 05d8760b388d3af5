// Package resourcestore holds the per-resource interval store: a sorted
// sequence of busy/DNS intervals per resource, queried and mutated by the
// scheduler's forward pass. DNS (resource-level) and global-DNS periods are
// merged into the same per-resource view at construction time, per the
// teacher-adjacent design note that downstream code needs only a single
// merged interval list — but a BUSY interval (a committed task) and a DNS
// interval (declared unavailability) are still tagged distinctly, because
// the forward pass defers a task that hits a busy resource at `now` while
// tolerating a resource that is merely DNS at `now` (the task starts anyway
// and the DNS day simply earns no effort).
package resourcestore

import (
	"fmt"
	"sort"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/domain"
)

// Kind distinguishes a committed task occupation from a declared
// unavailability window.
type Kind int

const (
	KindBusy Kind = iota
	KindDNS
)

// Interval is one closed, whole-day span on a resource's timeline.
type Interval struct {
	Start time.Time
	End   time.Time // inclusive
	Kind  Kind
}

// Schedule is the interval store for a single resource. Intervals are
// kept sorted by Start and non-overlapping among same-kind entries; a
// fresh Schedule is seeded with the resource's own DNS periods plus any
// global DNS periods, coalesced.
type Schedule struct {
	resourceID string
	intervals  []Interval
}

// NewSchedule builds a Schedule for resourceID, merging its own DNS
// periods with the bundle's global DNS periods into one coalesced,
// sorted DNS interval list.
func NewSchedule(resourceID string, ownDNS, globalDNS []domain.DateRange) *Schedule {
	all := make([]domain.DateRange, 0, len(ownDNS)+len(globalDNS))
	all = append(all, ownDNS...)
	all = append(all, globalDNS...)
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

	var merged []Interval
	for _, r := range all {
		start, end := dayOf(r.Start), dayOf(r.End)
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if !start.After(last.End.AddDate(0, 0, 1)) {
				if end.After(last.End) {
					last.End = end
				}
				continue
			}
		}
		merged = append(merged, Interval{Start: start, End: end, Kind: KindDNS})
	}

	return &Schedule{resourceID: resourceID, intervals: merged}
}

// dayOf truncates to a whole UTC calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ResourceID returns the resource this schedule belongs to.
func (s *Schedule) ResourceID() string { return s.resourceID }

// Intervals returns a defensive copy of the sorted interval list.
func (s *Schedule) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// intervalAt returns the interval covering day, or nil.
func (s *Schedule) intervalAt(day time.Time) *Interval {
	day = dayOf(day)
	// Binary search for the first interval whose End is >= day.
	i := sort.Search(len(s.intervals), func(i int) bool {
		return !s.intervals[i].End.Before(day)
	})
	if i < len(s.intervals) && !s.intervals[i].Start.After(day) {
		return &s.intervals[i]
	}
	return nil
}

// IsBusy reports whether a committed task occupies day (DNS does not count).
func (s *Schedule) IsBusy(day time.Time) bool {
	iv := s.intervalAt(day)
	return iv != nil && iv.Kind == KindBusy
}

// IsBlocked reports whether day cannot earn effort: either busy with a
// committed task or inside a DNS period.
func (s *Schedule) IsBlocked(day time.Time) bool {
	return s.intervalAt(day) != nil
}

// NextFreeDay returns the first day >= from that is not blocked.
func (s *Schedule) NextFreeDay(from time.Time) time.Time {
	day := dayOf(from)
	for s.IsBlocked(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// CompletionTime walks forward from `from`, accruing one unit of effort
// per unblocked calendar day, and returns the date of the day on which
// the last required unit of effortDays lands. `from` itself may be
// blocked (DNS or busy); it simply earns no effort and the walk
// continues. A non-positive effortDays returns `from` unchanged
// (milestones never consume resource time).
func (s *Schedule) CompletionTime(from time.Time, effortDays float64) time.Time {
	if effortDays <= 0 {
		return dayOf(from)
	}
	needed := daysNeeded(effortDays)
	day := dayOf(from)
	accrued := 0
	for {
		if !s.IsBlocked(day) {
			accrued++
			if accrued == needed {
				return day
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

// daysNeeded rounds a fractional effort up to a whole number of days,
// with a small epsilon to absorb floating-point noise.
func daysNeeded(effortDays float64) int {
	const eps = 1e-9
	n := int(effortDays + eps)
	if float64(n) < effortDays-eps {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Insert commits a busy interval [start, end] (inclusive). It errors if
// the new interval overlaps an existing busy interval — resource
// exclusivity must never be violated by the caller. Uses an O(1)
// append fast path when the new interval strictly follows the last one.
func (s *Schedule) Insert(start, end time.Time) error {
	start, end = dayOf(start), dayOf(end)
	if end.Before(start) {
		return fmt.Errorf("resourcestore: insert end %s before start %s", end, start)
	}

	if n := len(s.intervals); n > 0 {
		last := s.intervals[n-1]
		if start.After(last.End) {
			s.intervals = append(s.intervals, Interval{Start: start, End: end, Kind: KindBusy})
			return nil
		}
	}

	for _, iv := range s.intervals {
		if iv.Kind == KindBusy && overlaps(iv.Start, iv.End, start, end) {
			return fmt.Errorf("resourcestore: resource %q already busy %s..%s, cannot insert %s..%s",
				s.resourceID, iv.Start.Format("2006-01-02"), iv.End.Format("2006-01-02"),
				start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
	}

	idx := sort.Search(len(s.intervals), func(i int) bool {
		return s.intervals[i].Start.After(start)
	})
	s.intervals = append(s.intervals, Interval{})
	copy(s.intervals[idx+1:], s.intervals[idx:])
	s.intervals[idx] = Interval{Start: start, End: end, Kind: KindBusy}
	return nil
}

// InsertOverride commits a busy interval the way Insert does, but for
// a pre-pinned fixed-date task: it clips or removes any DNS intervals
// the new span overlaps (the fixed task wins over DNS) while still
// refusing to overlap another committed BUSY interval.
func (s *Schedule) InsertOverride(start, end time.Time) error {
	start, end = dayOf(start), dayOf(end)
	if end.Before(start) {
		return fmt.Errorf("resourcestore: insert end %s before start %s", end, start)
	}

	kept := make([]Interval, 0, len(s.intervals)+1)
	for _, iv := range s.intervals {
		if iv.Kind == KindBusy {
			if overlaps(iv.Start, iv.End, start, end) {
				return fmt.Errorf("resourcestore: resource %q already busy %s..%s, cannot pin %s..%s",
					s.resourceID, iv.Start.Format("2006-01-02"), iv.End.Format("2006-01-02"),
					start.Format("2006-01-02"), end.Format("2006-01-02"))
			}
			kept = append(kept, iv)
			continue
		}
		if !overlaps(iv.Start, iv.End, start, end) {
			kept = append(kept, iv)
			continue
		}
		if iv.Start.Before(start) {
			kept = append(kept, Interval{Start: iv.Start, End: start.AddDate(0, 0, -1), Kind: KindDNS})
		}
		if iv.End.After(end) {
			kept = append(kept, Interval{Start: end.AddDate(0, 0, 1), End: iv.End, Kind: KindDNS})
		}
	}
	kept = append(kept, Interval{Start: start, End: end, Kind: KindBusy})
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start.Before(kept[j].Start) })
	s.intervals = kept
	return nil
}

// clone returns a deep copy of the schedule's interval list.
func (s *Schedule) clone() *Schedule {
	out := &Schedule{resourceID: s.resourceID, intervals: make([]Interval, len(s.intervals))}
	copy(out.intervals, s.intervals)
	return out
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
