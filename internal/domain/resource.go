package domain

import (
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
)

// DateRange is a closed, inclusive calendar interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two ranges share any day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// Resource is a scheduling capacity unit. Order is significant: it drives
// deterministic wildcard (`*`) expansion in resource specs.
type Resource struct {
	ID         string
	DNSPeriods []DateRange
	Groups     []string
}

// Bundle aggregates every input the engine needs for one scheduling run.
type Bundle struct {
	Tasks             []Task
	Resources         []Resource
	Groups            map[string][]string // group name -> ordered resource ids
	GlobalDNSPeriods  []DateRange
	CurrentDate       time.Time
	CompletedTaskIDs  map[string]bool
	Config            config.SchedulingConfig
}
