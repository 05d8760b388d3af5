// Package bundleio loads a scheduling bundle from a YAML file on disk
// into internal/domain's in-memory types: a flat document unmarshaled
// with gopkg.in/yaml.v3, with dates given as "2006-01-02" strings and
// converted at load time.
package bundleio

import (
	"fmt"
	"os"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/config"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type rawDateRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type rawResource struct {
	ID         string         `yaml:"id"`
	Groups     []string       `yaml:"groups"`
	DNSPeriods []rawDateRange `yaml:"dns_periods"`
}

type rawAllocation struct {
	ResourceID string  `yaml:"resource_id"`
	Allocation float64 `yaml:"allocation"`
}

type rawRequirement struct {
	Explicit []rawAllocation `yaml:"explicit"`
	Spec     string          `yaml:"spec"`
}

type rawDependency struct {
	PredecessorID string  `yaml:"predecessor_id"`
	LagDays       float64 `yaml:"lag_days"`
}

type rawTask struct {
	ID           string          `yaml:"id"`
	DurationDays float64         `yaml:"duration_days"`
	Priority     int             `yaml:"priority"`
	Resources    rawRequirement  `yaml:"resources"`
	Dependencies []rawDependency `yaml:"dependencies"`

	StartAfter string `yaml:"start_after"`
	EndBefore  string `yaml:"end_before"`
	StartOn    string `yaml:"start_on"`
	EndOn      string `yaml:"end_on"`
}

type rawBundle struct {
	CurrentDate      string              `yaml:"current_date"`
	CompletedTaskIDs []string            `yaml:"completed_task_ids"`
	Resources        []rawResource       `yaml:"resources"`
	Groups           map[string][]string `yaml:"groups"`
	GlobalDNSPeriods []rawDateRange      `yaml:"global_dns_periods"`
	Config           rawConfig           `yaml:"config"`
	Tasks            []rawTask           `yaml:"tasks"`
}

type rawConfig struct {
	Algorithm    string               `yaml:"algorithm"`
	Preprocessor config.PreprocessorConfig `yaml:"preprocessor"`
	Strategy     rawStrategyConfig    `yaml:"strategy"`
	Rollout      config.RolloutConfig `yaml:"rollout"`
	CriticalPath config.CriticalPathConfig `yaml:"critical_path"`
}

type rawStrategyConfig struct {
	Strategy                    string  `yaml:"strategy"`
	CRWeight                    float64 `yaml:"cr_weight"`
	PriorityWeight              float64 `yaml:"priority_weight"`
	ATCK                        float64 `yaml:"atc_k"`
	ATCDefaultUrgencyMultiplier float64 `yaml:"atc_default_urgency_multiplier"`
	ATCDefaultUrgencyFloor      float64 `yaml:"atc_default_urgency_floor"`
}

// Load reads and parses a bundle document from path.
func Load(path string) (domain.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("bundleio: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a bundle document already read into memory.
func Parse(data []byte) (domain.Bundle, error) {
	var raw rawBundle
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Bundle{}, fmt.Errorf("bundleio: parsing yaml: %w", err)
	}
	return convert(raw)
}

func convert(raw rawBundle) (domain.Bundle, error) {
	cfg := config.DefaultSchedulingConfig()
	if raw.Config.Algorithm != "" {
		cfg.Algorithm = raw.Config.Algorithm
	}
	if raw.Config.Preprocessor != (config.PreprocessorConfig{}) {
		cfg.Preprocessor = raw.Config.Preprocessor
	}
	if raw.Config.Strategy.Strategy != "" {
		cfg.Strategy = config.StrategyConfig{
			Strategy:                    raw.Config.Strategy.Strategy,
			CRWeight:                    raw.Config.Strategy.CRWeight,
			PriorityWeight:              raw.Config.Strategy.PriorityWeight,
			ATCK:                        raw.Config.Strategy.ATCK,
			ATCDefaultUrgencyMultiplier: raw.Config.Strategy.ATCDefaultUrgencyMultiplier,
			ATCDefaultUrgencyFloor:      raw.Config.Strategy.ATCDefaultUrgencyFloor,
		}
	}
	if raw.Config.Rollout != (config.RolloutConfig{}) {
		cfg.Rollout = raw.Config.Rollout
	}
	if raw.Config.CriticalPath != (config.CriticalPathConfig{}) {
		cfg.CriticalPath = raw.Config.CriticalPath
	}

	currentDate, err := parseDate(raw.CurrentDate)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("bundleio: current_date: %w", err)
	}

	resources := make([]domain.Resource, len(raw.Resources))
	for i, r := range raw.Resources {
		dns, err := parseDateRanges(r.DNSPeriods)
		if err != nil {
			return domain.Bundle{}, fmt.Errorf("bundleio: resource %q: %w", r.ID, err)
		}
		resources[i] = domain.Resource{ID: r.ID, Groups: r.Groups, DNSPeriods: dns}
	}

	globalDNS, err := parseDateRanges(raw.GlobalDNSPeriods)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("bundleio: global_dns_periods: %w", err)
	}

	completed := make(map[string]bool, len(raw.CompletedTaskIDs))
	for _, id := range raw.CompletedTaskIDs {
		completed[id] = true
	}

	tasks := make([]domain.Task, len(raw.Tasks))
	for i, rt := range raw.Tasks {
		task, err := convertTask(rt)
		if err != nil {
			return domain.Bundle{}, err
		}
		tasks[i] = task
	}

	return domain.Bundle{
		Tasks:            tasks,
		Resources:        resources,
		Groups:           raw.Groups,
		GlobalDNSPeriods: globalDNS,
		CurrentDate:      currentDate,
		CompletedTaskIDs: completed,
		Config:           cfg,
	}, nil
}

func convertTask(rt rawTask) (domain.Task, error) {
	req := domain.ResourceRequirement{Kind: domain.RequirementSpec, SpecText: rt.Resources.Spec}
	if len(rt.Resources.Explicit) > 0 {
		allocs := make([]domain.ResourceAllocation, len(rt.Resources.Explicit))
		for i, a := range rt.Resources.Explicit {
			allocs[i] = domain.ResourceAllocation{ResourceID: a.ResourceID, Allocation: a.Allocation}
		}
		req = domain.ResourceRequirement{Kind: domain.RequirementExplicit, Explicit: allocs}
	}

	deps := make([]domain.Dependency, len(rt.Dependencies))
	for i, d := range rt.Dependencies {
		deps[i] = domain.Dependency{PredecessorID: d.PredecessorID, LagDays: d.LagDays}
	}

	startAfter, err := parseOptionalDate(rt.StartAfter)
	if err != nil {
		return domain.Task{}, fmt.Errorf("bundleio: task %q start_after: %w", rt.ID, err)
	}
	endBefore, err := parseOptionalDate(rt.EndBefore)
	if err != nil {
		return domain.Task{}, fmt.Errorf("bundleio: task %q end_before: %w", rt.ID, err)
	}
	startOn, err := parseOptionalDate(rt.StartOn)
	if err != nil {
		return domain.Task{}, fmt.Errorf("bundleio: task %q start_on: %w", rt.ID, err)
	}
	endOn, err := parseOptionalDate(rt.EndOn)
	if err != nil {
		return domain.Task{}, fmt.Errorf("bundleio: task %q end_on: %w", rt.ID, err)
	}

	return domain.Task{
		ID:                  rt.ID,
		DurationDays:        rt.DurationDays,
		Priority:            rt.Priority,
		ResourceRequirement: req,
		Dependencies:        deps,
		StartAfter:          startAfter,
		EndBefore:           endBefore,
		StartOn:             startOn,
		EndOn:               endOn,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDateRanges(raw []rawDateRange) ([]domain.DateRange, error) {
	out := make([]domain.DateRange, len(raw))
	for i, r := range raw {
		start, err := parseDate(r.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(r.End)
		if err != nil {
			return nil, err
		}
		out[i] = domain.DateRange{Start: start, End: end}
	}
	return out, nil
}
