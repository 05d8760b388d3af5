// Package config holds the tunables that flow through a scheduling run.
// It mirrors the teacher's domain.UserProfile: a flat struct of numeric
// knobs with a single constructor supplying defaults, loadable from YAML.
package config

// PreprocessorConfig tunes the backward pass (internal/scheduler preprocess.go).
type PreprocessorConfig struct {
	DefaultPriority    int
	DefaultCRMultiplier float64
	DefaultCRFloor      float64
}

// StrategyConfig tunes the sort-key evaluator (internal/scheduler sortkey.go).
type StrategyConfig struct {
	Strategy                      string // one of domain.Strategy
	CRWeight                      float64
	PriorityWeight                float64
	ATCK                          float64
	ATCDefaultUrgencyMultiplier   float64
	ATCDefaultUrgencyFloor        float64
}

// RolloutConfig tunes the bounded rollout (internal/scheduler rollout.go).
type RolloutConfig struct {
	PriorityThreshold int
	MinPriorityGap    int
	CRRelaxedThreshold float64
	MinCRUrgencyGap   float64
	MaxHorizonDays    float64 // 0 means "no cap"
}

// CriticalPathConfig tunes the critical-path scheduler (internal/scheduler criticalpath.go).
type CriticalPathConfig struct {
	K                         float64
	NoDeadlineUrgencyMultiplier float64
	UrgencyFloor              float64
	RolloutEnabled            bool
	RolloutScoreRatioThreshold float64
}

// SchedulingConfig is the full set of tunables for one scheduling run.
type SchedulingConfig struct {
	Algorithm     string // one of domain.Algorithm
	Preprocessor  PreprocessorConfig
	Strategy      StrategyConfig
	Rollout       RolloutConfig
	CriticalPath  CriticalPathConfig
}

// DefaultSchedulingConfig returns the configuration used when a bundle
// supplies no overrides, with the defaults named throughout spec §4 and §6.
func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		Algorithm: "parallel_sgs",
		Preprocessor: PreprocessorConfig{
			DefaultPriority:     50,
			DefaultCRMultiplier: 1.5,
			DefaultCRFloor:      1.0,
		},
		Strategy: StrategyConfig{
			Strategy:                    "weighted",
			CRWeight:                    1.0,
			PriorityWeight:              0.5,
			ATCK:                        2.0,
			ATCDefaultUrgencyMultiplier: 0.5,
			ATCDefaultUrgencyFloor:      0.05,
		},
		Rollout: RolloutConfig{
			PriorityThreshold:  70,
			MinPriorityGap:     20,
			CRRelaxedThreshold: 3.0,
			MinCRUrgencyGap:    1.0,
			MaxHorizonDays:     30,
		},
		CriticalPath: CriticalPathConfig{
			K:                          2.0,
			NoDeadlineUrgencyMultiplier: 0.5,
			UrgencyFloor:               0.05,
			RolloutEnabled:             false,
			RolloutScoreRatioThreshold: 0.9,
		},
	}
}

// Validate returns a BadConfigError for any combination the scheduler
// cannot act on (e.g. ATC selected without a usable K).
func (c SchedulingConfig) Validate() error {
	if c.Strategy.Strategy == "atc" && c.Strategy.ATCK <= 0 {
		return &BadConfigError{Field: "strategy.atc_k", Reason: "must be > 0 when strategy is atc"}
	}
	if c.Rollout.MaxHorizonDays < 0 {
		return &BadConfigError{Field: "rollout.max_horizon_days", Reason: "must be >= 0"}
	}
	return nil
}

// BadConfigError reports a fatal, construction-time configuration problem.
type BadConfigError struct {
	Field  string
	Reason string
}

func (e *BadConfigError) Error() string {
	return "bad config: " + e.Field + ": " + e.Reason
}
