// Package runstore persists AlgorithmResults to SQLite for history and
// replay, the way the teacher's internal/repository persists domain
// entities: a thin struct wrapping *sql.DB, one method per query shape,
// errors wrapped with the operation they describe.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-labs/rcpsched/internal/db"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/mitchellh/hashstructure/v2"
)

// ErrNotFound is returned when a queried run does not exist.
var ErrNotFound = fmt.Errorf("runstore: not found")

const dateLayout = "2006-01-02T15:04:05Z07:00"

// Store persists and retrieves scheduling runs. Reads go straight
// against the pooled *sql.DB; Save goes through a db.UnitOfWork so the
// multi-table insert commits or rolls back as one unit.
type Store struct {
	db  *sql.DB
	uow db.UnitOfWork
}

// New wraps an already-migrated *sql.DB.
func New(database *sql.DB) *Store {
	return &Store{db: database, uow: db.NewSQLiteUnitOfWork(database)}
}

// NewWithUnitOfWork wraps an already-migrated *sql.DB, using the given
// UnitOfWork for Save instead of the default SQLite one — tests use
// this to inject a failing UnitOfWork and assert Save rolls back
// cleanly.
func NewWithUnitOfWork(database *sql.DB, uow db.UnitOfWork) *Store {
	return &Store{db: database, uow: uow}
}

// BundleHash computes a content-addressed key for a bundle via
// FNV-based structural hashing, so two bundles with identical content
// (regardless of source file path) hash equal.
func BundleHash(bundle domain.Bundle) (string, error) {
	h, err := hashstructure.Hash(bundle, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("runstore: hashing bundle: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// Save records one completed run. RunID and GeneratedAt must already be
// stamped by the caller — Schedule itself is a pure function and never
// touches the clock or a random source. bundleHash is the
// content-addressed key produced by BundleHash.
func (s *Store) Save(ctx context.Context, result domain.AlgorithmResult, bundlePath, bundleHash string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, generated_at, algorithm, bundle_path, bundle_hash) VALUES (?, ?, ?, ?, ?)`,
			result.RunID, result.GeneratedAt.Format(dateLayout), string(result.Algorithm), bundlePath, bundleHash)
		if err != nil {
			return fmt.Errorf("runstore: inserting run: %w", err)
		}

		for _, st := range result.ScheduledTasks {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO scheduled_tasks (run_id, task_id, start_date, end_date, duration_days, resources, late)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				result.RunID, st.TaskID, st.StartDate.Format(dateLayout), st.EndDate.Format(dateLayout),
				st.DurationDays, strings.Join(st.Resources, ","), boolToInt(st.Late))
			if err != nil {
				return fmt.Errorf("runstore: inserting scheduled task %q: %w", st.TaskID, err)
			}
		}

		for i, w := range result.Warnings {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO warnings (run_id, seq, code, task_id, pred_id, message, lateness_days)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				result.RunID, i, string(w.Code), w.TaskID, w.PredID, w.Message, w.LatenessDays)
			if err != nil {
				return fmt.Errorf("runstore: inserting warning %d: %w", i, err)
			}
		}

		for i, d := range result.RolloutDecisions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO rollout_decisions (run_id, seq, task_id, decision, competing_id, score_a, score_b)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				result.RunID, i, d.TaskID, d.Decision, d.CompetingID, d.ScoreA, d.ScoreB)
			if err != nil {
				return fmt.Errorf("runstore: inserting rollout decision %d: %w", i, err)
			}
		}

		return nil
	})
}

// RunSummary is one row of run-history metadata, without the full
// scheduled-task/warning detail.
type RunSummary struct {
	RunID       string
	GeneratedAt time.Time
	Algorithm   string
	BundlePath  string
}

// List returns every recorded run, most recent first.
func (s *Store) List(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, generated_at, algorithm, bundle_path FROM runs ORDER BY generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("runstore: listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var generatedAt string
		if err := rows.Scan(&r.RunID, &generatedAt, &r.Algorithm, &r.BundlePath); err != nil {
			return nil, fmt.Errorf("runstore: scanning run: %w", err)
		}
		r.GeneratedAt, err = timeParse(generatedAt)
		if err != nil {
			return nil, fmt.Errorf("runstore: parsing generated_at: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runstore: iterating runs: %w", err)
	}
	return out, nil
}

// Get reconstructs one run's full result by id.
func (s *Store) Get(ctx context.Context, runID string) (domain.AlgorithmResult, error) {
	var algorithm, generatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT algorithm, generated_at FROM runs WHERE id = ?`, runID).Scan(&algorithm, &generatedAt)
	if err == sql.ErrNoRows {
		return domain.AlgorithmResult{}, ErrNotFound
	}
	if err != nil {
		return domain.AlgorithmResult{}, fmt.Errorf("runstore: loading run %q: %w", runID, err)
	}
	return s.loadRun(ctx, runID, algorithm, generatedAt)
}

// FindByBundleHash looks up the most recent run recorded for a given
// content-addressed bundle hash, letting a caller skip re-saving a run
// whose parsed bundle is structurally identical to one already on record. Ok
// is false when no run with that hash exists.
func (s *Store) FindByBundleHash(ctx context.Context, bundleHash string) (result domain.AlgorithmResult, ok bool, err error) {
	var runID, algorithm, generatedAt string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, algorithm, generated_at FROM runs WHERE bundle_hash = ? AND bundle_hash != '' ORDER BY generated_at DESC LIMIT 1`,
		bundleHash).Scan(&runID, &algorithm, &generatedAt)
	if err == sql.ErrNoRows {
		return domain.AlgorithmResult{}, false, nil
	}
	if err != nil {
		return domain.AlgorithmResult{}, false, fmt.Errorf("runstore: finding run by bundle hash: %w", err)
	}
	result, err = s.loadRun(ctx, runID, algorithm, generatedAt)
	if err != nil {
		return domain.AlgorithmResult{}, false, err
	}
	return result, true, nil
}

func (s *Store) loadRun(ctx context.Context, runID, algorithm, generatedAt string) (domain.AlgorithmResult, error) {
	generated, err := timeParse(generatedAt)
	if err != nil {
		return domain.AlgorithmResult{}, fmt.Errorf("runstore: parsing generated_at: %w", err)
	}

	scheduled, err := s.loadScheduledTasks(ctx, runID)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}
	warnings, err := s.loadWarnings(ctx, runID)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}
	decisions, err := s.loadRolloutDecisions(ctx, runID)
	if err != nil {
		return domain.AlgorithmResult{}, err
	}

	return domain.AlgorithmResult{
		RunID:            runID,
		GeneratedAt:      generated,
		Algorithm:        domain.Algorithm(algorithm),
		ScheduledTasks:   scheduled,
		Warnings:         warnings,
		RolloutDecisions: decisions,
	}, nil
}

func (s *Store) loadScheduledTasks(ctx context.Context, runID string) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, start_date, end_date, duration_days, resources, late
		 FROM scheduled_tasks WHERE run_id = ? ORDER BY start_date, task_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: listing scheduled tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledTask
	for rows.Next() {
		var st domain.ScheduledTask
		var start, end, resources string
		var late int
		if err := rows.Scan(&st.TaskID, &start, &end, &st.DurationDays, &resources, &late); err != nil {
			return nil, fmt.Errorf("runstore: scanning scheduled task: %w", err)
		}
		st.StartDate, err = timeParse(start)
		if err != nil {
			return nil, err
		}
		st.EndDate, err = timeParse(end)
		if err != nil {
			return nil, err
		}
		if resources != "" {
			st.Resources = strings.Split(resources, ",")
		}
		st.Late = late != 0
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) loadWarnings(ctx context.Context, runID string) ([]domain.Warning, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, task_id, pred_id, message, lateness_days FROM warnings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: listing warnings: %w", err)
	}
	defer rows.Close()

	var out []domain.Warning
	for rows.Next() {
		var w domain.Warning
		var code string
		if err := rows.Scan(&code, &w.TaskID, &w.PredID, &w.Message, &w.LatenessDays); err != nil {
			return nil, fmt.Errorf("runstore: scanning warning: %w", err)
		}
		w.Code = domain.WarningCode(code)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) loadRolloutDecisions(ctx context.Context, runID string) ([]domain.RolloutDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, decision, competing_id, score_a, score_b FROM rollout_decisions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: listing rollout decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.RolloutDecision
	for rows.Next() {
		var d domain.RolloutDecision
		if err := rows.Scan(&d.TaskID, &d.Decision, &d.CompetingID, &d.ScoreA, &d.ScoreB); err != nil {
			return nil, fmt.Errorf("runstore: scanning rollout decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func timeParse(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("runstore: parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
