package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		generated_at   TEXT NOT NULL,
		algorithm      TEXT NOT NULL,
		bundle_path    TEXT NOT NULL DEFAULT '',
		bundle_hash    TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS scheduled_tasks (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		task_id       TEXT NOT NULL,
		start_date    TEXT NOT NULL,
		end_date      TEXT NOT NULL,
		duration_days REAL NOT NULL,
		resources     TEXT NOT NULL DEFAULT '',
		late          INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, task_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_run ON scheduled_tasks(run_id)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_bundle_hash ON runs(bundle_hash)`,

	`CREATE TABLE IF NOT EXISTS warnings (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq           INTEGER NOT NULL,
		code          TEXT NOT NULL,
		task_id       TEXT NOT NULL DEFAULT '',
		pred_id       TEXT NOT NULL DEFAULT '',
		message       TEXT NOT NULL DEFAULT '',
		lateness_days REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS rollout_decisions (
		run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		task_id      TEXT NOT NULL,
		decision     TEXT NOT NULL,
		competing_id TEXT NOT NULL DEFAULT '',
		score_a      REAL NOT NULL DEFAULT 0,
		score_b      REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, seq)
	)`,
}
