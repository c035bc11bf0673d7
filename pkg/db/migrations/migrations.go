// Package migrations holds the schema of skillkit's lint history database.
package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillkit/pkg/db"
)

// All returns every migration in version order.
func All() []db.Migration {
	return []db.Migration{
		{
			Version:     20261019120000,
			Description: "Create lint_runs and lint_findings tables",
			Up:          createLintRunsUp,
			Down:        createLintRunsDown,
		},
		{
			Version:     20261019120100,
			Description: "Add lint history indexes",
			Up:          addIndexesUp,
			Down:        addIndexesDown,
		},
	}
}

func exec(tx *sql.Tx, statements ...string) error {
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func createLintRunsUp(tx *sql.Tx) error {
	return exec(tx,
		`CREATE TABLE IF NOT EXISTS lint_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			roots TEXT NOT NULL DEFAULT '[]',
			skills TEXT NOT NULL DEFAULT '[]',
			errors INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0,
			infos INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS lint_findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES lint_runs(id) ON DELETE CASCADE,
			rule TEXT NOT NULL,
			severity TEXT NOT NULL,
			skill TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			line INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL
		)`,
	)
}

func createLintRunsDown(tx *sql.Tx) error {
	return exec(tx,
		"DROP TABLE IF EXISTS lint_findings",
		"DROP TABLE IF EXISTS lint_runs",
	)
}

func addIndexesUp(tx *sql.Tx) error {
	return exec(tx,
		"CREATE INDEX IF NOT EXISTS idx_lint_runs_started_at ON lint_runs(started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_lint_findings_run_id ON lint_findings(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_lint_findings_rule ON lint_findings(rule)",
	)
}

func addIndexesDown(tx *sql.Tx) error {
	return exec(tx,
		"DROP INDEX IF EXISTS idx_lint_findings_rule",
		"DROP INDEX IF EXISTS idx_lint_findings_run_id",
		"DROP INDEX IF EXISTS idx_lint_runs_started_at",
	)
}
