// Package history persists lint runs in the skillkit SQLite database so
// results can be compared over time.
package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillkit/pkg/db"
	"github.com/jingkaihe/skillkit/pkg/db/migrations"
	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("lint run not found")

// Store reads and writes lint runs.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens the database at dbPath (DefaultDBPath when empty) and applies
// pending migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = db.DefaultDBPath(); err != nil {
			return nil, err
		}
	}

	conn, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.NewMigrationRunner(conn).Run(ctx, migrations.All()); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to run history migrations")
	}

	logger.G(ctx).WithField("path", dbPath).Debug("opened lint history")
	return &Store{db: conn, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a report and its findings. Saving a run ID twice replaces
// the earlier record.
func (s *Store) Save(ctx context.Context, report *lint.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run id")
	}
	return telemetry.WithSpan(ctx, "history.save", func(ctx context.Context) error {
		return s.save(ctx, report)
	}, attribute.String("lint.run_id", report.RunID), attribute.Int("lint.findings", len(report.Findings)))
}

func (s *Store) save(ctx context.Context, report *lint.Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM lint_runs WHERE id = ?", report.RunID); err != nil {
		return errors.Wrap(err, "failed to replace lint run")
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO lint_runs (id, started_at, duration_ns, roots, skills, errors, warnings, infos)
		VALUES (:id, :started_at, :duration_ns, :roots, :skills, :errors, :warnings, :infos)
	`, fromReport(report))
	if err != nil {
		return errors.Wrap(err, "failed to save lint run")
	}

	if len(report.Findings) > 0 {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO lint_findings (run_id, rule, severity, skill, path, line, message)
			VALUES (:run_id, :rule, :severity, :skill, :path, :line, :message)
		`)
		if err != nil {
			return errors.Wrap(err, "failed to prepare finding insert")
		}
		defer stmt.Close()

		for _, f := range report.Findings {
			row := dbFinding{
				RunID:    report.RunID,
				Rule:     f.Rule,
				Severity: f.Severity.String(),
				Skill:    f.Skill,
				Path:     f.Path,
				Line:     f.Line,
				Message:  f.Message,
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return errors.Wrap(err, "failed to save finding")
			}
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit lint run")
}

// List returns the most recent runs first. A limit below 1 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT * FROM lint_runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []dbRun
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list lint runs")
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			logger.G(ctx).WithError(err).Warn("skipping corrupted lint run")
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Get loads a full report. runID may be a unique prefix of a run ID.
func (s *Store) Get(ctx context.Context, runID string) (*lint.Report, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id is empty")
	}

	var rows []dbRun
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM lint_runs WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2", runID, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load lint run")
	}
	switch {
	case len(rows) == 0:
		return nil, errors.Wrapf(ErrNotFound, "no run matches %q", runID)
	case len(rows) > 1 && rows[0].ID != runID:
		return nil, errors.Errorf("run id prefix %q is ambiguous", runID)
	}
	run := rows[0]

	var findings []dbFinding
	err = s.db.SelectContext(ctx, &findings,
		"SELECT run_id, rule, severity, skill, path, line, message FROM lint_findings WHERE run_id = ? ORDER BY id", run.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to load findings")
	}

	return run.toReport(findings)
}

// Prune deletes runs that started more than olderThan ago and returns how
// many were removed. Findings are removed with their run.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan < 0 {
		return 0, errors.Errorf("invalid retention %s", olderThan)
	}

	cutoff := formatTime(s.now().Add(-olderThan))
	res, err := s.db.ExecContext(ctx, "DELETE FROM lint_runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune lint runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count pruned runs")
	}
	logger.G(ctx).WithField("removed", n).WithField("cutoff", cutoff).Debug("pruned lint history")
	return n, nil
}
