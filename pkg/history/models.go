package history

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/lint"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// JSONField stores a value as a JSON text column.
type JSONField[T any] struct {
	Data T
}

// Scan implements the sql.Scanner interface
func (j *JSONField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("cannot scan %T into JSONField", value)
	}
	return json.Unmarshal(raw, &j.Data)
}

// Value implements the driver.Valuer interface
func (j JSONField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type dbRun struct {
	ID         string              `db:"id"`
	StartedAt  string              `db:"started_at"`
	DurationNS int64               `db:"duration_ns"`
	Roots      JSONField[[]string] `db:"roots"`
	Skills     JSONField[[]string] `db:"skills"`
	Errors     int                 `db:"errors"`
	Warnings   int                 `db:"warnings"`
	Infos      int                 `db:"infos"`
}

type dbFinding struct {
	RunID    string `db:"run_id"`
	Rule     string `db:"rule"`
	Severity string `db:"severity"`
	Skill    string `db:"skill"`
	Path     string `db:"path"`
	Line     int    `db:"line"`
	Message  string `db:"message"`
}

// Run summarises a stored lint run.
type Run struct {
	ID        string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Roots     []string      `json:"roots"`
	Skills    int           `json:"skills"`
	Errors    int           `json:"errors"`
	Warnings  int           `json:"warnings"`
	Infos     int           `json:"infos"`
}

func fromReport(r *lint.Report) dbRun {
	roots := r.Roots
	if roots == nil {
		roots = []string{}
	}
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	return dbRun{
		ID:         r.RunID,
		StartedAt:  formatTime(r.StartedAt),
		DurationNS: int64(r.Duration),
		Roots:      JSONField[[]string]{Data: roots},
		Skills:     JSONField[[]string]{Data: skills},
		Errors:     r.Errors,
		Warnings:   r.Warnings,
		Infos:      r.Infos,
	}
}

func (d dbRun) startedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, d.StartedAt)
	return t, errors.Wrapf(err, "failed to parse started_at of run %s", d.ID)
}

func (d dbRun) toRun() (Run, error) {
	started, err := d.startedAt()
	if err != nil {
		return Run{}, err
	}
	return Run{
		ID:        d.ID,
		StartedAt: started,
		Duration:  time.Duration(d.DurationNS),
		Roots:     d.Roots.Data,
		Skills:    len(d.Skills.Data),
		Errors:    d.Errors,
		Warnings:  d.Warnings,
		Infos:     d.Infos,
	}, nil
}

func (d dbRun) toReport(findings []dbFinding) (*lint.Report, error) {
	started, err := d.startedAt()
	if err != nil {
		return nil, err
	}

	report := &lint.Report{
		RunID:     d.ID,
		StartedAt: started,
		Duration:  time.Duration(d.DurationNS),
		Roots:     d.Roots.Data,
		Skills:    d.Skills.Data,
		Findings:  make([]lint.Finding, 0, len(findings)),
		Errors:    d.Errors,
		Warnings:  d.Warnings,
		Infos:     d.Infos,
	}
	if report.Skills == nil {
		report.Skills = []string{}
	}

	for _, f := range findings {
		sev, err := lint.ParseSeverity(f.Severity)
		if err != nil {
			return nil, errors.Wrapf(err, "run %s has a malformed finding", d.ID)
		}
		report.Findings = append(report.Findings, lint.Finding{
			Rule:     f.Rule,
			Severity: sev,
			Skill:    f.Skill,
			Path:     f.Path,
			Line:     f.Line,
			Message:  f.Message,
		})
	}
	lint.SortFindings(report.Findings)
	return report, nil
}
