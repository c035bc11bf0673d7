package lint

import (
	"context"
	"path/filepath"

	"github.com/jingkaihe/skillkit/pkg/evals"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
)

// EvalsValidRule loads and validates every eval prompt list of a skill.
type EvalsValidRule struct{}

// ID implements Rule
func (r *EvalsValidRule) ID() string { return "evals-valid" }

// Description implements Rule
func (r *EvalsValidRule) Description() string {
	return "eval prompt lists parse and every prompt has assertions"
}

// DefaultSeverity implements Rule
func (r *EvalsValidRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *EvalsValidRule) Check(ctx context.Context, s *skills.Skill) []Finding {
	dir := skillDir(s)

	var findings []Finding
	for _, rel := range s.EvalFiles {
		if ctx.Err() != nil {
			return findings
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		at := func(line int, format string, args ...any) {
			f := newFinding(r, s, line, format, args...)
			f.Path = path
			findings = append(findings, f)
		}

		suite, doc, err := evals.LoadFile(path)
		if err != nil {
			var se *evals.SyntaxError
			if errors.As(err, &se) {
				at(se.Line, "%s", se.Msg)
			} else {
				at(0, "%s", err.Error())
			}
			continue
		}

		problems, err := evals.ValidateSchema(doc)
		if err != nil {
			at(0, "%s", err.Error())
			continue
		}
		if len(problems) == 0 {
			problems = evals.Validate(suite, dir, declaredName(s))
		}
		for _, p := range problems {
			at(0, "%s", p.String())
		}
	}
	return findings
}
