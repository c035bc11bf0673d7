package lint

import (
	"context"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// UniqueNameRule reports skills sharing a name. The first skill in run order
// keeps the name; every later one is flagged.
type UniqueNameRule struct{}

// ID implements Rule
func (r *UniqueNameRule) ID() string { return "unique-name" }

// Description implements Rule
func (r *UniqueNameRule) Description() string { return "no two skills share a name" }

// DefaultSeverity implements Rule
func (r *UniqueNameRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *UniqueNameRule) Check(context.Context, *skills.Skill) []Finding { return nil }

// CheckAll implements SetRule
func (r *UniqueNameRule) CheckAll(_ context.Context, all []*skills.Skill) []Finding {
	first := make(map[string]*skills.Skill)

	var findings []Finding
	for _, s := range all {
		if s.Name == "" {
			continue
		}
		if owner, dup := first[s.Name]; dup {
			findings = append(findings, newFinding(r, s, s.Line("name"),
				"name %q is already used by %s", s.Name, owner.Path))
			continue
		}
		first[s.Name] = s
	}
	return findings
}
