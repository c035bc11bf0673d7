package lint

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// Rule checks one skill at a time.
type Rule interface {
	ID() string
	Description() string
	DefaultSeverity() Severity
	Check(ctx context.Context, skill *skills.Skill) []Finding
}

// SetRule checks properties that span all skills of a run, such as name
// uniqueness. Its per-skill Check is not called.
type SetRule interface {
	Rule
	CheckAll(ctx context.Context, all []*skills.Skill) []Finding
}

// DefaultRules returns a fresh instance of every built-in rule.
func DefaultRules() []Rule {
	return []Rule{
		&FrontmatterPresentRule{},
		&NameRequiredRule{},
		&DescriptionRequiredRule{},
		&NameFormatRule{},
		&NameMatchesDirectoryRule{},
		&DescriptionLengthRule{},
		&UnknownFrontmatterKeyRule{},
		&BodyPresentRule{},
		&ReferenceExistsRule{},
		&ReferenceOrphanedRule{},
		&EvalsValidRule{},
		&UniqueNameRule{},
	}
}

// Rules returns the built-in rules sorted by ID.
func Rules() []Rule {
	rules := DefaultRules()
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID() < rules[j].ID() })
	return rules
}

// LookupRule returns the built-in rule with the given ID.
func LookupRule(id string) (Rule, bool) {
	for _, r := range DefaultRules() {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// SkillLabel names a skill in findings; skills without a usable name are
// labelled by their directory.
func SkillLabel(s *skills.Skill) string {
	if s.Name != "" {
		return s.Name
	}
	if s.Directory != "" {
		return filepath.Base(s.Directory)
	}
	return filepath.Base(filepath.Dir(s.Path))
}

// skillDir is the directory holding SKILL.md.
func skillDir(s *skills.Skill) string {
	if s.Directory != "" {
		return s.Directory
	}
	return filepath.Dir(s.Path)
}

// declaredName is the name as written in the frontmatter, without any
// plugin prefix added during discovery.
func declaredName(s *skills.Skill) string {
	return strings.TrimSpace(s.Frontmatter.Name)
}

func newFinding(r Rule, s *skills.Skill, line int, format string, args ...any) Finding {
	return Finding{
		Rule:     r.ID(),
		Severity: r.DefaultSeverity(),
		Skill:    SkillLabel(s),
		Path:     s.Path,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	}
}
