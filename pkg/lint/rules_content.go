package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// BodyPresentRule requires instructions after the frontmatter.
type BodyPresentRule struct{}

// ID implements Rule
func (r *BodyPresentRule) ID() string { return "body-present" }

// Description implements Rule
func (r *BodyPresentRule) Description() string {
	return "SKILL.md has instructions after the frontmatter"
}

// DefaultSeverity implements Rule
func (r *BodyPresentRule) DefaultSeverity() Severity { return SeverityWarning }

// Check implements Rule
func (r *BodyPresentRule) Check(_ context.Context, s *skills.Skill) []Finding {
	if strings.TrimSpace(s.Content) != "" {
		return nil
	}
	return []Finding{newFinding(r, s, 0, "SKILL.md has no instructions after the frontmatter")}
}

// ReferenceExistsRule requires every path referenced from SKILL.md to exist
// inside the skill directory.
type ReferenceExistsRule struct{}

// ID implements Rule
func (r *ReferenceExistsRule) ID() string { return "reference-exists" }

// Description implements Rule
func (r *ReferenceExistsRule) Description() string {
	return "every file referenced from SKILL.md exists inside the skill directory"
}

// DefaultSeverity implements Rule
func (r *ReferenceExistsRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *ReferenceExistsRule) Check(ctx context.Context, s *skills.Skill) []Finding {
	dir := skillDir(s)
	checked := make(map[string]bool)

	var findings []Finding
	for _, link := range s.Links {
		if ctx.Err() != nil {
			return findings
		}
		full, err := skills.ResolveInside(dir, link.Path)
		if errors.Is(err, skills.ErrOutsideSkill) {
			findings = append(findings, newFinding(r, s, link.Line,
				"reference %q points outside the skill directory", link.Target))
			continue
		}
		if err != nil {
			full = filepath.Join(dir, filepath.FromSlash(link.Path))
		}

		exists, seen := checked[link.Path]
		if !seen {
			_, err := os.Stat(full)
			exists = err == nil
			checked[link.Path] = exists
		}
		if !exists {
			findings = append(findings, newFinding(r, s, link.Line,
				"referenced file %q does not exist", link.Path))
		}
	}
	return findings
}

// ReferenceOrphanedRule flags playbooks under references/ that SKILL.md
// never mentions.
type ReferenceOrphanedRule struct{}

// ID implements Rule
func (r *ReferenceOrphanedRule) ID() string { return "reference-orphaned" }

// Description implements Rule
func (r *ReferenceOrphanedRule) Description() string {
	return "every file under references/ is mentioned in SKILL.md"
}

// DefaultSeverity implements Rule
func (r *ReferenceOrphanedRule) DefaultSeverity() Severity { return SeverityWarning }

// Check implements Rule
func (r *ReferenceOrphanedRule) Check(_ context.Context, s *skills.Skill) []Finding {
	var findings []Finding
	for _, ref := range s.References {
		if referenced(s, ref) {
			continue
		}
		f := newFinding(r, s, 0, "%s is not referenced from SKILL.md", ref)
		f.Path = filepath.Join(skillDir(s), filepath.FromSlash(ref))
		findings = append(findings, f)
	}
	return findings
}

// referenced reports whether SKILL.md links to file, to a directory
// containing it, or mentions its path in the text.
func referenced(s *skills.Skill, file string) bool {
	for _, link := range s.Links {
		if link.Path == file || strings.HasPrefix(file, strings.TrimSuffix(link.Path, "/")+"/") {
			return true
		}
	}
	return strings.Contains(s.Content, file)
}
