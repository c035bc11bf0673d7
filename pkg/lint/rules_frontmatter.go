package lint

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// FrontmatterPresentRule requires a YAML frontmatter block in SKILL.md.
type FrontmatterPresentRule struct{}

// ID implements Rule
func (r *FrontmatterPresentRule) ID() string { return "frontmatter-present" }

// Description implements Rule
func (r *FrontmatterPresentRule) Description() string {
	return "SKILL.md starts with a YAML frontmatter block that parses"
}

// DefaultSeverity implements Rule
func (r *FrontmatterPresentRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *FrontmatterPresentRule) Check(_ context.Context, s *skills.Skill) []Finding {
	if s.HasFrontmatter {
		return nil
	}
	return []Finding{newFinding(r, s, 1, "SKILL.md has no frontmatter block")}
}

// NameRequiredRule requires a non-empty name.
type NameRequiredRule struct{}

// ID implements Rule
func (r *NameRequiredRule) ID() string { return "name-required" }

// Description implements Rule
func (r *NameRequiredRule) Description() string { return "frontmatter has a non-empty name" }

// DefaultSeverity implements Rule
func (r *NameRequiredRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *NameRequiredRule) Check(_ context.Context, s *skills.Skill) []Finding {
	if declaredName(s) != "" {
		return nil
	}
	return []Finding{newFinding(r, s, s.Line("name"), "name is missing or empty")}
}

// DescriptionRequiredRule requires a non-empty description.
type DescriptionRequiredRule struct{}

// ID implements Rule
func (r *DescriptionRequiredRule) ID() string { return "description-required" }

// Description implements Rule
func (r *DescriptionRequiredRule) Description() string {
	return "frontmatter has a non-empty description"
}

// DefaultSeverity implements Rule
func (r *DescriptionRequiredRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *DescriptionRequiredRule) Check(_ context.Context, s *skills.Skill) []Finding {
	if strings.TrimSpace(s.Description) != "" {
		return nil
	}
	return []Finding{newFinding(r, s, s.Line("description"), "description is missing or empty")}
}

// NameFormatRule enforces lowercase hyphenated names of bounded length.
type NameFormatRule struct{}

// ID implements Rule
func (r *NameFormatRule) ID() string { return "name-format" }

// Description implements Rule
func (r *NameFormatRule) Description() string {
	return "name uses lowercase letters, digits and single hyphens, at most 64 characters"
}

// DefaultSeverity implements Rule
func (r *NameFormatRule) DefaultSeverity() Severity { return SeverityError }

// Check implements Rule
func (r *NameFormatRule) Check(_ context.Context, s *skills.Skill) []Finding {
	name := declaredName(s)
	if name == "" {
		return nil
	}
	if err := skills.ValidateName(name); err != nil {
		return []Finding{newFinding(r, s, s.Line("name"), "%s", err.Error())}
	}
	return nil
}

// NameMatchesDirectoryRule expects the skill directory to carry the skill name.
type NameMatchesDirectoryRule struct{}

// ID implements Rule
func (r *NameMatchesDirectoryRule) ID() string { return "name-matches-directory" }

// Description implements Rule
func (r *NameMatchesDirectoryRule) Description() string {
	return "name equals the name of the skill directory"
}

// DefaultSeverity implements Rule
func (r *NameMatchesDirectoryRule) DefaultSeverity() Severity { return SeverityWarning }

// Check implements Rule
func (r *NameMatchesDirectoryRule) Check(_ context.Context, s *skills.Skill) []Finding {
	name := declaredName(s)
	dir := filepath.Base(skillDir(s))
	if name == "" || name == dir {
		return nil
	}
	return []Finding{newFinding(r, s, s.Line("name"), "name %q does not match directory %q", name, dir)}
}

// DescriptionLengthRule bounds the description length.
type DescriptionLengthRule struct{}

// ID implements Rule
func (r *DescriptionLengthRule) ID() string { return "description-length" }

// Description implements Rule
func (r *DescriptionLengthRule) Description() string {
	return "description is at most 1024 characters"
}

// DefaultSeverity implements Rule
func (r *DescriptionLengthRule) DefaultSeverity() Severity { return SeverityWarning }

// Check implements Rule
func (r *DescriptionLengthRule) Check(_ context.Context, s *skills.Skill) []Finding {
	n := utf8.RuneCountInString(s.Description)
	if n <= skills.MaxDescriptionLength {
		return nil
	}
	return []Finding{newFinding(r, s, s.Line("description"),
		"description is %d characters, the limit is %d", n, skills.MaxDescriptionLength)}
}

// UnknownFrontmatterKeyRule flags keys skill hosts ignore.
type UnknownFrontmatterKeyRule struct{}

// ID implements Rule
func (r *UnknownFrontmatterKeyRule) ID() string { return "unknown-frontmatter-key" }

// Description implements Rule
func (r *UnknownFrontmatterKeyRule) Description() string {
	return "frontmatter only uses keys skill hosts understand"
}

// DefaultSeverity implements Rule
func (r *UnknownFrontmatterKeyRule) DefaultSeverity() Severity { return SeverityInfo }

// Check implements Rule
func (r *UnknownFrontmatterKeyRule) Check(_ context.Context, s *skills.Skill) []Finding {
	known := make(map[string]bool, len(skills.KnownFrontmatterKeys))
	for _, k := range skills.KnownFrontmatterKeys {
		known[k] = true
	}

	var unknown []string
	for key := range s.RawFrontmatter {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	findings := make([]Finding, 0, len(unknown))
	for _, key := range unknown {
		findings = append(findings, newFinding(r, s, s.Line(key),
			"unknown frontmatter key %q; use metadata for custom fields", key))
	}
	return findings
}
