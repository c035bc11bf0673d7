// Package skills discovers and loads agent skills. A skill is a directory
// containing a SKILL.md file whose YAML frontmatter names and describes it,
// optionally accompanied by a references/ directory of longer playbooks and
// an evals/ directory of eval prompt lists.
package skills

import (
	"regexp"

	"github.com/pkg/errors"
)

const (
	// SkillFileName is the file that marks a directory as a skill.
	SkillFileName = "SKILL.md"
	// ReferencesDir holds playbooks linked from SKILL.md.
	ReferencesDir = "references"
	// EvalsDir holds eval prompt lists.
	EvalsDir = "evals"

	// MaxNameLength is the longest name a skill host accepts.
	MaxNameLength = 64
	// MaxDescriptionLength is the longest description a skill host accepts.
	MaxDescriptionLength = 1024
)

var (
	// ErrMissingFrontmatter is returned when SKILL.md has no frontmatter block.
	ErrMissingFrontmatter = errors.New("missing frontmatter")
	// ErrMissingName is returned when the frontmatter has no name.
	ErrMissingName = errors.New("skill name is required in frontmatter")
	// ErrMissingDescription is returned when the frontmatter has no description.
	ErrMissingDescription = errors.New("skill description is required in frontmatter")
)

// KnownFrontmatterKeys lists the keys skill hosts understand, in canonical order.
var KnownFrontmatterKeys = []string{"name", "description", "license", "compatibility", "allowed-tools", "metadata"}

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Skill represents a loaded skill with its metadata
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Directory   string `json:"directory"`
	Path        string `json:"path"`
	Content     string `json:"-"` // body of SKILL.md without frontmatter

	HasFrontmatter bool           `json:"-"`
	Frontmatter    Frontmatter    `json:"frontmatter"`
	RawFrontmatter map[string]any `json:"-"`
	// KeyLines maps each top-level frontmatter key to its 1-based line in SKILL.md.
	KeyLines map[string]int `json:"-"`

	Links      []Link   `json:"links,omitempty"`
	References []string `json:"references,omitempty"`
	EvalFiles  []string `json:"evalFiles,omitempty"`

	Root     string `json:"root,omitempty"`
	Archived bool   `json:"archived,omitempty"`
}

// Frontmatter is the decoded YAML frontmatter of SKILL.md
type Frontmatter struct {
	Name          string         `mapstructure:"name" json:"name"`
	Description   string         `mapstructure:"description" json:"description"`
	License       string         `mapstructure:"license" json:"license,omitempty"`
	Compatibility string         `mapstructure:"compatibility" json:"compatibility,omitempty"`
	AllowedTools  []string       `mapstructure:"allowed-tools" json:"allowedTools,omitempty"`
	Metadata      map[string]any `mapstructure:"metadata" json:"metadata,omitempty"`
}

// Validate checks the minimum a skill host needs to register the skill.
func (s *Skill) Validate() error {
	if !s.HasFrontmatter {
		return ErrMissingFrontmatter
	}
	if s.Name == "" {
		return ErrMissingName
	}
	if s.Description == "" {
		return ErrMissingDescription
	}
	return nil
}

// Line returns the line of a frontmatter key, or 1 when the key is absent.
func (s *Skill) Line(key string) int {
	if line, ok := s.KeyLines[key]; ok {
		return line
	}
	return 1
}

// ValidateName checks a skill name against the naming convention: lowercase
// letters, digits and single hyphens, at most MaxNameLength characters.
func ValidateName(name string) error {
	if name == "" {
		return ErrMissingName
	}
	if len(name) > MaxNameLength {
		return errors.Errorf("name %q is %d characters, the limit is %d", name, len(name), MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return errors.Errorf("name %q must contain only lowercase letters, digits and single hyphens", name)
	}
	return nil
}
