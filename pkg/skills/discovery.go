package skills

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Discovery finds skills in a list of search roots. Roots are searched in
// order and the first skill found for a name wins.
type Discovery struct {
	skillDirs       []string
	pluginDirs      []pluginDirConfig
	includeArchived bool
	ignore          []string
}

// pluginDirConfig is a plugin's skills directory and the prefix its skill
// names get, e.g. "acme/skills/".
type pluginDirConfig struct {
	dir    string
	prefix string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs searches project then user directories, skillkit's own
// layout first and the .claude layout second, then installed plugins.
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			filepath.Join(".skillkit", "skills"),
			filepath.Join(homeDir, ".skillkit", "skills"),
			filepath.Join(".claude", "skills"),
			filepath.Join(homeDir, ".claude", "skills"),
		}

		d.pluginDirs = nil
		d.addPluginDirs(filepath.Join(".skillkit", "plugins"))
		d.addPluginDirs(filepath.Join(homeDir, ".skillkit", "plugins"))
		return nil
	}
}

// WithArchived includes archived drafts in recursive scans.
func WithArchived(include bool) Option {
	return func(d *Discovery) error {
		d.includeArchived = include
		return nil
	}
}

// WithIgnore skips skill directories matching any of the doublestar
// patterns, evaluated against the path relative to the search root.
func WithIgnore(patterns ...string) Option {
	return func(d *Discovery) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid ignore pattern %q", p)
			}
		}
		d.ignore = append(d.ignore, patterns...)
		return nil
	}
}

// addPluginDirs registers every <org>/<repo>/skills directory under pluginsDir.
func (d *Discovery) addPluginDirs(pluginsDir string) {
	_ = filepath.Walk(pluginsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillsDir := filepath.Join(path, "skills")
		if _, err := os.Stat(skillsDir); err != nil {
			return nil
		}

		relPath, err := filepath.Rel(pluginsDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		d.pluginDirs = append(d.pluginDirs, pluginDirConfig{
			dir:    skillsDir,
			prefix: filepath.ToSlash(relPath) + "/",
		})
		return filepath.SkipDir
	})
}

// NewDiscovery creates a new skill discovery instance. Without options it
// uses WithDefaultDirs.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Roots returns the standalone search roots followed by plugin skill roots.
func (d *Discovery) Roots() []string {
	roots := append([]string{}, d.skillDirs...)
	for _, p := range d.pluginDirs {
		roots = append(roots, p.dir)
	}
	return roots
}

// DiscoverSkills finds all skills from the configured directories. The map
// is always returned; skills that failed to load are left out and their
// errors aggregated into the returned *multierror.Error.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)
	var result *multierror.Error

	for _, dir := range d.skillDirs {
		result = multierror.Append(result, d.discoverSkillsFromDir(dir, "", skills))
	}
	for _, pluginDir := range d.pluginDirs {
		result = multierror.Append(result, d.discoverSkillsFromDir(pluginDir.dir, pluginDir.prefix, skills))
	}

	return skills, result.ErrorOrNil()
}

func (d *Discovery) discoverSkillsFromDir(dir, prefix string, skills map[string]*Skill) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var result *multierror.Error
	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}
		if d.ignored(entry.Name()) || (isArchiveDir(entry.Name()) && !d.includeArchived) {
			continue
		}

		skillPath := filepath.Join(entryPath, SkillFileName)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}

		skill, err := loadSkillDir(entryPath, dir)
		if err == nil {
			err = skill.Validate()
		}
		if err != nil {
			result = multierror.Append(result, &LoadError{Path: skillPath, Err: err})
			continue
		}

		skillName := prefix + skill.Name
		if _, exists := skills[skillName]; !exists {
			skill.Name = skillName
			skills[skillName] = skill
		}
	}

	return result.ErrorOrNil()
}

func (d *Discovery) ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range d.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, _ := d.DiscoverSkills()

	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return skill, nil
}

// ListSkillNames returns the sorted names of all available skills
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, err
}

// FilterByAllowlist filters skills by an allowlist of names.
// If the allowlist is empty, all skills are returned.
func FilterByAllowlist(skills map[string]*Skill, allowed []string) map[string]*Skill {
	if len(allowed) == 0 {
		return skills
	}

	filtered := make(map[string]*Skill)
	for _, name := range allowed {
		if skill, exists := skills[name]; exists {
			filtered[name] = skill
		}
	}
	return filtered
}

// SortedSkills returns the skills of a discovery map ordered by name.
func SortedSkills(skills map[string]*Skill) []*Skill {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Skill, 0, len(names))
	for _, name := range names {
		out = append(out, skills[name])
	}
	return out
}
