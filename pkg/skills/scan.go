package skills

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/logger"
)

// LoadError records a SKILL.md that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadErrors extracts the *LoadError values aggregated in err.
func LoadErrors(err error) []*LoadError {
	if err == nil {
		return nil
	}

	var all []error
	var merr *multierror.Error
	if errors.As(err, &merr) {
		all = merr.Errors
	} else {
		all = []error{err}
	}

	var out []*LoadError
	for _, e := range all {
		var le *LoadError
		if errors.As(e, &le) {
			out = append(out, le)
		}
	}
	return out
}

var archiveDirNames = map[string]bool{
	"archive":  true,
	"archived": true,
	"drafts":   true,
}

// isArchiveDir reports whether a directory holds archived drafts.
func isArchiveDir(name string) bool {
	return archiveDirNames[strings.ToLower(name)] || strings.HasPrefix(name, "_")
}

var skippedDirNames = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// ScanOptions controls a recursive scan.
type ScanOptions struct {
	IncludeArchived bool
	Ignore          []string
}

// Skips reports whether a scan prunes the directory at rel, a slash path
// relative to the scan root.
func (o ScanOptions) Skips(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	parts := strings.Split(rel, "/")
	for i, name := range parts {
		if skippedDirNames[name] || strings.HasPrefix(name, ".") {
			return true
		}
		if !o.IncludeArchived && isArchiveDir(name) {
			return true
		}
		if matchesAny(o.Ignore, strings.Join(parts[:i+1], "/")) {
			return true
		}
	}
	return false
}

// Scan walks root recursively and loads every directory containing a
// SKILL.md, at any depth. root may itself be a skill directory. Skills are
// returned sorted by path; load failures are aggregated as *LoadError.
func Scan(root string, opts ScanOptions) ([]*Skill, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}
	for _, p := range opts.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid ignore pattern %q", p)
		}
	}

	var found []*Skill
	var result *multierror.Error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// One unreadable subtree should not hide the skills beside it.
			logger.G(context.Background()).WithField("path", path).WithError(err).Warn("skipping unreadable path")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		archived := false
		if rel != "." {
			name := d.Name()
			if skippedDirNames[name] || (strings.HasPrefix(name, ".") && name != ".") {
				return filepath.SkipDir
			}
			if matchesAny(opts.Ignore, rel) {
				return filepath.SkipDir
			}
			archived = underArchive(rel)
			if archived && !opts.IncludeArchived {
				return filepath.SkipDir
			}
		}

		if _, err := os.Stat(filepath.Join(path, SkillFileName)); err != nil {
			return nil
		}

		skill, err := loadSkillDir(path, root)
		if err != nil {
			result = multierror.Append(result, &LoadError{Path: filepath.Join(path, SkillFileName), Err: err})
			return nil
		}
		skill.Archived = archived
		found = append(found, skill)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrapf(walkErr, "failed to scan %s", root)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, result.ErrorOrNil()
}

// ScanAll scans several roots, concatenating results and load errors.
func ScanAll(roots []string, opts ScanOptions) ([]*Skill, error) {
	var all []*Skill
	var result *multierror.Error

	for _, root := range roots {
		found, err := Scan(root, opts)
		all = append(all, found...)
		if err != nil {
			if LoadErrors(err) == nil {
				return nil, err
			}
			result = multierror.Append(result, err)
		}
	}
	return all, result.ErrorOrNil()
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func underArchive(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if isArchiveDir(part) {
			return true
		}
	}
	return false
}

// loadSkillDir loads dir/SKILL.md and inventories the bundled files.
func loadSkillDir(dir, root string) (*Skill, error) {
	skill, err := LoadSkill(filepath.Join(dir, SkillFileName))
	if err != nil {
		return nil, err
	}

	skill.Directory = dir
	skill.Root = root

	if skill.References, err = listFiles(dir, ReferencesDir, nil); err != nil {
		return nil, err
	}
	if skill.EvalFiles, err = listFiles(dir, EvalsDir, isEvalFile); err != nil {
		return nil, err
	}
	return skill, nil
}

// isEvalFile accepts JSON and YAML files directly under evals/; nested
// directories hold eval inputs, not prompt lists.
func isEvalFile(rel string) bool {
	if strings.Count(rel, "/") != 1 {
		return false
	}
	switch strings.ToLower(path.Ext(rel)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// listFiles returns the files below dir/sub as slash paths relative to dir.
func listFiles(dir, sub string, keep func(string) bool) ([]string, error) {
	base := filepath.Join(dir, sub)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if keep != nil && !keep(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", base)
	}

	sort.Strings(files)
	return files, nil
}
