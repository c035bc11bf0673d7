package skills

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrOutsideSkill is returned when a relative path, once symlinks are
// resolved, leaves the skill directory.
var ErrOutsideSkill = errors.New("path is outside the skill directory")

// ResolveInside joins rel onto the skill directory dir and resolves
// symlinks, refusing paths that leave dir. A path that does not exist yet
// is checked through its deepest existing ancestor and returned unresolved,
// so callers can report it as missing.
func ResolveInside(dir, rel string) (string, error) {
	slash := strings.ReplaceAll(rel, "\\", "/")
	if slash == "" || path.IsAbs(slash) || filepath.IsAbs(rel) {
		return "", errors.Errorf("path %q must be relative to the skill directory", rel)
	}
	clean := path.Clean(slash)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.Wrapf(ErrOutsideSkill, "path %q", rel)
	}

	base, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve skill directory")
	}

	full := filepath.Join(dir, filepath.FromSlash(clean))
	for cur := full; ; cur = filepath.Dir(cur) {
		r, err := filepath.EvalSymlinks(cur)
		if err != nil {
			if filepath.Dir(cur) == cur {
				return full, nil
			}
			continue
		}
		if !within(base, r) {
			return "", errors.Wrapf(ErrOutsideSkill, "path %q", rel)
		}
		if cur == full {
			return r, nil
		}
		return full, nil
	}
}

func within(base, target string) bool {
	r, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}
