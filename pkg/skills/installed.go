package skills

import (
	"context"

	"github.com/jingkaihe/skillkit/pkg/logger"
)

// InstalledOptions selects the skills a skill host would load.
type InstalledOptions struct {
	IncludeArchived bool
	Ignore          []string
	// Allowed restricts the result to these names when non-empty.
	Allowed []string
}

// Installed discovers skills in the default search directories. Skills that
// fail to load are logged and returned as *LoadError values alongside the
// skills that did load.
func Installed(ctx context.Context, opts InstalledOptions) (map[string]*Skill, []*LoadError, error) {
	discovery, err := NewDiscovery(
		WithDefaultDirs(),
		WithArchived(opts.IncludeArchived),
		WithIgnore(opts.Ignore...),
	)
	if err != nil {
		return nil, nil, err
	}

	found, err := discovery.DiscoverSkills()
	loadErrs := LoadErrors(err)
	for _, le := range loadErrs {
		logger.G(ctx).WithField("path", le.Path).WithError(le.Err).Debug("failed to load skill")
	}

	if len(opts.Allowed) > 0 {
		found = FilterByAllowlist(found, opts.Allowed)
	}
	return found, loadErrs, nil
}
