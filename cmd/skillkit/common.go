package main

import (
	"context"

	"github.com/jingkaihe/skillkit/pkg/history"
	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
)

// rootsFor returns the paths given on the command line, or the configured
// roots when there are none.
func rootsFor(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Roots
}

func outputFormat(ctx context.Context) report.Format {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		fail(ctx, err, "Invalid output format")
	}
	return format
}

func newLinter(ctx context.Context) *lint.Linter {
	linter, err := cfg.NewLinter()
	if err != nil {
		fail(ctx, err, "Invalid lint configuration")
	}
	return linter
}

func openHistory(ctx context.Context) *history.Store {
	store, err := history.Open(ctx, cfg.History.DBPath)
	if err != nil {
		fail(ctx, err, "Failed to open lint history")
	}
	return store
}

// recordRun stores a report when history is enabled and prunes runs past
// the retention period. Failures are reported but never fail the command.
func recordRun(ctx context.Context, rep *lint.Report) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.Open(ctx, cfg.History.DBPath)
	if err != nil {
		presenter.Warning("Lint history unavailable: " + err.Error())
		return
	}
	defer store.Close()

	if err := store.Save(ctx, rep); err != nil {
		presenter.Warning("Failed to save lint run: " + err.Error())
		return
	}
	if cfg.History.Retention > 0 {
		if _, err := store.Prune(ctx, cfg.History.Retention); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to prune lint history")
		}
	}
}
