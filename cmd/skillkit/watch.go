package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
	"github.com/jingkaihe/skillkit/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Re-lint skills as they change",
	Long: `Lint the given directories (or the configured roots), then watch them and
re-lint whenever a file changes. Edits inside a skill re-lint that skill only;
adding, removing or renaming a skill re-lints everything. Stop with Ctrl+C.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		format := outputFormat(ctx)

		w, err := watch.New(newLinter(ctx), rootsFor(args),
			watch.WithDebounce(cfg.Watch.Debounce),
			watch.WithScanOptions(cfg.ScanOptions()),
			watch.WithHandler(func(ctx context.Context, res watch.Result) {
				printWatchResult(ctx, res, format)
			}),
		)
		if err != nil {
			fail(ctx, err, "Failed to create watcher")
		}

		presenter.Info(fmt.Sprintf("Watching %s (Ctrl+C to stop)", strings.Join(rootsFor(args), ", ")))
		if err := w.Run(ctx); err != nil {
			fail(ctx, err, "Watch failed")
		}
	},
}

func init() {
	flags := watchCmd.Flags()
	flags.Duration("debounce", watch.DefaultDebounce, "Quiet period before re-linting")
	viper.BindPFlag("watch.debounce", flags.Lookup("debounce"))
	rootCmd.AddCommand(watchCmd)
}

func printWatchResult(ctx context.Context, res watch.Result, format report.Format) {
	switch {
	case res.Full && len(res.Paths) == 0:
		presenter.Section("Initial lint")
	case res.Full:
		presenter.Section("Re-linting all skills")
	default:
		presenter.Section("Re-linting " + res.SkillDir)
	}

	if res.Err != nil {
		presenter.Error(res.Err, "Lint failed")
		return
	}
	if err := report.Write(os.Stdout, res.Report, format); err != nil {
		presenter.Error(err, "Failed to write report")
	}
	recordRun(ctx, res.Report)
	presenter.Separator()
}
