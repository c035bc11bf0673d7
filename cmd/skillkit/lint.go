package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/report"
)

var lintCmd = &cobra.Command{
	Use:   "lint [path...]",
	Short: "Lint skills",
	Long: `Scan the given directories (or the configured roots) for SKILL.md files at any
depth and check every skill: frontmatter, referenced files, bundled references and eval
prompt lists. Exits with status 1 when a finding reaches --fail-on.

Examples:
  skillkit lint
  skillkit lint skills/ --format github
  skillkit lint --disable 'reference-*' --severity name-matches-directory=error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		format := outputFormat(ctx)
		linter := newLinter(ctx)

		rep, err := linter.LintPaths(ctx, rootsFor(args), cfg.ScanOptions())
		if err != nil {
			fail(ctx, err, "Lint failed")
		}

		if err := report.Write(os.Stdout, rep, format); err != nil {
			fail(ctx, err, "Failed to write report")
		}
		recordRun(ctx, rep)

		logger.G(ctx).WithField("run_id", rep.RunID).WithField("fail_on", cfg.FailOn().String()).Debug("lint finished")
		if rep.Failed(cfg.FailOn()) {
			exit(ctx, 1)
		}
	},
}

func init() {
	flags := lintCmd.Flags()
	flags.String("fail-on", "error", "Lowest severity that fails the run (error, warning or info)")
	flags.StringSlice("disable", nil, "Rule IDs or globs to disable (repeatable)")
	flags.StringToString("severity", nil, "Severity overrides as rule=severity (rule may be a glob)")
	flags.Int("concurrency", 0, "Skills checked in parallel (0 means one per CPU)")
	flags.Bool("history", false, "Record the run in the lint history database")

	viper.BindPFlag("lint.fail_on", flags.Lookup("fail-on"))
	viper.BindPFlag("lint.disabled", flags.Lookup("disable"))
	viper.BindPFlag("lint.severity", flags.Lookup("severity"))
	viper.BindPFlag("lint.concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("history.enabled", flags.Lookup("history"))

	rootCmd.AddCommand(withTracing(lintCmd))
}
