package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/evals"
	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/report"
)

var evalsCmd = &cobra.Command{
	Use:   "evals",
	Short: "Work with eval prompt lists",
	Long:  `Validate the eval prompt lists skills ship under evals/, or print their JSON schema.`,
}

var evalsValidateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate eval prompt lists",
	Long: `Load every evals/*.json and evals/*.yaml file of the skills under the given
directories and check them against the eval schema: prompts present, assertions
non-empty, unique case IDs and bundled input files that exist inside the skill.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		linter, err := lint.NewLinter(
			lint.WithRules(&lint.EvalsValidRule{}),
			lint.WithConcurrency(cfg.Lint.Concurrency),
		)
		if err != nil {
			fail(ctx, err, "Failed to create linter")
		}

		rep, err := linter.LintPaths(ctx, rootsFor(args), cfg.ScanOptions())
		if err != nil {
			fail(ctx, err, "Eval validation failed")
		}
		if err := report.Write(os.Stdout, rep, outputFormat(ctx)); err != nil {
			fail(ctx, err, "Failed to write report")
		}
		if rep.Failed(lint.SeverityError) {
			exit(ctx, 1)
		}
	},
}

var evalsSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the eval file JSON schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(evals.Schema()); err != nil {
			fail(cmd.Context(), err, "Failed to encode schema")
		}
	},
}

func init() {
	evalsCmd.AddCommand(withTracing(evalsValidateCmd))
	evalsCmd.AddCommand(evalsSchemaCmd)
	rootCmd.AddCommand(evalsCmd)
}
