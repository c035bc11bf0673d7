package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/history"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded lint runs",
	Long: `Lint runs are recorded in a SQLite database when history is enabled
(--history on lint, or history.enabled in the config file). The database lives
at ~/.skillkit/storage.db unless history.db_path or SKILLKIT_BASE_PATH says otherwise.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded lint runs, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		store := openHistory(ctx)
		defer store.Close()

		runs, err := store.List(ctx, limit)
		if err != nil {
			fail(ctx, err, "Failed to list lint runs")
		}

		if outputFormat(ctx) == report.FormatJSON {
			if runs == nil {
				runs = []history.Run{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(runs); err != nil {
				fail(ctx, err, "Failed to encode lint runs")
			}
			return
		}

		if len(runs) == 0 {
			presenter.Info("No lint runs recorded")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSKILLS\tERRORS\tWARNINGS\tINFOS\tROOTS")
		fmt.Fprintln(tw, "--\t-------\t------\t------\t--------\t-----\t-----")
		for _, run := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				shortID(run.ID),
				run.StartedAt.Local().Format(time.DateTime),
				run.Skills, run.Errors, run.Warnings, run.Infos,
				strings.Join(run.Roots, ","))
		}
		tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the report of a recorded lint run",
	Long:  `Show a recorded lint run. Any unique prefix of the run ID is accepted.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store := openHistory(ctx)
		defer store.Close()

		rep, err := store.Get(ctx, args[0])
		if err != nil {
			fail(ctx, err, "Failed to load lint run")
		}
		if err := report.Write(os.Stdout, rep, outputFormat(ctx)); err != nil {
			fail(ctx, err, "Failed to write report")
		}
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete lint runs older than a duration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if !cmd.Flags().Changed("older-than") {
			olderThan = cfg.History.Retention
		}

		store := openHistory(ctx)
		defer store.Close()

		deleted, err := store.Prune(ctx, olderThan)
		if err != nil {
			fail(ctx, err, "Failed to prune lint runs")
		}
		presenter.Success(fmt.Sprintf("Deleted %d lint run(s) older than %s", deleted, olderThan))
	},
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")
	historyPruneCmd.Flags().Duration("older-than", 0, "Age of the runs to delete (defaults to history.retention)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
