package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/report"
)

type ruleInfo struct {
	ID              string `json:"id"`
	Severity        string `json:"severity"`
	DefaultSeverity string `json:"default_severity"`
	Enabled         bool   `json:"enabled"`
	Description     string `json:"description"`
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List lint rules",
	Long:  `List every lint rule with its effective severity after configuration overrides.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		linter := newLinter(ctx)

		var infos []ruleInfo
		for _, r := range lint.Rules() {
			infos = append(infos, ruleInfo{
				ID:              r.ID(),
				Severity:        linter.Severity(r).String(),
				DefaultSeverity: r.DefaultSeverity().String(),
				Enabled:         linter.Enabled(r.ID()),
				Description:     r.Description(),
			})
		}

		if outputFormat(ctx) == report.FormatJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(infos); err != nil {
				fail(ctx, err, "Failed to encode rules")
			}
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tSEVERITY\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t--------\t-----------")
		for _, info := range infos {
			severity := info.Severity
			if !info.Enabled {
				severity = "off"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.ID, severity, info.Description)
		}
		tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
