package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skillfmt"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

// FmtConfig holds configuration for the fmt command
type FmtConfig struct {
	Check bool
	Diff  bool
}

// NewFmtConfig creates a new FmtConfig with default values
func NewFmtConfig() *FmtConfig {
	return &FmtConfig{}
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [path...]",
	Short: "Normalise SKILL.md files",
	Long: `Rewrite SKILL.md files with canonical frontmatter key order, trimmed values and
normalised whitespace. With --check nothing is written and the command exits 1
when a file would change.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getFmtConfigFromFlags(cmd)

		paths, err := skillFiles(rootsFor(args))
		if err != nil {
			fail(ctx, err, "Failed to scan skills")
		}

		changed, failed := 0, 0
		for _, path := range paths {
			res, err := skillfmt.File(path, !config.Check)
			if err != nil {
				presenter.Error(err, "")
				failed++
				continue
			}
			if !res.Changed {
				continue
			}
			changed++
			if config.Diff {
				fmt.Print(res.Diff)
			}
			if config.Check {
				fmt.Println(path)
			} else {
				presenter.Success("Formatted " + path)
			}
		}

		if failed > 0 || (config.Check && changed > 0) {
			exit(ctx, 1)
		}
		if changed == 0 && !config.Check {
			presenter.Info(fmt.Sprintf("%d file(s) already formatted", len(paths)))
		}
	},
}

func init() {
	defaults := NewFmtConfig()
	fmtCmd.Flags().Bool("check", defaults.Check, "Report unformatted files without writing them")
	fmtCmd.Flags().Bool("diff", defaults.Diff, "Print a unified diff of each change")
	rootCmd.AddCommand(fmtCmd)
}

func getFmtConfigFromFlags(cmd *cobra.Command) *FmtConfig {
	config := NewFmtConfig()
	if check, err := cmd.Flags().GetBool("check"); err == nil {
		config.Check = check
	}
	if diff, err := cmd.Flags().GetBool("diff"); err == nil {
		config.Diff = diff
	}
	return config
}

// skillFiles returns every SKILL.md under roots, including files whose
// frontmatter did not load.
func skillFiles(roots []string) ([]string, error) {
	found, err := skills.ScanAll(roots, cfg.ScanOptions())
	loadErrs := skills.LoadErrors(err)
	if err != nil && loadErrs == nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, s := range found {
		add(s.Path)
	}
	for _, le := range loadErrs {
		if _, statErr := os.Stat(le.Path); statErr == nil {
			add(le.Path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
