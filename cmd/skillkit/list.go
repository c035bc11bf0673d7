package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/install"
	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

// ListConfig holds configuration for the list command
type ListConfig struct {
	Installed bool
	Only      []string
}

// NewListConfig creates a new ListConfig with default values
func NewListConfig() *ListConfig {
	return &ListConfig{}
}

type listedSkill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Directory   string `json:"directory"`
	Source      string `json:"source,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list [path...]",
	Short: "List skills",
	Long: `List the skills found under the given directories (or the configured roots).
With --installed, list the skills a skill host would load instead: ./.skillkit/skills,
~/.skillkit/skills, ./.claude/skills, ~/.claude/skills and installed plugin trees.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getListConfigFromFlags(cmd)

		var listed []listedSkill
		if config.Installed {
			listed = listInstalled(ctx, config)
		} else {
			listed = listScanned(ctx, rootsFor(args), config)
		}

		if outputFormat(ctx) == report.FormatJSON {
			if listed == nil {
				listed = []listedSkill{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(listed); err != nil {
				fail(ctx, err, "Failed to encode skills")
			}
			return
		}

		if len(listed) == 0 {
			presenter.Info("No skills found")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDIRECTORY\tDESCRIPTION")
		fmt.Fprintln(tw, "----\t---------\t-----------")
		for _, s := range listed {
			name := s.Name
			if s.Archived {
				name += " (archived)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, s.Directory, truncate(s.Description, 60))
		}
		tw.Flush()
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().Bool("installed", defaults.Installed, "List skills from the skill host search directories")
	listCmd.Flags().StringSlice("only", defaults.Only, "Only list these skill names")
	rootCmd.AddCommand(listCmd)
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if installed, err := cmd.Flags().GetBool("installed"); err == nil {
		config.Installed = installed
	}
	if only, err := cmd.Flags().GetStringSlice("only"); err == nil {
		config.Only = only
	}
	return config
}

func listScanned(ctx context.Context, roots []string, config *ListConfig) []listedSkill {
	found, err := skills.ScanAll(roots, cfg.ScanOptions())
	if err != nil {
		loadErrs := skills.LoadErrors(err)
		if loadErrs == nil {
			fail(ctx, err, "Failed to scan skills")
		}
		for _, le := range loadErrs {
			presenter.Warning(le.Error())
		}
	}

	allowed := make(map[string]bool, len(config.Only))
	for _, name := range config.Only {
		allowed[name] = true
	}

	var out []listedSkill
	for _, s := range found {
		name := lint.SkillLabel(s)
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		out = append(out, listedSkill{
			Name:        name,
			Description: s.Description,
			Directory:   s.Directory,
			Archived:    s.Archived,
		})
	}
	return out
}

func listInstalled(ctx context.Context, config *ListConfig) []listedSkill {
	found, loadErrs, err := skills.Installed(ctx, skills.InstalledOptions{
		IncludeArchived: cfg.IncludeArchived,
		Ignore:          cfg.Ignore,
		Allowed:         config.Only,
	})
	if err != nil {
		fail(ctx, err, "Failed to discover installed skills")
	}
	for _, le := range loadErrs {
		presenter.Warning(le.Error())
	}

	sources := installedSources()
	var out []listedSkill
	for _, s := range skills.SortedSkills(found) {
		out = append(out, listedSkill{
			Name:        s.Name,
			Description: s.Description,
			Directory:   s.Directory,
			Source:      sources[absPath(s.Directory)],
		})
	}
	return out
}

// installedSources maps installed skill directories to the source recorded
// in their lock manifest.
func installedSources() map[string]string {
	sources := make(map[string]string)
	for _, global := range []bool{false, true} {
		installer, err := install.NewInstaller(install.WithGlobal(global))
		if err != nil {
			continue
		}
		remover := install.NewRemoverAt(filepath.Dir(installer.SkillsDir()))
		installed, err := remover.List()
		if err != nil {
			presenter.Warning("Failed to read install manifest: " + err.Error())
			continue
		}
		for _, s := range installed {
			if s.Entry == nil {
				continue
			}
			source := s.Entry.Source
			if s.Entry.Ref != "" {
				source += "@" + s.Entry.Ref
			}
			sources[absPath(filepath.Join(installer.SkillsDir(), s.Name))] = source
		}
	}
	return sources
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
