package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

// ShowConfig holds configuration for the show command
type ShowConfig struct {
	Raw   bool
	Width int
}

// NewShowConfig creates a new ShowConfig with default values
func NewShowConfig() *ShowConfig {
	return &ShowConfig{Width: 80}
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill",
	Long: `Show a skill's metadata and render its SKILL.md body. The skill is looked up
under the configured roots first and then in the skill host search directories.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getShowConfigFromFlags(cmd)

		skill, err := findSkill(args[0])
		if err != nil {
			fail(ctx, err, "Failed to find skill")
		}

		if config.Raw {
			content, err := os.ReadFile(skill.Path)
			if err != nil {
				fail(ctx, err, "Failed to read skill")
			}
			os.Stdout.Write(content)
			return
		}

		if outputFormat(ctx) == report.FormatJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(skill); err != nil {
				fail(ctx, err, "Failed to encode skill")
			}
			return
		}

		showSkill(ctx, skill, config)
	},
}

func init() {
	defaults := NewShowConfig()
	showCmd.Flags().Bool("raw", defaults.Raw, "Print SKILL.md verbatim")
	showCmd.Flags().Int("width", defaults.Width, "Word wrap width of the rendered body")
	rootCmd.AddCommand(showCmd)
}

func getShowConfigFromFlags(cmd *cobra.Command) *ShowConfig {
	config := NewShowConfig()
	if raw, err := cmd.Flags().GetBool("raw"); err == nil {
		config.Raw = raw
	}
	if width, err := cmd.Flags().GetInt("width"); err == nil && width > 0 {
		config.Width = width
	}
	return config
}

// findSkill resolves name against the configured roots, then the default
// discovery directories.
func findSkill(name string) (*skills.Skill, error) {
	found, _ := skills.ScanAll(cfg.Roots, cfg.ScanOptions())
	for _, s := range found {
		if lint.SkillLabel(s) == name {
			return s, nil
		}
	}

	discovery, err := skills.NewDiscovery()
	if err != nil {
		return nil, err
	}
	skill, err := discovery.GetSkill(name)
	if err != nil {
		return nil, errors.Wrapf(err, "skill %q not found", name)
	}
	return skill, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Faint(true).Width(13)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func showSkill(ctx context.Context, skill *skills.Skill, config *ShowConfig) {
	terminal := isatty.IsTerminal(os.Stdout.Fd())

	rows := [][2]string{
		{"Description", skill.Description},
		{"Directory", skill.Directory},
	}
	if skill.Frontmatter.License != "" {
		rows = append(rows, [2]string{"License", skill.Frontmatter.License})
	}
	if len(skill.Frontmatter.AllowedTools) > 0 {
		rows = append(rows, [2]string{"Tools", strings.Join(skill.Frontmatter.AllowedTools, ", ")})
	}
	if len(skill.References) > 0 {
		rows = append(rows, [2]string{"References", strings.Join(skill.References, ", ")})
	}
	if len(skill.EvalFiles) > 0 {
		rows = append(rows, [2]string{"Evals", strings.Join(skill.EvalFiles, ", ")})
	}

	if terminal {
		valueStyle := lipgloss.NewStyle().Width(max(config.Width-17, 20))
		lines := []string{titleStyle.Render(lint.SkillLabel(skill))}
		for _, row := range rows {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
		}
		fmt.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	} else {
		presenter.Section(lint.SkillLabel(skill))
		for _, row := range rows {
			fmt.Printf("%-13s%s\n", row[0]+":", row[1])
		}
	}
	fmt.Println()

	body := strings.TrimSpace(skill.Content)
	if body == "" {
		return
	}
	if !terminal {
		fmt.Println(body)
		return
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(config.Width),
	)
	if err != nil {
		fail(ctx, err, "Failed to create markdown renderer")
	}
	rendered, err := renderer.Render(body)
	if err != nil {
		fail(ctx, err, "Failed to render skill")
	}
	fmt.Print(rendered)
}
