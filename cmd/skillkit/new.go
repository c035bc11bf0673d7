package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/skills"
)

// NewSkillConfig holds configuration for the new command
type NewSkillConfig struct {
	Description   string
	Dir           string
	WithReference bool
	WithEvals     bool
}

// NewNewSkillConfig creates a new NewSkillConfig with default values
func NewNewSkillConfig() *NewSkillConfig {
	return &NewSkillConfig{Dir: "."}
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a new skill",
	Long: `Create <dir>/<name>/SKILL.md from a template that passes lint, optionally with
a reference playbook under references/ and an eval prompt list under evals/.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getNewSkillConfigFromFlags(cmd)

		description := config.Description
		if description == "" {
			description = fmt.Sprintf("Use when a task needs the %s skill. Replace this with what the skill does and when to use it.", args[0])
		}

		dir, err := skills.Scaffold(config.Dir, skills.ScaffoldOptions{
			Name:          args[0],
			Description:   description,
			WithReference: config.WithReference,
			WithEvals:     config.WithEvals,
		})
		if err != nil {
			fail(ctx, err, "Failed to create skill")
		}

		presenter.Success(fmt.Sprintf("Created skill '%s' in %s", args[0], dir))
	},
}

func init() {
	defaults := NewNewSkillConfig()
	newCmd.Flags().StringP("description", "d", defaults.Description, "Skill description")
	newCmd.Flags().String("dir", defaults.Dir, "Parent directory of the new skill")
	newCmd.Flags().Bool("with-reference", defaults.WithReference, "Add a playbook under references/")
	newCmd.Flags().Bool("with-evals", defaults.WithEvals, "Add evals/evals.json")
	rootCmd.AddCommand(newCmd)
}

func getNewSkillConfigFromFlags(cmd *cobra.Command) *NewSkillConfig {
	config := NewNewSkillConfig()
	if description, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = description
	}
	if dir, err := cmd.Flags().GetString("dir"); err == nil && dir != "" {
		config.Dir = dir
	}
	if withReference, err := cmd.Flags().GetBool("with-reference"); err == nil {
		config.WithReference = withReference
	}
	if withEvals, err := cmd.Flags().GetBool("with-evals"); err == nil {
		config.WithEvals = withEvals
	}
	return config
}
