package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/install"
	"github.com/jingkaihe/skillkit/pkg/presenter"
)

// RemoveConfig holds configuration for the remove command
type RemoveConfig struct {
	Global bool
	Yes    bool
}

// NewRemoveConfig creates a new RemoveConfig with default values
func NewRemoveConfig() *RemoveConfig {
	return &RemoveConfig{}
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>...",
	Aliases: []string{"rm"},
	Short:   "Remove installed skills",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getRemoveConfigFromFlags(cmd)

		remover, err := install.NewRemover(config.Global)
		if err != nil {
			fail(ctx, err, "Failed to create remover")
		}

		failed := false
		for _, name := range args {
			if !config.Yes && !confirm(fmt.Sprintf("Remove skill '%s'?", name)) {
				presenter.Info(fmt.Sprintf("Skipped '%s'", name))
				continue
			}
			if err := remover.Remove(name); err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to remove skill '%s'", name))
				failed = true
				continue
			}
			presenter.Success(fmt.Sprintf("Removed skill '%s'", name))
		}
		if failed {
			exit(ctx, 1)
		}
	},
}

func init() {
	defaults := NewRemoveConfig()
	removeCmd.Flags().BoolP("global", "g", defaults.Global, "Remove from ~/.skillkit/skills instead of ./.skillkit/skills")
	removeCmd.Flags().BoolP("yes", "y", defaults.Yes, "Do not ask for confirmation")
	rootCmd.AddCommand(removeCmd)
}

func getRemoveConfigFromFlags(cmd *cobra.Command) *RemoveConfig {
	config := NewRemoveConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if yes, err := cmd.Flags().GetBool("yes"); err == nil {
		config.Yes = yes
	}
	return config
}

func confirm(question string) bool {
	switch strings.ToLower(presenter.Prompt(question, "y", "N")) {
	case "y", "yes":
		return true
	}
	return false
}
