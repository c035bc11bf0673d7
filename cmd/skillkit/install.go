package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/install"
	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/report"
)

// InstallConfig holds configuration for the install command
type InstallConfig struct {
	Global bool
	Force  bool
	Dir    string
}

// NewInstallConfig creates a new InstallConfig with default values
func NewInstallConfig() *InstallConfig {
	return &InstallConfig{}
}

var installCmd = &cobra.Command{
	Use:   "install <source>",
	Short: "Install skills from a directory or GitHub repository",
	Long: `Install every skill found in a local directory or a GitHub repository
(owner/repo[@ref]) into .skillkit/skills, or ~/.skillkit/skills with --global.
Skills are linted first and the install is refused when any has an error,
unless --force is given. Provenance is recorded in skills.lock.json.

Examples:
  skillkit install ./my-skills
  skillkit install acme/skills@v1.2.0 --dir skills/pdf
  skillkit install acme/skills --global`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getInstallConfigFromFlags(cmd)

		src, err := install.ParseSource(args[0])
		if err != nil {
			fail(ctx, err, "Invalid source")
		}
		src.Dir = config.Dir

		installer, err := install.NewInstaller(
			install.WithGlobal(config.Global),
			install.WithForce(config.Force),
			install.WithLinter(newLinter(ctx)),
		)
		if err != nil {
			fail(ctx, err, "Failed to create installer")
		}

		presenter.Info(fmt.Sprintf("Installing skills from %s...", src))
		result, err := installer.Install(ctx, src)
		if err != nil {
			var refused *install.RefusedError
			if errors.As(err, &refused) {
				report.Write(os.Stderr, refused.Report, report.FormatText)
			}
			fail(ctx, err, "Failed to install skills")
		}

		if len(result.Report.Findings) > 0 {
			report.Write(os.Stdout, result.Report, report.FormatText)
		} else {
			presenter.Summary(presenter.Counts{Skills: len(result.Report.Skills)})
		}
		for _, name := range result.Skills {
			presenter.Success(fmt.Sprintf("Installed skill '%s' to %s", name, installer.SkillsDir()))
		}
		presenter.Info(fmt.Sprintf("Successfully installed %d skill(s)", len(result.Skills)))
	},
}

func init() {
	defaults := NewInstallConfig()
	installCmd.Flags().BoolP("global", "g", defaults.Global, "Install to ~/.skillkit/skills instead of ./.skillkit/skills")
	installCmd.Flags().Bool("force", defaults.Force, "Install despite lint errors and overwrite existing skills")
	installCmd.Flags().String("dir", defaults.Dir, "Only install skills below this directory of the source")
	rootCmd.AddCommand(withTracing(installCmd))
}

func getInstallConfigFromFlags(cmd *cobra.Command) *InstallConfig {
	config := NewInstallConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	return config
}
