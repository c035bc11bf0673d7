package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/config"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/presenter"
)

var (
	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	shutdownTracing = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "skillkit",
	Short: "Lint, validate and manage agent skills",
	Long: `skillkit works with repositories of agent skills: directories holding a SKILL.md
with name and description frontmatter, optional references/ playbooks and evals/
prompt lists. It lints skills, validates eval prompt lists and covers the rest of the
authoring workflow: scaffolding, formatting, installing, watching and serving.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Init(viper.GetViper()); err != nil {
			return err
		}
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		applyColor(cfg.Output.Color)
		if quiet, err := cmd.Flags().GetBool("quiet"); err == nil {
			presenter.SetQuiet(quiet)
		}

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialise tracing")
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		flushTracing(cmd.Context())
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func applyColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

func flushTracing(ctx context.Context) {
	if err := shutdownTracing(ctx); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to flush traces")
	}
}

// exit flushes traces and terminates with code.
func exit(ctx context.Context, code int) {
	flushTracing(ctx)
	os.Exit(code)
}

// fail reports err and exits with status 1.
func fail(ctx context.Context, err error, msg string) {
	presenter.Error(err, msg)
	exit(ctx, 1)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.StringP("format", "f", "text", "Output format (text, json or github)")
	flags.String("color", "auto", "Color output (auto, always or never)")
	flags.BoolP("quiet", "q", false, "Only print errors and findings")
	flags.StringSlice("root", nil, "Skill roots used when no paths are given (repeatable)")
	flags.Bool("include-archived", false, "Include archived drafts (archive/, drafts/, _*)")
	flags.StringSlice("ignore", nil, "Doublestar globs of directories to skip, relative to each root")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("output.format", flags.Lookup("format"))
	viper.BindPFlag("output.color", flags.Lookup("color"))
	viper.BindPFlag("roots", flags.Lookup("root"))
	viper.BindPFlag("include_archived", flags.Lookup("include-archived"))
	viper.BindPFlag("ignore", flags.Lookup("ignore"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		stop()
		os.Exit(1)
	}
}
