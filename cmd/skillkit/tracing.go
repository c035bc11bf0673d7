package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/jingkaihe/skillkit/pkg/version"
)

// initTracing installs the tracer provider described by the tracing section.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	tc := cfg.Tracing
	if tc.ServiceName == "" {
		tc.ServiceName = "skillkit"
	}
	tc.ServiceVersion = version.Get().Version
	return telemetry.InitTracer(ctx, tc)
}

var tracer = telemetry.Tracer("skillkit.cli")

// withTracing wraps the Run function of cmd in a cli.command span.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRun := cmd.Run

	cmd.Run = func(cmd *cobra.Command, args []string) {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
		})

		ctx, span := tracer.Start(cmd.Context(), "cli.command", trace.WithAttributes(attrs...))
		defer span.End()

		cmd.SetContext(ctx)
		originalRun(cmd, args)
		span.SetStatus(codes.Ok, "")
	}

	return cmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	flags.String("tracing-endpoint", "", "OTLP/HTTP endpoint, e.g. http://localhost:4318")
	flags.String("tracing-sampler", "always", "Tracing sampler type (always, never, ratio)")
	flags.Float64("tracing-ratio", 1, "Sampling ratio when using the ratio sampler")

	viper.BindPFlag("tracing.enabled", flags.Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.endpoint", flags.Lookup("tracing-endpoint"))
	viper.BindPFlag("tracing.sampler", flags.Lookup("tracing-sampler"))
	viper.BindPFlag("tracing.ratio", flags.Lookup("tracing-ratio"))
}
