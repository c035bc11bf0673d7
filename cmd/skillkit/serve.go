package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/catalog"
	"github.com/jingkaihe/skillkit/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve [path...]",
	Short: "Serve the skill catalog over HTTP",
	Long: `Start a read-only JSON API over the skills under the given directories (or the
configured roots):

  GET /api/skills                    list skills (?q= filters by name or description)
  GET /api/skills/{name}             skill metadata, body and bundled files
  GET /api/skills/{name}/files/{path} a bundled file
  GET /api/lint                      a fresh lint report (?skill= filters)
  GET /healthz                       liveness

The server is available at http://localhost:8080 by default.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config := &catalog.ServerConfig{
			Host:  cfg.Serve.Host,
			Port:  cfg.Serve.Port,
			Roots: rootsFor(args),
			Scan:  cfg.ScanOptions(),
		}
		server, err := catalog.NewServer(config, newLinter(ctx))
		if err != nil {
			fail(ctx, err, "Invalid server configuration")
		}

		if err := server.Start(ctx); err != nil {
			fail(ctx, err, "Catalog server failed")
		}
		logger.G(ctx).Info("catalog server stopped")
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "localhost", "Host to bind the catalog server to")
	flags.Int("port", 8080, "Port to bind the catalog server to")
	viper.BindPFlag("serve.host", flags.Lookup("host"))
	viper.BindPFlag("serve.port", flags.Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
