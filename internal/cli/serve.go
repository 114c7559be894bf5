package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/internal/server"
	"github.com/matzehuels/routegraph/pkg/config"
	"github.com/matzehuels/routegraph/pkg/observability/prom"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing API over HTTP",
		Long: `Serve starts the HTTP API: orders are imported with POST
/orders/{order}/import and their routings queried under /orders/{order}/routings.
Prometheus metrics are exposed at /metrics.

The log level follows the config file while the server runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Server
			if addr != "" {
				cfg.Addr = addr
			}

			stop := c.watchConfig()
			defer stop()

			prom.New(prometheus.DefaultRegisterer).Register()

			runner, closeStore, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			c.Logger.Info("Serving", "addr", cfg.Addr, "store", c.Config.Store.Backend)
			return server.New(runner, c.Logger).ListenAndServe(ctx, cfg.Addr, cfg.ReadTimeout, cfg.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

// watchConfig applies log level changes of the config file until the
// returned function is called. A missing config file is not watched.
func (c *CLI) watchConfig() func() {
	loader, err := config.NewLoader(c.configPath)
	if err != nil {
		c.Logger.Warn("config not watched", "err", err)
		return func() {}
	}
	loader.OnChange(func(cfg *config.Config) {
		level, err := cfg.LogLevel()
		if err != nil {
			c.Logger.Warn("ignoring log level", "err", err)
			return
		}
		c.SetLogLevel(level)
		c.Logger.Info("Config reloaded", "log_level", level)
	})
	loader.OnError(func(err error) {
		c.Logger.Warn("config reload failed", "err", err)
	})
	stop, err := loader.Watch()
	if err != nil {
		c.Logger.Debug("config not watched", "err", err)
		return func() {}
	}
	return stop
}
