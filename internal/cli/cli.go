// Package cli implements the routegraph command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/buildinfo"
	"github.com/matzehuels/routegraph/pkg/config"
	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/pipeline"
	"github.com/matzehuels/routegraph/pkg/routing"
	"github.com/matzehuels/routegraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "routegraph"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	// Flag values; they override the config file.
	configPath string
	backend    string
	storePath  string
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Routegraph reconciles and inspects production routings",
		Long: `Routegraph imports manufacturing orders and their alternate routings from ERP
documents, reconciles them against the stored state without losing committed
schedule data, and answers the graph queries a scheduler needs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $ROUTEGRAPH_CONFIG or ~/.config/routegraph/config.toml)")
	root.PersistentFlags().StringVar(&c.backend, "store", "", "snapshot store backend: file, null, redis, postgres or mongo")
	root.PersistentFlags().StringVar(&c.storePath, "store-path", "", "directory of the file store")

	root.AddCommand(c.importCommand())
	root.AddCommand(c.levelsCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cascadeCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.backend != "" {
		cfg.Store.Backend = c.backend
	}
	if c.storePath != "" {
		cfg.Store.Path = c.storePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner on the configured store. The caller
// closes the store through the returned function.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	s, err := c.Config.Store.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	r := pipeline.NewRunner(s, c.Config.Store.Keyer(), c.Logger)
	r.Backend = c.Config.Store.Backend
	r.TTL = c.Config.Store.TTL
	return r, func() { _ = s.Close() }, nil
}

// openStore opens the configured store without a runner.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	return c.Config.Store.OpenStore(ctx)
}

// =============================================================================
// Document Helpers
// =============================================================================

// loadOrder reads the document at path and builds its order. With stored
// set, the routings are replaced by the stored snapshot of the order.
func (c *CLI) loadOrder(ctx context.Context, path string, stored bool) (*order.Order, error) {
	doc, err := docio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !stored {
		return doc.Build()
	}
	runner, closeStore, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return runner.Load(ctx, doc)
}

// pickRouting returns the routing with the given external id, or the
// default routing when id is empty.
func pickRouting(o *order.Order, id string) (*routing.Routing, error) {
	c := o.Routings()
	if id == "" {
		if r := c.Default(); r != nil {
			return r, nil
		}
		return nil, errNoRoutings(o.ExternalID())
	}
	r, ok := c.Routing(id)
	if !ok {
		return nil, errUnknownRouting(o.ExternalID(), id)
	}
	return r, nil
}

func errNoRoutings(orderID string) error {
	return errors.New(errors.ErrCodeRoutingNotFound, "order %s has no routings", orderID)
}

func errUnknownRouting(orderID, id string) error {
	return errors.Invalid(errors.ErrCodeRoutingNotFound, "routing", id, "order %s has no such routing", orderID)
}
