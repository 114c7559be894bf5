package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/routegraph/pkg/config"
	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/store"
)

// storeCommand creates the store command with its subcommands.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored routing snapshots",
	}

	cmd.AddCommand(c.storeInfoCommand())
	cmd.AddCommand(c.storeDeleteCommand())
	cmd.AddCommand(c.storeClearCommand())

	return cmd
}

func (c *CLI) storeInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Store
			printKeyValue("backend", cfg.Backend)
			if cfg.Prefix != "" {
				printKeyValue("prefix", cfg.Prefix)
			}
			if cfg.TTL > 0 {
				printKeyValue("ttl", cfg.TTL.String())
			}
			if cfg.Backend != config.BackendFile {
				return nil
			}

			fs, err := c.fileStore(cmd)
			if err != nil {
				return err
			}
			n, err := fs.Entries()
			if err != nil {
				return err
			}
			printKeyValue("path", fs.Dir())
			printKeyValue("snapshots", strconv.Itoa(n))
			return nil
		},
	}
}

func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <order>...",
		Short: "Delete the stored snapshots of orders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeStore, err := c.newRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			for _, id := range args {
				if err := runner.Delete(cmd.Context(), id); err != nil {
					printError("%s: %v", id, err)
					return err
				}
				printSuccess("Deleted snapshot of %s", StyleTitle.Render(id))
			}
			return nil
		},
	}
}

func (c *CLI) storeClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all snapshots of the file store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := c.fileStore(cmd)
			if err != nil {
				return err
			}
			n, err := fs.Entries()
			if err != nil {
				return err
			}
			if err := fs.Clear(); err != nil {
				return err
			}
			printSuccess("Removed %d snapshot(s)", n)
			printFile(fs.Dir())
			return nil
		},
	}
}

// fileStore opens the configured store, which must be the file backend.
func (c *CLI) fileStore(cmd *cobra.Command) (*store.FileStore, error) {
	s, err := c.openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	fs, ok := s.(*store.FileStore)
	if !ok {
		_ = s.Close()
		return nil, errors.Invalid(errors.ErrCodeUnsupported, "store.backend", c.Config.Store.Backend,
			"only the file store can be listed or cleared")
	}
	return fs, nil
}
