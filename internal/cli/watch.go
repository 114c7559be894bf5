package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/pipeline"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Import order documents whenever they change",
		Long: `Watch imports every order document in <dir> and then re-imports a document
each time it is written. Documents are recognized by their .json, .yaml, .yml
or .toml extension. Failed imports are logged and watching continues.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeStore, err := c.newRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			return c.watch(cmd.Context(), runner, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepSchedule, "keep-schedule", false, "keep operation timing when the schedule is invalidated")

	return cmd
}

// watch runs until ctx is cancelled.
func (c *CLI) watch(ctx context.Context, runner *pipeline.Runner, dir string, opts pipeline.Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && isDocument(e.Name()) {
			c.reimport(ctx, runner, filepath.Join(dir, e.Name()), opts)
		}
	}
	c.Logger.Info("Watching for changes", "dir", dir)

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDocument(ev.Name) || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(watchDebounce)
		case <-timer.C:
			for path := range pending {
				c.reimport(ctx, runner, path, opts)
				delete(pending, path)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		}
	}
}

func (c *CLI) reimport(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) {
	if err := c.importFile(ctx, runner, path, opts); err != nil {
		c.Logger.Error("import failed", "file", path, "err", err)
	}
}

func isDocument(path string) bool {
	_, err := docio.FormatFromPath(path)
	return err == nil
}
