// Command kvs is the command-line driver around the kvs store. All
// user-visible behavior — the printed messages and the process exit codes
// — lives here; the core package never writes to standard streams.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvsdb/kvs/pkg/kvs"
	"github.com/kvsdb/kvs/pkg/kvserr"
)

// version is the package version reported by -V/--version. It is set to
// a fixed value rather than read from build metadata, since this module
// is not published under a tagged release process.
const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "kvs",
		Short:         "A persistent key-value store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Invoking kvs with no subcommand is an error, not a help screen:
		// setting RunE makes the root command Runnable, so cobra no longer
		// falls back to printing help and returning a nil error.
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("no command given")
		},
	}
	root.PersistentFlags().StringVar(&dataDir, "dir", ".", "directory containing the store's log")

	// cobra's auto-registered version flag only ever uses the shorthand
	// "v"; registering our own "version" flag ahead of time makes cobra
	// reuse it instead of adding a second one, so -V works as the
	// original CLI's clap-based version flag did.
	root.Flags().BoolP("version", "V", false, "print version information")
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(
		newGetCmd(&dataDir),
		newSetCmd(&dataDir),
		newRmCmd(&dataDir),
	)

	return root
}

func newGetCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <KEY>",
		Short: "Get the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			value, found, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("Key not found")
				return nil
			}

			fmt.Println(value)
			return nil
		},
	}
}

func newSetCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <KEY> <VALUE>",
		Short: "Set the value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Set(args[0], args[1])
		},
	}
}

func newRmCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <KEY>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *dataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Remove(args[0]); err != nil {
				if kvserr.IsKeyNotFound(err) {
					fmt.Println("Key not found")
				}
				return err
			}
			return nil
		},
	}
}

func openStore(ctx context.Context, dataDir string) (*kvs.Store, error) {
	opts := []kvs.Option{kvs.WithDataDir(dataDir)}

	cfg, err := loadDriverConfig(dataDir)
	if err != nil {
		return nil, err
	}
	if cfg.CompactionThreshold > 0 {
		opts = append(opts, kvs.WithCompactionThreshold(cfg.CompactionThreshold))
	}

	return kvs.Open(ctx, "kvs", opts...)
}
