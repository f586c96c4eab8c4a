package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danrleybayoshi/horoscopo/internal/config"
	"github.com/danrleybayoshi/horoscopo/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// rootOptions carries the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "horoscopo",
		Short:         "Daily horoscopes from a prioritized list of providers",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to horoscopo.toml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log provider attempts to stderr")

	root.AddCommand(
		newStartCmd(opts),
		newStopCmd(opts),
		newStatusCmd(opts),
		newFetchCmd(opts),
		newSignsCmd(opts),
		newFavoritesCmd(opts),
		newRewriteCmd(opts),
		newKeysCmd(opts),
		newInitConfigCmd(),
		newConfigExportCmd(opts),
		newConfigImportCmd(),
		newInstallServiceCmd(opts),
		newUninstallServiceCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
