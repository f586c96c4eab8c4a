package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danrleybayoshi/horoscopo/internal/config"
)

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write an example config to ~/.horoscopo/horoscopo.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.InitConfig()
			if err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
}

func newConfigExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config-export [file]",
		Short: "Export the effective config as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "horoscopo-export.toml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := opts.load(); err != nil {
				return err
			}
			if err := config.ExportConfig(path); err != nil {
				return fmt.Errorf("exporting config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config exported to %s\n", path)
			return nil
		},
	}
}

func newConfigImportCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "config-import <file>",
		Short: "Validate a TOML config and install it as the active config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ImportConfig(args[0]); err != nil {
				return fmt.Errorf("importing config: %w", err)
			}
			if dest == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("determining home directory: %w", err)
				}
				dest = filepath.Join(home, ".horoscopo", config.DefaultConfigFilename)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := config.WriteFile(dest, config.Get()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config imported from %s to %s\n", args[0], dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "to", "", "destination file (default ~/.horoscopo/horoscopo.toml)")
	return cmd
}
