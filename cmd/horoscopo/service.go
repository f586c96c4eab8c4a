package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danrleybayoshi/horoscopo/internal/config"
	"github.com/danrleybayoshi/horoscopo/internal/daemon"
)

func newStartCmd(opts *rootOptions) *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the horoscopo API daemon",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return daemon.Run(cfg, foreground)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "also log to stdout")
	return cmd
}

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := opts.load(); err != nil {
				return err
			}
			if err := daemon.Stop(); err != nil {
				return fmt.Errorf("stopping daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "horoscopo stopped")
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and live counters",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := opts.load(); err != nil {
				return err
			}
			return daemon.Status()
		},
	}
}

func newInstallServiceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install-service",
		Short: "Install as a launchd user agent (macOS)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			configPath := opts.configPath
			if configPath == "" {
				configPath = config.ConfigFilePath()
			}
			if configPath != "" {
				if abs, err := filepath.Abs(configPath); err == nil {
					configPath = abs
				}
			}
			if err := daemon.InstallService(configPath, cfg.Server.DataDir); err != nil {
				return fmt.Errorf("installing service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service installed successfully")
			return nil
		},
	}
}

func newUninstallServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-service",
		Short: "Remove the launchd user agent (macOS)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := daemon.UninstallService(); err != nil {
				return fmt.Errorf("uninstalling service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled")
			return nil
		},
	}
}
