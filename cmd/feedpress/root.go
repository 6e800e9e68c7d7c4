// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/feedpress/feedpress/internal/config"
	"github.com/feedpress/feedpress/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the feedpress CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedpress",
		Short: "Feedpress - a small publishing backend",
		Long: `Feedpress serves a session-based web API and a bearer-token GraphQL API
over the same accounts and posts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default $XDG_CONFIG_HOME/feedpress/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads and validates the configuration for cmd. Flags the user
// set on cmd override file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err //nolint:wrapcheck // config errors carry codes
	}
	if err := cfg.Validate(); err != nil {
		return nil, err //nolint:wrapcheck // config errors carry codes
	}
	return cfg, nil
}

// configPath returns --config, or the XDG default file when one exists.
func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := xdg.DefaultConfigFile()
	if err != nil {
		return "", err //nolint:wrapcheck // xdg errors carry codes
	}
	return path, nil
}
