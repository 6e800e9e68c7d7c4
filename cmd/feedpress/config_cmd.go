// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package main

import (
	"maps"
	"os"
	"slices"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/feedpress/feedpress/internal/config"
	"github.com/feedpress/feedpress/pkg/errutil"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // config errors carry codes
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a config file and the resulting configuration",
		Long: `Check FILE (or --config) against the config schema, then load it with
environment overrides applied and validate the result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				path = args[0]
			}
			if path != "" {
				data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
				if err != nil {
					return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
				}
				if err := config.ValidateSchema(data); err != nil {
					cmd.PrintErrln("schema:", config.FormatSchemaError(err))
					return err //nolint:wrapcheck // config errors carry codes
				}
			}

			cfg, err := config.Load(path, nil)
			if err != nil {
				return err //nolint:wrapcheck // config errors carry codes
			}
			if err := cfg.Validate(); err != nil {
				if v, ok := errutil.Value(err, "fields"); ok {
					if fields, ok := v.(map[string]string); ok {
						for _, key := range slices.Sorted(maps.Keys(fields)) {
							cmd.PrintErrf("%s: %s\n", key, fields[key])
						}
					}
				}
				return err //nolint:wrapcheck // config errors carry codes
			}
			cmd.Println("Configuration is valid")
			return nil
		},
	})

	return cmd
}
