// cmd/ormgraph/apply.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chmenegatti/ormgraph/pkg/config"
)

func newApplyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create the schema's tables in the configured database",
		Long: `Connects with the database settings from the configuration and creates
every missing table and index of the model schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configFile)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			if opts.schemaFile == "" {
				opts.schemaFile = cfg.Schema.File
			}
			reg, err := loadSchema(opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Logging)
			if err != nil {
				return err
			}

			ds, err := openDataSource(cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", cfg.Database.Dialect, err)
			}
			defer ds.Close()

			if err := ds.CreateTables(cmd.Context(), reg); err != nil {
				return fmt.Errorf("creating tables: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema applied: %d models on %s.\n", len(reg.Models()), cfg.Database.Dialect)
			return nil
		},
	}
}
