// cmd/ormgraph/ddl.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chmenegatti/ormgraph/driver/sqlbase"
	"github.com/chmenegatti/ormgraph/pkg/config"
)

func newDDLCmd(opts *rootOptions) *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE statements for the model schema",
		Long: `Renders the tables and indexes of every model, referenced tables first,
in the selected SQL dialect. Nothing is executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialect == "" {
				cfg, err := config.LoadConfig(opts.configFile)
				if err != nil {
					return fmt.Errorf("error loading configuration (or pass --dialect): %w", err)
				}
				dialect = cfg.Database.Dialect
			}
			d, err := dialectFor(dialect)
			if err != nil {
				return err
			}
			reg, err := loadSchema(opts)
			if err != nil {
				return err
			}
			stmts, err := sqlbase.SchemaSQL(d, reg)
			if err != nil {
				return fmt.Errorf("rendering DDL: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), sqlbase.Script(stmts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "", fmt.Sprintf("SQL dialect %v (default from configuration)", dialectNames()))
	return cmd
}
