// cmd/ormgraph/check.go
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chmenegatti/ormgraph/metadata"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the model schema and print its relation graph",
		Long: `Loads the schema file, resolves every forward reference and prints each
model with its columns and relation accessors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadSchema(opts)
			if err != nil {
				return err
			}
			describe(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func describe(w io.Writer, reg *metadata.Registry) {
	models := reg.Models()
	for _, m := range models {
		suffix := ""
		if m.IsAssociation() {
			suffix = " association"
		}
		fmt.Fprintf(w, "%s (%s)%s\n", m.Name, m.TableName, suffix)

		columns := make([]string, 0, len(m.Columns()))
		for _, f := range m.Columns() {
			columns = append(columns, f.Column)
		}
		fmt.Fprintf(w, "  columns: %s\n", strings.Join(columns, ", "))

		for _, e := range m.Edges() {
			line := fmt.Sprintf("  %s: %s -> %s", e.Name, e.Kind, e.To.Name)
			if e.Through != nil {
				line += " via " + e.Through.TableName
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintf(w, "%d models OK\n", len(models))
}
