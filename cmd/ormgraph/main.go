// cmd/ormgraph/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configFile string
	schemaFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ormgraph",
		Short: "ormgraph CLI for model schemas",
		Long: `The ormgraph CLI validates declarative model files, renders
their DDL for a SQL dialect and creates the tables in a database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "configuration file (default is ./ormgraph.yaml or $HOME/.ormgraph/ormgraph.yaml)")
	root.PersistentFlags().StringVarP(&opts.schemaFile, "schema", "s", "", "model schema file (overrides schema.file from the configuration)")

	root.AddCommand(newCheckCmd(opts), newDDLCmd(opts), newApplyCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
