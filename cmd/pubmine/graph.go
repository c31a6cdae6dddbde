package main

import (
	"os"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Emit the rule dependency graph in Graphviz DOT format",
	Long: `Graph prints the rule-level dependency graph on stdout in DOT format,
suitable for piping into Graphviz:

    pubmine graph | dot -Tsvg -o pipeline.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline()
		if err != nil {
			return err
		}
		return p.WriteDOT(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
