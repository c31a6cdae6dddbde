package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmine/internal/pmid"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the per-dataset PMID lists into the global list",
	Long: `Merge reads every configured dataset's PMID list, deduplicates the
identifiers, and writes them in ascending numeric order to the global
list. It runs unconditionally; use 'pubmine run' for freshness-aware
execution.`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}

	var inputs []string
	for _, ds := range p.Config.Datasets {
		inputs = append(inputs, p.Layout.PMIDs(ds))
	}
	out := p.Layout.AllPMIDs()

	n, err := pmid.MergeFiles(out, inputs)
	if err != nil {
		return err
	}
	fmt.Printf("merged %d unique PMIDs into %s\n", n, out)
	return nil
}
