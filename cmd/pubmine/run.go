// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmine/internal/dag"
	"github.com/pdiddy/pubmine/internal/execx"
	"github.com/pdiddy/pubmine/internal/ledger"
	"github.com/pdiddy/pubmine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [targets...]",
	Short: "Run the pipeline, rebuilding stale artifacts",
	Long: `Run plans the jobs needed to bring the requested targets up to date and
executes them. Without arguments every dataset's match report is the
target. Jobs whose outputs are newer than their inputs are skipped
unless --force is given.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "print the plan without executing")
	runCmd.Flags().Bool("force", false, "run every required job regardless of freshness")
	runCmd.Flags().String("dataset", "", "restrict the default targets to one dataset")
	runCmd.Flags().Int("workers", 0, "number of jobs to run concurrently (default from config)")

	rootCmd.AddCommand(runCmd)
}

// buildPipeline assembles the pipeline from configuration and loaded
// secrets.
func buildPipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(loadConfig(), execx.Default, loadedSecrets)
}

// resolveTargets turns command arguments into concrete target paths.
// Explicit arguments win; otherwise the dataset flag narrows the
// default targets to one match report.
func resolveTargets(p *pipeline.Pipeline, args []string, dataset string) ([]string, error) {
	if len(args) > 0 {
		if dataset != "" {
			return nil, fmt.Errorf("--dataset cannot be combined with explicit targets")
		}
		return args, nil
	}
	if dataset == "" {
		return p.FinalTargets(), nil
	}
	for _, ds := range p.Config.Datasets {
		if ds == dataset {
			return []string{p.Layout.Matches(dataset)}, nil
		}
	}
	return nil, fmt.Errorf("unknown dataset %q: configured datasets are %v", dataset, p.Config.Datasets)
}

func runRun(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	dataset, _ := cmd.Flags().GetString("dataset")
	workers, _ := cmd.Flags().GetInt("workers")

	p, err := buildPipeline()
	if err != nil {
		return err
	}

	targets, err := resolveTargets(p, args, dataset)
	if err != nil {
		return err
	}

	plan, err := dag.NewPlanner(p.Rules).Plan(targets, force)
	if err != nil {
		return err
	}

	if dryRun {
		if plan.Empty() {
			fmt.Println("Nothing to do: all targets are up to date.")
			return nil
		}
		fmt.Printf("Would run %d job(s):\n", len(plan.Jobs))
		plan.Describe(os.Stdout)
		return nil
	}

	if plan.Empty() {
		fmt.Println("Nothing to do: all targets are up to date.")
		return nil
	}

	if err := p.CheckTools(); err != nil {
		return err
	}

	if workers <= 0 {
		workers = p.Config.Exec.Workers
	}

	store, err := ledger.Open(p.Config.Layout.WorkDir, p.Config.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	var results []dag.Result
	exec := dag.NewExecutor(workers, os.Stdout)
	exec.Observe = func(r dag.Result) {
		results = append(results, r)
		if recordErr := store.Record(r); recordErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record job %s: %v\n", r.Job.ID(), recordErr)
		}
	}

	execErr := exec.Execute(cmd.Context(), plan)

	reportPath := pipeline.ReportPath(p.Config.Layout.WorkDir)
	if err := pipeline.WriteRunReport(reportPath, targets, results); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write run report: %v\n", err)
	}

	return execErr
}
