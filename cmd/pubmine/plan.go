package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmine/internal/dag"
)

var planCmd = &cobra.Command{
	Use:   "plan [targets...]",
	Short: "Show which jobs a run would execute and why",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Bool("force", false, "plan every required job regardless of freshness")
	planCmd.Flags().String("dataset", "", "restrict the default targets to one dataset")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	dataset, _ := cmd.Flags().GetString("dataset")

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

	if plan.Empty() {
		fmt.Println("Nothing to do: all targets are up to date.")
		return nil
	}

	fmt.Printf("%d job(s) to run:\n", len(plan.Jobs))
	plan.Describe(os.Stdout)
	return nil
}
