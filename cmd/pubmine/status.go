package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the freshness of every pipeline artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline()
		if err != nil {
			return err
		}
		return p.Status(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
