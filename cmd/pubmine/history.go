package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmine/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent job runs from the ledger",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum number of entries to show (default from config)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	store, err := ledger.Open(cfg.Layout.WorkDir, cfg.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.History(limit)
	if err != nil {
		return err
	}
	ledger.FormatHistory(entries, os.Stdout)
	return nil
}
