// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubmine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmine/internal/secrets"
	"github.com/pdiddy/pubmine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds NCBI credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the pubmine CLI.
var rootCmd = &cobra.Command{
	Use:   "pubmine",
	Short: "Literature text-mining pipeline over PubMed full texts",
	Long: `pubmine drives a declarative text-mining pipeline over a set of named
datasets. For each dataset it searches the literature for a protein list,
merges the resulting PMID lists, downloads the full-text PDFs once into a
shared store, tokenizes them, and mines token patterns into a per-dataset
match report.

Search and download are performed by the external pubfetcher tool;
tokenization and mining by the external trminer tool. pubmine owns the
dependency graph between the file artifacts and re-runs only what is
out of date.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pubmine.yaml or ~/.config/pubmine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubmine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubmine"))
		}
	}

	viper.SetEnvPrefix("PUBMINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig builds the pipeline configuration from viper keys with
// defaults applied.
func loadConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Datasets: viper.GetStringSlice("datasets"),
		Layout: types.LayoutConfig{
			DataDir: viper.GetString("layout.data_dir"),
			PDFDir:  viper.GetString("layout.pdf_dir"),
			WorkDir: viper.GetString("layout.work_dir"),
		},
		Fetch: types.FetchConfig{
			Tool:           viper.GetString("fetch.tool"),
			MinFound:       viper.GetInt("fetch.min_found"),
			MaxRetries:     viper.GetInt("fetch.max_retries"),
			RetryBaseDelay: viper.GetDuration("fetch.retry_base_delay"),
		},
		Miner: types.MinerConfig{
			Tool: viper.GetString("miner.tool"),
			Jobs: viper.GetInt("miner.jobs"),
		},
		Ledger: types.LedgerConfig{
			MaxResults: viper.GetInt("ledger.max_results"),
		},
		Exec: types.ExecConfig{
			Workers: viper.GetInt("exec.workers"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
