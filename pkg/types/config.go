package types

import (
	"fmt"
	"time"
)

// LayoutConfig describes where pipeline artifacts live on disk.
//
// The layout is fixed relative to two roots: DataDir holds per-dataset
// inputs and outputs, PDFDir holds the shared full-text store keyed by
// PMID. WorkDir holds pipeline bookkeeping (run ledger, run reports).
type LayoutConfig struct {
	// DataDir is the base directory for per-dataset artifacts
	// (contains <dataset>/proteins.txt, <dataset>/pmids.txt, ...).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// PDFDir is the shared directory of downloaded PDFs, keyed by PMID.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`

	// WorkDir is the directory for pipeline bookkeeping (default ".pubmine").
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// FetchConfig holds settings for the pubfetcher collaborator.
type FetchConfig struct {
	// Tool is the pubfetcher executable name or path (default "pubfetcher.py").
	Tool string `json:"tool" yaml:"tool"`

	// MinFound is the minimum number of search items that must match
	// before a paper's PMID is reported (default 3).
	MinFound int `json:"min_found" yaml:"min_found"`

	// MaxRetries is the number of retry attempts for transient
	// pubfetcher failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the base duration for exponential backoff
	// between retries (default 10s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
}

// MinerConfig holds settings for the trminer collaborator.
type MinerConfig struct {
	// Tool is the trminer executable name or path (default "trminer").
	Tool string `json:"tool" yaml:"tool"`

	// Jobs is the thread count passed to trminer via -j (default 40).
	Jobs int `json:"jobs" yaml:"jobs"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// MaxResults is the default maximum number of history entries shown
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ExecConfig holds settings for pipeline execution.
type ExecConfig struct {
	// Workers is the number of jobs run concurrently (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	// Datasets lists the dataset names the pipeline operates on.
	Datasets []string `json:"datasets" yaml:"datasets"`

	Layout LayoutConfig `json:"layout" yaml:"layout"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Miner  MinerConfig  `json:"miner" yaml:"miner"`
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
	Exec   ExecConfig   `json:"exec" yaml:"exec"`
}

// DefaultConfig returns a PipelineConfig with all defaults applied and an
// empty dataset list.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Layout: LayoutConfig{
			DataDir: "data",
			PDFDir:  "pdfs",
			WorkDir: ".pubmine",
		},
		Fetch: FetchConfig{
			Tool:           "pubfetcher.py",
			MinFound:       3,
			MaxRetries:     3,
			RetryBaseDelay: 10 * time.Second,
		},
		Miner: MinerConfig{
			Tool: "trminer",
			Jobs: 40,
		},
		Ledger: LedgerConfig{
			MaxResults: 20,
		},
		Exec: ExecConfig{
			Workers: 4,
		},
	}
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *PipelineConfig) ApplyDefaults() {
	d := DefaultConfig()
	if c.Layout.DataDir == "" {
		c.Layout.DataDir = d.Layout.DataDir
	}
	if c.Layout.PDFDir == "" {
		c.Layout.PDFDir = d.Layout.PDFDir
	}
	if c.Layout.WorkDir == "" {
		c.Layout.WorkDir = d.Layout.WorkDir
	}
	if c.Fetch.Tool == "" {
		c.Fetch.Tool = d.Fetch.Tool
	}
	if c.Fetch.MinFound == 0 {
		c.Fetch.MinFound = d.Fetch.MinFound
	}
	if c.Fetch.MaxRetries == 0 {
		c.Fetch.MaxRetries = d.Fetch.MaxRetries
	}
	if c.Fetch.RetryBaseDelay == 0 {
		c.Fetch.RetryBaseDelay = d.Fetch.RetryBaseDelay
	}
	if c.Miner.Tool == "" {
		c.Miner.Tool = d.Miner.Tool
	}
	if c.Miner.Jobs == 0 {
		c.Miner.Jobs = d.Miner.Jobs
	}
	if c.Ledger.MaxResults == 0 {
		c.Ledger.MaxResults = d.Ledger.MaxResults
	}
	if c.Exec.Workers == 0 {
		c.Exec.Workers = d.Exec.Workers
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c PipelineConfig) Validate() error {
	if len(c.Datasets) == 0 {
		return fmt.Errorf("no datasets configured: list at least one dataset in pubmine.yaml")
	}
	seen := make(map[string]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if d == "" {
			return fmt.Errorf("empty dataset name in configuration")
		}
		if seen[d] {
			return fmt.Errorf("duplicate dataset name %q in configuration", d)
		}
		seen[d] = true
	}
	if c.Miner.Jobs < 1 {
		return fmt.Errorf("miner jobs must be positive, got %d", c.Miner.Jobs)
	}
	if c.Exec.Workers < 1 {
		return fmt.Errorf("exec workers must be positive, got %d", c.Exec.Workers)
	}
	return nil
}
