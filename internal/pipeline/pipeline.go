// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline defines the concrete literature-mining pipeline:
// five rules wired over the configured directory layout, from protein
// lists to per-dataset match reports.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/pubmine/internal/execx"
	"github.com/pdiddy/pubmine/internal/fetch"
	"github.com/pdiddy/pubmine/internal/mine"
	"github.com/pdiddy/pubmine/internal/pmid"
	"github.com/pdiddy/pubmine/internal/rule"
	"github.com/pdiddy/pubmine/pkg/types"
)

// Per-dataset artifact file names under <data>/<dataset>/.
const (
	proteinsFile  = "proteins.txt"
	pmidsFile     = "pmids.txt"
	tokensFile    = "tokens.txt"
	patternsFile  = "patterns.txt"
	tokenizedName = "tokenized"
	matchesFile   = "matches.html"
	allPMIDsFile  = "all_pmids.txt"
)

// Layout computes concrete artifact paths from the configured roots.
// Methods taking a dataset accept rule.Wildcard to build patterns.
type Layout struct {
	cfg types.LayoutConfig
}

// NewLayout wraps a LayoutConfig.
func NewLayout(cfg types.LayoutConfig) Layout {
	return Layout{cfg: cfg}
}

func (l Layout) datasetPath(dataset, name string) string {
	return filepath.Join(l.cfg.DataDir, dataset, name)
}

// Proteins returns the protein list path for a dataset.
func (l Layout) Proteins(dataset string) string { return l.datasetPath(dataset, proteinsFile) }

// PMIDs returns the per-dataset PMID list path.
func (l Layout) PMIDs(dataset string) string { return l.datasetPath(dataset, pmidsFile) }

// Tokens returns the token definitions path for a dataset.
func (l Layout) Tokens(dataset string) string { return l.datasetPath(dataset, tokensFile) }

// Patterns returns the pattern definitions path for a dataset.
func (l Layout) Patterns(dataset string) string { return l.datasetPath(dataset, patternsFile) }

// Tokenized returns the tokenized output directory for a dataset. The
// trailing separator marks it as a directory output.
func (l Layout) Tokenized(dataset string) string {
	return l.datasetPath(dataset, tokenizedName) + string(filepath.Separator)
}

// Matches returns the match report path for a dataset.
func (l Layout) Matches(dataset string) string { return l.datasetPath(dataset, matchesFile) }

// AllPMIDs returns the merged global PMID list path.
func (l Layout) AllPMIDs() string { return filepath.Join(l.cfg.DataDir, allPMIDsFile) }

// PDFDir returns the shared PDF store directory, marked as a directory
// output.
func (l Layout) PDFDir() string {
	return filepath.Clean(l.cfg.PDFDir) + string(filepath.Separator)
}

// Pipeline holds the rule set and the collaborator wrappers it runs.
type Pipeline struct {
	Config  types.PipelineConfig
	Layout  Layout
	Rules   *rule.Set
	fetcher *fetch.Fetcher
	miner   *mine.Miner
}

// New builds the pipeline rule set for the given configuration.
// Credentials in secrets are forwarded to pubfetcher.
func New(cfg types.PipelineConfig, e execx.Executor, secrets map[string]string) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		Config:  cfg,
		Layout:  NewLayout(cfg.Layout),
		fetcher: fetch.New(e, cfg.Fetch, secrets),
		miner:   mine.New(e, cfg.Miner),
	}

	l := p.Layout
	w := rule.Wildcard

	search := &rule.Rule{
		Name:    "search",
		Doc:     "search literature for the dataset's proteins, producing its PMID list",
		Inputs:  []string{l.Proteins(w)},
		Outputs: []string{l.PMIDs(w)},
		Run: func(ctx context.Context, job rule.Job, out io.Writer) error {
			return p.fetcher.Search(ctx, job.Inputs[0], job.Outputs[0], out)
		},
	}

	// The merge rule consumes every dataset's PMID list, so its inputs
	// are expanded here rather than carrying the wildcard.
	var pmidLists []string
	for _, ds := range cfg.Datasets {
		pmidLists = append(pmidLists, l.PMIDs(ds))
	}
	merge := &rule.Rule{
		Name:    "merge",
		Doc:     "merge per-dataset PMID lists into one deduplicated global list",
		Inputs:  pmidLists,
		Outputs: []string{l.AllPMIDs()},
		Run: func(ctx context.Context, job rule.Job, out io.Writer) error {
			n, err := pmid.MergeFiles(job.Outputs[0], job.Inputs)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "merged %d unique PMIDs into %s\n", n, job.Outputs[0])
			return nil
		},
	}

	download := &rule.Rule{
		Name:    "download",
		Doc:     "download PDFs for every merged PMID into the shared store",
		Inputs:  []string{l.AllPMIDs()},
		Outputs: []string{l.PDFDir()},
		Run: func(ctx context.Context, job rule.Job, out io.Writer) error {
			return p.fetcher.Download(ctx, job.Inputs[0], job.Outputs[0], out)
		},
	}

	tokenize := &rule.Rule{
		Name:    "tokenize",
		Doc:     "tokenize the PDF store with the dataset's token definitions",
		Inputs:  []string{l.PDFDir(), l.Tokens(w)},
		Outputs: []string{l.Tokenized(w)},
		Run: func(ctx context.Context, job rule.Job, out io.Writer) error {
			return p.miner.Tokenize(ctx, job.Inputs[0], job.Inputs[1], job.Outputs[0], out)
		},
	}

	mineRule := &rule.Rule{
		Name:    "mine",
		Doc:     "mine token patterns from the tokenized corpus into the match report",
		Inputs:  []string{l.Tokenized(w), l.Tokens(w), l.Patterns(w), l.PDFDir()},
		Outputs: []string{l.Matches(w)},
		Run: func(ctx context.Context, job rule.Job, out io.Writer) error {
			return p.miner.Mine(ctx, job.Inputs[3], job.Inputs[0], job.Inputs[1], job.Inputs[2], job.Outputs[0], out)
		},
	}

	set, err := rule.NewSet(search, merge, download, tokenize, mineRule)
	if err != nil {
		return nil, err
	}
	p.Rules = set
	return p, nil
}

// FinalTargets returns the default run targets: every dataset's match
// report.
func (p *Pipeline) FinalTargets() []string {
	var targets []string
	for _, ds := range p.Config.Datasets {
		targets = append(targets, p.Layout.Matches(ds))
	}
	return targets
}

// CheckTools verifies both collaborator tools are on PATH.
func (p *Pipeline) CheckTools() error {
	if err := p.fetcher.CheckTool(); err != nil {
		return err
	}
	return p.miner.CheckTool()
}

// Jobs instantiates every rule for the configured datasets, in rule
// declaration order with datasets in configuration order.
func (p *Pipeline) Jobs() ([]rule.Job, error) {
	var jobs []rule.Job
	for _, r := range p.Rules.Rules() {
		if !r.HasWildcard() {
			j, err := r.Instantiate("")
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, j)
			continue
		}
		for _, ds := range p.Config.Datasets {
			j, err := r.Instantiate(ds)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// Status writes a freshness report for every job to w.
func (p *Pipeline) Status(w io.Writer) error {
	jobs, err := p.Jobs()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-20s  %-8s  %s\n", "Job", "State", "Reason")
	for _, j := range jobs {
		stale, reason, err := j.Stale()
		if err != nil {
			return err
		}
		state := "fresh"
		if stale {
			state = "stale"
		}
		fmt.Fprintf(w, "%-20s  %-8s  %s\n", j.ID(), state, reason)
	}
	return nil
}
