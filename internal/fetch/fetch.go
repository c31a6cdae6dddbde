// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch wraps the pubfetcher collaborator: literature search
// producing PMID lists, and bulk PDF download into the shared store.
// The search and download logic itself lives in pubfetcher; this
// package only builds command lines and manages the output files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/pubmine/internal/execx"
	"github.com/pdiddy/pubmine/pkg/types"
)

// Secret file names recognized for NCBI credentials, passed to
// pubfetcher through its environment.
const (
	SecretAPIKey = "ncbi-api-key"
	SecretEmail  = "ncbi-email"
)

// Fetcher invokes pubfetcher.
type Fetcher struct {
	exec execx.Executor
	cfg  types.FetchConfig
	env  []string
}

// New creates a Fetcher. Credentials found in secrets are forwarded to
// pubfetcher as NCBI_API_KEY and NCBI_EMAIL.
func New(e execx.Executor, cfg types.FetchConfig, secrets map[string]string) *Fetcher {
	var env []string
	if v := secrets[SecretAPIKey]; v != "" {
		env = append(env, "NCBI_API_KEY="+v)
	}
	if v := secrets[SecretEmail]; v != "" {
		env = append(env, "NCBI_EMAIL="+v)
	}
	return &Fetcher{exec: e, cfg: cfg, env: env}
}

// CheckTool verifies pubfetcher is available on PATH.
func (f *Fetcher) CheckTool() error {
	return execx.CheckTool(f.exec, f.cfg.Tool)
}

// Search runs a literature search over the protein list at proteinsPath
// and writes the matching PMIDs to pmidsOut. pubfetcher emits PMIDs on
// stdout; the output is captured in a temporary file and renamed into
// place so a failed search leaves no partial list. Transient failures
// retry with backoff.
func (f *Fetcher) Search(ctx context.Context, proteinsPath, pmidsOut string, w io.Writer) error {
	if _, err := os.Stat(proteinsPath); err != nil {
		return fmt.Errorf("protein list %s: %w", proteinsPath, err)
	}
	dir := filepath.Dir(pmidsOut)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	fmt.Fprintf(w, "searching: %s\n", proteinsPath)

	attempt := func(ctx context.Context) error {
		tmpFile, err := os.CreateTemp(dir, ".pmids-*.tmp")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()

		cmd := execx.Command{
			Name: f.cfg.Tool,
			Args: []string{
				"--nodownload",
				"--minfound", strconv.Itoa(f.cfg.MinFound),
				"--searchitems", proteinsPath,
			},
			Env:    f.env,
			Stdout: tmpFile,
			Stderr: w,
		}
		runErr := f.exec.Run(ctx, cmd)
		closeErr := tmpFile.Close()
		if runErr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("running %s: %w", f.cfg.Tool, runErr)
		}
		if closeErr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("closing temp file: %w", closeErr)
		}
		if err := os.Rename(tmpPath, pmidsOut); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("renaming temp file: %w", err)
		}
		return nil
	}

	desc := fmt.Sprintf("search for %s", proteinsPath)
	return execx.Retry(ctx, f.cfg.MaxRetries, f.cfg.RetryBaseDelay, desc, w, attempt)
}

// Download fetches the full text for every PMID in allPMIDsPath into
// pdfDir. pubfetcher owns the per-PMID download logic, including
// skipping PDFs already present; the whole invocation retries on
// transient failure.
func (f *Fetcher) Download(ctx context.Context, allPMIDsPath, pdfDir string, w io.Writer) error {
	if _, err := os.Stat(allPMIDsPath); err != nil {
		return fmt.Errorf("PMID list %s: %w", allPMIDsPath, err)
	}
	if err := os.MkdirAll(pdfDir, 0o755); err != nil {
		return fmt.Errorf("creating PDF directory %s: %w", pdfDir, err)
	}

	fmt.Fprintf(w, "downloading PDFs: %s -> %s\n", allPMIDsPath, pdfDir)

	cmd := execx.Command{
		Name: f.cfg.Tool,
		Args: []string{
			"--pmids", allPMIDsPath,
			"--output", pdfDir,
		},
		Env:    f.env,
		Stdout: w,
		Stderr: w,
	}
	return execx.RunWithRetry(ctx, f.exec, cmd, f.cfg.MaxRetries, f.cfg.RetryBaseDelay, w)
}
