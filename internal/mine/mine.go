// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mine wraps the trminer collaborator: tokenizing downloaded
// PDFs and mining token patterns out of the tokenized corpus. Both
// operations are opaque to this repository; trminer owns the text
// processing and its own -j thread pool.
package mine

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

// Miner invokes trminer.
type Miner struct {
	exec execx.Executor
	cfg  types.MinerConfig
}

// New creates a Miner.
func New(e execx.Executor, cfg types.MinerConfig) *Miner {
	return &Miner{exec: e, cfg: cfg}
}

// CheckTool verifies trminer is available on PATH.
func (m *Miner) CheckTool() error {
	return execx.CheckTool(m.exec, m.cfg.Tool)
}

// pdfGlob lists the PDFs under pdfDir. The glob is expanded here rather
// than by a shell, so trminer always receives explicit paths.
func pdfGlob(pdfDir string) ([]string, error) {
	pdfs, err := filepath.Glob(filepath.Join(pdfDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pdfDir, err)
	}
	return pdfs, nil
}

// Tokenize splits the PDFs under pdfDir into token streams in outDir
// using the token definitions at tokensPath. An empty PDF store is not
// an error; the tokenized output is simply empty.
func (m *Miner) Tokenize(ctx context.Context, pdfDir, tokensPath, outDir string, w io.Writer) error {
	if _, err := os.Stat(tokensPath); err != nil {
		return fmt.Errorf("token definitions %s: %w", tokensPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating tokenized directory %s: %w", outDir, err)
	}

	pdfs, err := pdfGlob(pdfDir)
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		fmt.Fprintf(w, "tokenize: no PDFs in %s, nothing to do\n", pdfDir)
		return nil
	}

	fmt.Fprintf(w, "tokenizing %d PDFs into %s\n", len(pdfs), outDir)

	args := []string{
		"-j" + strconv.Itoa(m.cfg.Jobs),
		"-s", outDir,
		"-t", tokensPath,
		"--tokenize",
	}
	args = append(args, pdfs...)

	cmd := execx.Command{Name: m.cfg.Tool, Args: args, Stdout: w, Stderr: w}
	if err := m.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("running %s --tokenize: %w", m.cfg.Tool, err)
	}
	return nil
}

// Mine searches the tokenized corpus for the patterns at patternsPath
// and writes the match report to reportPath.
func (m *Miner) Mine(ctx context.Context, pdfDir, tokenizedDir, tokensPath, patternsPath, reportPath string, w io.Writer) error {
	for _, p := range []string{tokensPath, patternsPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("definitions file %s: %w", p, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(reportPath), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	pdfs, err := pdfGlob(pdfDir)
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		fmt.Fprintf(w, "mine: no PDFs in %s, writing empty report\n", pdfDir)
		return os.WriteFile(reportPath, []byte(emptyReport), 0o644)
	}

	fmt.Fprintf(w, "mining %d PDFs into %s\n", len(pdfs), reportPath)

	args := []string{
		"-j" + strconv.Itoa(m.cfg.Jobs),
		"-s", tokenizedDir,
		"-t", tokensPath,
		"-p", patternsPath,
		"-o", reportPath,
		"--mine",
	}
	args = append(args, pdfs...)

	cmd := execx.Command{Name: m.cfg.Tool, Args: args, Stdout: w, Stderr: w}
	if err := m.exec.Run(ctx, cmd); err != nil {
		return fmt.Errorf("running %s --mine: %w", m.cfg.Tool, err)
	}
	return nil
}

// emptyReport is written when there is nothing to mine, so downstream
// consumers of the report path always find a file.
const emptyReport = "<html><body><p>No documents mined.</p></body></html>\n"
