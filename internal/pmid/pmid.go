// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pmid parses, merges, and writes PubMed identifier list files.
// A PMID list holds one numeric identifier per line; blank lines and
// lines starting with '#' are ignored.
package pmid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Parse reads PMIDs from r. Each non-blank, non-comment line must be a
// single positive integer; anything else is an error naming the line.
func Parse(r io.Reader) ([]uint64, error) {
	var ids []uint64
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("line %d: invalid PMID %q", lineno, line)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PMID list: %w", err)
	}
	return ids, nil
}

// ReadFile parses the PMID list at path.
func ReadFile(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PMID list %s: %w", path, err)
	}
	defer f.Close()

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ids, nil
}

// Merge combines several PMID lists into one deduplicated list in
// ascending numeric order. Input order does not affect the result.
func Merge(lists ...[]uint64) []uint64 {
	seen := make(map[uint64]bool)
	var merged []uint64
	for _, list := range lists {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}

// WriteFile writes the PMID list to path atomically: the list goes to a
// temporary file in the destination directory which is renamed into
// place on success.
func WriteFile(path string, ids []uint64) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".pmids-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	w := bufio.NewWriter(tmpFile)
	var writeErr error
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "%d\n", id); err != nil {
			writeErr = err
			break
		}
	}
	if writeErr == nil {
		writeErr = w.Flush()
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing PMID list: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// MergeFiles reads every input list, merges them, and writes the result
// to outPath. It returns the merged count.
func MergeFiles(outPath string, inputs []string) (int, error) {
	lists := make([][]uint64, 0, len(inputs))
	for _, in := range inputs {
		ids, err := ReadFile(in)
		if err != nil {
			return 0, err
		}
		lists = append(lists, ids)
	}
	merged := Merge(lists...)
	if err := WriteFile(outPath, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}
