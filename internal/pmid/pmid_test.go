// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pmid

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []uint64
		wantErr string
	}{
		{"simple", "12345\n67890\n", []uint64{12345, 67890}, ""},
		{"blank lines and comments", "# header\n\n12345\n\n# trailing\n67890\n", []uint64{12345, 67890}, ""},
		{"whitespace trimmed", "  12345  \n", []uint64{12345}, ""},
		{"no trailing newline", "12345", []uint64{12345}, ""},
		{"empty", "", nil, ""},
		{"non-numeric", "12345\nabc\n", nil, `line 2: invalid PMID "abc"`},
		{"negative", "-5\n", nil, `line 1: invalid PMID "-5"`},
		{"zero", "0\n", nil, `line 1: invalid PMID "0"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]uint64
		want  []uint64
	}{
		{"disjoint", [][]uint64{{3, 1}, {2}}, []uint64{1, 2, 3}},
		{"overlapping", [][]uint64{{1, 2}, {2, 3}, {3, 1}}, []uint64{1, 2, 3}},
		{"single list with dups", [][]uint64{{5, 5, 5}}, []uint64{5}},
		{"empty lists", [][]uint64{nil, {}}, nil},
		{"order independent", [][]uint64{{900, 7}, {50}}, []uint64{7, 50, 900}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.lists...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "pmids.txt")

	ids := []uint64{7, 50, 900}
	if err := WriteFile(path, ids); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("round trip = %v, want %v", got, ids)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pmids-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("300\n100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("# dataset b\n100\n200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "all.txt")
	n, err := MergeFiles(out, []string{a, b})
	if err != nil {
		t.Fatalf("MergeFiles: %v", err)
	}
	if n != 3 {
		t.Errorf("merged count = %d, want 3", n)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "100\n200\n300\n" {
		t.Errorf("merged content = %q", string(data))
	}
}

func TestMergeFilesMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "all.txt")

	_, err := MergeFiles(out, []string{filepath.Join(dir, "absent.txt")})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Error("output should not exist after failed merge")
	}
}

func TestMergeFilesEmptyInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(a, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "all.txt")
	n, err := MergeFiles(out, []string{a})
	if err != nil {
		t.Fatalf("MergeFiles: %v", err)
	}
	if n != 0 {
		t.Errorf("merged count = %d, want 0", n)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty output, got %q", string(data))
	}
}
