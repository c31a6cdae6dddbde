package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/pubmine/internal/dag"
	"github.com/pdiddy/pubmine/internal/rule"
	"github.com/pdiddy/pubmine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), types.LedgerConfig{MaxResults: 20})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(ruleName, dataset string, status dag.JobStatus, err error) dag.Result {
	r := &rule.Rule{Name: ruleName}
	return dag.Result{
		Job:      rule.Job{Rule: r, Dataset: dataset, Outputs: []string{"data/" + ruleName + ".txt"}},
		Status:   status,
		Started:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Duration: 1500 * time.Millisecond,
		Err:      err,
	}
}

func TestOpenCreatesWorkDir(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "nested", ".pubmine")
	s, err := Open(workDir, types.LedgerConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(workDir, "runs.db")); err != nil {
		t.Errorf("ledger database should exist: %v", err)
	}
}

func TestRecordAndHistory(t *testing.T) {
	s := openTestStore(t)

	results := []dag.Result{
		testResult("search", "covid", dag.StatusDone, nil),
		testResult("search", "diabetes", dag.StatusFailed, errors.New("pubfetcher exited 1")),
		testResult("merge", "", dag.StatusSkipped, errors.New("upstream job search:diabetes failed")),
	}
	for _, r := range results {
		if err := s.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := s.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	// Newest first.
	if entries[0].Job != "merge" || entries[2].Job != "search:covid" {
		t.Errorf("unexpected order: %s ... %s", entries[0].Job, entries[2].Job)
	}

	failed := entries[1]
	if failed.Rule != "search" || failed.Dataset != "diabetes" {
		t.Errorf("rule/dataset = %s/%s", failed.Rule, failed.Dataset)
	}
	if failed.Status != string(dag.StatusFailed) {
		t.Errorf("status = %s", failed.Status)
	}
	if failed.Error != "pubfetcher exited 1" {
		t.Errorf("error = %q", failed.Error)
	}
	if failed.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", failed.Duration)
	}
	if !failed.Started.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("started = %v", failed.Started)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		r := testResult(fmt.Sprintf("rule%d", i), "", dag.StatusDone, nil)
		if err := s.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := s.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Job != "rule4" {
		t.Errorf("newest entry = %s, want rule4", entries[0].Job)
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	workDir := t.TempDir()
	s, err := Open(workDir, types.LedgerConfig{MaxResults: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Record(testResult(fmt.Sprintf("rule%d", i), "", dag.StatusDone, nil)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := s.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want configured default 3", len(entries))
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	workDir := t.TempDir()

	s, err := Open(workDir, types.LedgerConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Record(testResult("download", "", dag.StatusDone, nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s2, err := Open(workDir, types.LedgerConfig{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	entries, err := s2.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].Job != "download" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFormatHistory(t *testing.T) {
	var buf bytes.Buffer
	FormatHistory(nil, &buf)
	if !strings.Contains(buf.String(), "No recorded runs") {
		t.Errorf("empty history output = %q", buf.String())
	}

	buf.Reset()
	FormatHistory([]Entry{{
		Job:      "search:covid",
		Status:   "done",
		Started:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Duration: 2 * time.Second,
	}}, &buf)
	out := buf.String()
	if !strings.Contains(out, "search:covid") || !strings.Contains(out, "done") {
		t.Errorf("formatted history = %q", out)
	}
}
