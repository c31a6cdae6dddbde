// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists job outcomes in a SQLite database so past
// runs can be inspected with `pubmine history`.
package ledger

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmine/internal/dag"
	"github.com/pdiddy/pubmine/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run ledger database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the ledger database at workDir/runs.db,
// creating the schema when missing.
func Open(workDir string, cfg types.LedgerConfig) (*Store, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	dbPath := filepath.Join(workDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS job_runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			job TEXT NOT NULL,
			rule TEXT NOT NULL,
			dataset TEXT,
			status TEXT NOT NULL,
			started TEXT NOT NULL,
			duration_ms INTEGER,
			error TEXT,
			outputs TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_started ON job_runs(started)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts one job outcome.
func (s *Store) Record(r dag.Result) error {
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO job_runs (job, rule, dataset, status, started, duration_ms, error, outputs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Job.ID(),
		r.Job.Rule.Name,
		r.Job.Dataset,
		string(r.Status),
		r.Started.UTC().Format(time.RFC3339),
		r.Duration.Milliseconds(),
		errMsg,
		strings.Join(r.Job.Outputs, "\n"),
	)
	if err != nil {
		return fmt.Errorf("recording job %s: %w", r.Job.ID(), err)
	}
	return nil
}

// Entry is one row of run history.
type Entry struct {
	Job      string
	Rule     string
	Dataset  string
	Status   string
	Started  time.Time
	Duration time.Duration
	Error    string
}

// History returns the most recent entries, newest first. A limit of 0
// uses the configured default.
func (s *Store) History(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.Query(
		`SELECT job, rule, dataset, status, started, duration_ms, error
		 FROM job_runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started string
		var durationMS int64
		if err := rows.Scan(&e.Job, &e.Rule, &e.Dataset, &e.Status, &started, &durationMS, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if t, parseErr := time.Parse(time.RFC3339, started); parseErr == nil {
			e.Started = t
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return entries, nil
}

// FormatHistory writes entries as a human-readable table to w.
func FormatHistory(entries []Entry, w io.Writer) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-8s  %-20s  %-10s  %s\n",
		"Job", "Status", "Started", "Duration", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range entries {
		started := ""
		if !e.Started.IsZero() {
			started = e.Started.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-20s  %-8s  %-20s  %-10s  %s\n",
			e.Job, e.Status, started, e.Duration.Round(time.Millisecond), e.Error)
	}
}
