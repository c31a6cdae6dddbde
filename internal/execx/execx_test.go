// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeExecutor scripts Run outcomes and records invocations.
type fakeExecutor struct {
	lookPathErr error
	runErrs     []error
	calls       []Command
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}
	return "/usr/bin/" + file, nil
}

func (f *fakeExecutor) Run(ctx context.Context, cmd Command) error {
	f.calls = append(f.calls, cmd)
	if len(f.runErrs) == 0 {
		return nil
	}
	err := f.runErrs[0]
	f.runErrs = f.runErrs[1:]
	return err
}

func TestCheckTool(t *testing.T) {
	if err := CheckTool(&fakeExecutor{}, "trminer"); err != nil {
		t.Errorf("CheckTool: %v", err)
	}

	missing := &fakeExecutor{lookPathErr: errors.New("not found")}
	err := CheckTool(missing, "trminer")
	if err == nil {
		t.Fatal("expected error for missing tool")
	}
	if !strings.Contains(err.Error(), "trminer") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	var buf bytes.Buffer
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, "op", &buf, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if buf.Len() != 0 {
		t.Errorf("no warnings expected, got %q", buf.String())
	}
}

func TestRetryEventualSuccess(t *testing.T) {
	var buf bytes.Buffer
	attempts := 0
	err := Retry(context.Background(), 3, time.Millisecond, "op", &buf, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if !strings.Contains(buf.String(), "retrying") {
		t.Errorf("expected retry warnings, got %q", buf.String())
	}
}

func TestRetryExhausted(t *testing.T) {
	var buf bytes.Buffer
	attempts := 0
	err := Retry(context.Background(), 2, time.Millisecond, "op", &buf, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("persistent")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
	if !strings.Contains(err.Error(), "after 3 attempt(s)") {
		t.Errorf("error should count attempts: %v", err)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 5, time.Hour, "op", &bytes.Buffer{}, func(ctx context.Context) error {
		return fmt.Errorf("fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunWithRetry(t *testing.T) {
	fake := &fakeExecutor{runErrs: []error{errors.New("boom"), nil}}
	cmd := Command{Name: "pubfetcher.py", Args: []string{"--pmids", "all.txt"}}

	err := RunWithRetry(context.Background(), fake, cmd, 2, time.Millisecond, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunWithRetry: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(fake.calls))
	}
	if fake.calls[0].Name != "pubfetcher.py" {
		t.Errorf("unexpected command %q", fake.calls[0].Name)
	}
}
