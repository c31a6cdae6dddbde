// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package execx runs the external collaborator tools. It abstracts
// subprocess execution behind an interface so the pipeline stages can be
// tested without the real binaries on PATH.
package execx

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	// Name is the executable name or path.
	Name string

	// Args are the command-line arguments, excluding the executable.
	Args []string

	// Env holds extra KEY=VALUE entries appended to the inherited
	// environment.
	Env []string

	// Stdout and Stderr receive the subprocess output streams. A nil
	// writer discards the stream.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor abstracts command execution for testing.
type Executor interface {
	// LookPath reports whether the executable exists on PATH, returning
	// its resolved path.
	LookPath(file string) (string, error)

	// Run executes the command and waits for it to finish. A non-zero
	// exit status is an error.
	Run(ctx context.Context, cmd Command) error
}

// OSExecutor is the production executor backed by os/exec.
type OSExecutor struct{}

func (OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OSExecutor) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	return c.Run()
}

// Default is the executor used outside tests.
var Default Executor = OSExecutor{}

// CheckTool verifies that the named executable is available, returning
// an error that tells the user what to install when it is not.
func CheckTool(e Executor, name string) error {
	if _, err := e.LookPath(name); err != nil {
		return fmt.Errorf("required tool %s not found on PATH: %w", name, err)
	}
	return nil
}

// Retry runs fn and retries failures with exponential backoff. The
// delay starts at baseDelay and doubles each attempt: base, 2x, 4x, ...
// If the context is cancelled, during an attempt or during a backoff
// wait, the context error is returned and no further attempts are made.
// Progress messages name desc and go to w.
func Retry(ctx context.Context, maxRetries int, baseDelay time.Duration, desc string, w io.Writer, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= maxRetries {
			return fmt.Errorf("%s failed after %d attempt(s): %w", desc, attempt+1, err)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * baseDelay
		fmt.Fprintf(w, "warning: %s failed (%v), retrying in %v (attempt %d/%d)\n",
			desc, err, backoff, attempt+1, maxRetries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// RunWithRetry executes the command through Retry.
func RunWithRetry(ctx context.Context, e Executor, cmd Command, maxRetries int, baseDelay time.Duration, w io.Writer) error {
	return Retry(ctx, maxRetries, baseDelay, cmd.Name, w, func(ctx context.Context) error {
		return e.Run(ctx, cmd)
	})
}
