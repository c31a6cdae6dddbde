// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dag

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pubmine/internal/rule"
)

// JobStatus is the terminal state of an executed job.
type JobStatus string

const (
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
	StatusSkipped JobStatus = "skipped"
)

// Result records the outcome of one job.
type Result struct {
	Job      rule.Job
	Status   JobStatus
	Started  time.Time
	Duration time.Duration
	Err      error
}

// node is a plan job with its scheduling state.
type node struct {
	job        rule.Job
	depCount   atomic.Int32
	dependents []*node
	skipOnce   sync.Once
	status     JobStatus
	err        error
}

// Executor runs a plan with a bounded worker pool. Independent jobs
// (for example, the search jobs of different datasets) run in parallel;
// a failed job skips everything downstream of it while unrelated
// branches finish.
type Executor struct {
	workers int
	out     io.Writer

	// Observe, when set, is called with every job result as it
	// completes. The run ledger hooks in here.
	Observe func(Result)

	mu sync.Mutex
}

// NewExecutor creates an Executor writing progress to out.
func NewExecutor(workers int, out io.Writer) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{workers: workers, out: out}
}

// logf serializes progress output across workers.
func (e *Executor) logf(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.out, format, args...)
}

func (e *Executor) observe(r Result) {
	if e.Observe == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Observe(r)
}

// run is the per-execution scheduling state shared by the workers.
type run struct {
	exec    *Executor
	ready   chan *node
	pending atomic.Int32
	cancel  context.CancelFunc

	failMu   sync.Mutex
	firstErr error
}

// fail records the first real job error and cancels the run so queued
// work is skipped instead of started.
func (r *run) fail(err error) {
	r.failMu.Lock()
	if r.firstErr == nil {
		r.firstErr = err
	}
	r.failMu.Unlock()
	r.cancel()
}

// finish retires one node; the last retirement closes the ready queue.
func (r *run) finish() {
	if r.pending.Add(-1) == 0 {
		close(r.ready)
	}
}

// skip marks a node and everything downstream of it as skipped.
func (r *run) skip(n *node, cause error) {
	n.skipOnce.Do(func() {
		n.status = StatusSkipped
		n.err = cause
		r.exec.logf("[%s] skipped: %v\n", n.job.ID(), cause)
		r.exec.observe(Result{Job: n.job, Status: StatusSkipped, Started: time.Now(), Err: cause})
		r.finish()
		for _, d := range n.dependents {
			r.skip(d, fmt.Errorf("upstream job %s skipped", n.job.ID()))
		}
	})
}

// runNode executes one job, stamps its outputs, and unlocks dependents.
func (r *run) runNode(ctx context.Context, n *node) {
	r.exec.logf("[%s] starting\n", n.job.ID())
	started := time.Now()

	err := n.job.Rule.Run(ctx, n.job, r.exec.out)
	if err == nil {
		err = n.job.Stamp()
	}
	elapsed := time.Since(started).Round(time.Millisecond)

	if err != nil {
		n.status = StatusFailed
		n.err = err
		r.exec.logf("[%s] failed after %v: %v\n", n.job.ID(), elapsed, err)
		r.exec.observe(Result{Job: n.job, Status: StatusFailed, Started: started, Duration: elapsed, Err: err})
		// Cancel first: a sibling finishing concurrently must not
		// enqueue and execute a node this cascade is about to skip.
		r.fail(fmt.Errorf("job %s: %w", n.job.ID(), err))
		for _, d := range n.dependents {
			r.skip(d, fmt.Errorf("upstream job %s failed", n.job.ID()))
		}
		r.finish()
		return
	}

	n.status = StatusDone
	r.exec.logf("[%s] done in %v\n", n.job.ID(), elapsed)
	r.exec.observe(Result{Job: n.job, Status: StatusDone, Started: started, Duration: elapsed})

	for _, d := range n.dependents {
		if d.depCount.Add(-1) == 0 {
			r.ready <- d
		}
	}
	r.finish()
}

// Execute runs the plan. It returns the first real job error; skipped
// jobs are a symptom, not a cause, and only appear in the summary.
func (e *Executor) Execute(ctx context.Context, plan *Plan) error {
	if plan.Empty() {
		fmt.Fprintln(e.out, "Nothing to do: all targets are up to date.")
		return nil
	}

	nodes := make(map[string]*node, len(plan.Jobs))
	for _, j := range plan.Jobs {
		nodes[j.ID()] = &node{job: j}
	}
	for _, j := range plan.Jobs {
		n := nodes[j.ID()]
		for _, depID := range plan.Deps(j.ID()) {
			dep := nodes[depID]
			dep.dependents = append(dep.dependents, n)
			n.depCount.Add(1)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		exec:   e,
		ready:  make(chan *node, len(nodes)),
		cancel: cancel,
	}
	r.pending.Store(int32(len(nodes)))

	// Seed the queue with jobs that wait on nothing. Plan order keeps
	// this deterministic.
	for _, j := range plan.Jobs {
		n := nodes[j.ID()]
		if n.depCount.Load() == 0 {
			r.ready <- n
		}
	}

	// Workers drain the queue until every node has retired; they never
	// exit early, so a failure cannot strand queued nodes.
	var g errgroup.Group
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			for n := range r.ready {
				if runCtx.Err() != nil {
					r.skip(n, fmt.Errorf("run cancelled: %w", runCtx.Err()))
					continue
				}
				r.runNode(runCtx, n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	e.summarize(plan, nodes)

	if r.firstErr != nil {
		return r.firstErr
	}
	return ctx.Err()
}

// summarize prints the run outcome per status.
func (e *Executor) summarize(plan *Plan, nodes map[string]*node) {
	var done, failed, skipped int
	for _, j := range plan.Jobs {
		switch nodes[j.ID()].status {
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	fmt.Fprintf(e.out, "\nRun summary: %d done, %d failed, %d skipped (total: %d)\n",
		done, failed, skipped, len(plan.Jobs))
}
