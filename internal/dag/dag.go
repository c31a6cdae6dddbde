// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dag turns a rule set and requested targets into an ordered
// job plan and executes it with a bounded worker pool. Dependency
// edges follow file artifacts: the producer of a job's input must run
// before the job itself.
package dag

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/pdiddy/pubmine/internal/rule"
)

// Planner resolves targets against a rule set.
type Planner struct {
	set *rule.Set
}

// NewPlanner creates a Planner over the given rule set.
func NewPlanner(set *rule.Set) *Planner {
	return &Planner{set: set}
}

// Plan is the set of jobs that must run, in topological order, plus
// the dependency edges between them.
type Plan struct {
	// Jobs lists the scheduled jobs in a valid execution order.
	Jobs []rule.Job

	// Reasons maps job IDs to why the job was scheduled.
	Reasons map[string]string

	// deps maps job IDs to the IDs of scheduled jobs they wait for.
	deps map[string][]string
}

// Empty reports whether nothing needs to run.
func (p *Plan) Empty() bool {
	return len(p.Jobs) == 0
}

// Deps returns the scheduled dependencies of a job ID.
func (p *Plan) Deps(id string) []string {
	return p.deps[id]
}

// jobHash keys graph vertices by job ID.
func jobHash(j rule.Job) string {
	return j.ID()
}

// Plan resolves the requested target files to the jobs required to
// bring them up to date. With force set, freshness is ignored and every
// required job is scheduled.
//
// A target with no producing rule is an error. An input with no
// producing rule must already exist on disk.
func (pl *Planner) Plan(targets []string, force bool) (*Plan, error) {
	required := make(map[string]rule.Job)
	requiredDeps := make(map[string][]string)

	// Walk producers breadth-first from the targets, collecting every
	// job the targets transitively depend on.
	var queue []rule.Job
	for _, t := range targets {
		job, ok, err := pl.set.FindProducer(t)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no rule produces target %s", t)
		}
		if _, seen := required[job.ID()]; !seen {
			required[job.ID()] = job
			queue = append(queue, job)
		}
	}

	for len(queue) > 0 {
		job := queue[0]
		queue = queue[1:]

		for _, in := range job.Inputs {
			dep, ok, err := pl.set.FindProducer(in)
			if err != nil {
				return nil, err
			}
			if !ok {
				if _, statErr := os.Stat(in); statErr != nil {
					return nil, fmt.Errorf(
						"job %s: input %s does not exist and no rule produces it",
						job.ID(), in)
				}
				continue
			}
			requiredDeps[job.ID()] = append(requiredDeps[job.ID()], dep.ID())
			if _, seen := required[dep.ID()]; !seen {
				required[dep.ID()] = dep
				queue = append(queue, dep)
			}
		}
	}

	// Decide which required jobs actually run: stale ones, and any job
	// downstream of a running one.
	scheduled := make(map[string]bool)
	reasons := make(map[string]string)

	order, err := topoOrder(required, requiredDeps)
	if err != nil {
		return nil, err
	}

	for _, id := range order {
		job := required[id]
		if force {
			scheduled[id] = true
			reasons[id] = "forced"
			continue
		}
		for _, depID := range requiredDeps[id] {
			if scheduled[depID] {
				scheduled[id] = true
				reasons[id] = fmt.Sprintf("depends on scheduled job %s", depID)
			}
		}
		if scheduled[id] {
			continue
		}
		stale, reason, err := job.Stale()
		if err != nil {
			return nil, err
		}
		if stale {
			scheduled[id] = true
			reasons[id] = reason
		}
	}

	plan := &Plan{
		Reasons: reasons,
		deps:    make(map[string][]string),
	}
	for _, id := range order {
		if !scheduled[id] {
			continue
		}
		plan.Jobs = append(plan.Jobs, required[id])
		for _, depID := range requiredDeps[id] {
			if scheduled[depID] {
				plan.deps[id] = append(plan.deps[id], depID)
			}
		}
	}
	return plan, nil
}

// topoOrder sorts the required jobs topologically, deterministic across
// runs. Cycle detection comes from the graph library; the rule patterns
// should never produce one, but a broken rule set is reported rather
// than hanging the executor.
func topoOrder(required map[string]rule.Job, deps map[string][]string) ([]string, error) {
	g := graph.New(jobHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())

	ids := make([]string, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := g.AddVertex(required[id]); err != nil {
			return nil, fmt.Errorf("adding job %s: %w", id, err)
		}
	}
	for _, id := range ids {
		for _, depID := range deps[id] {
			err := g.AddEdge(depID, id)
			if err != nil && err != graph.ErrEdgeAlreadyExists {
				return nil, fmt.Errorf("dependency %s -> %s: %w", depID, id, err)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("ordering jobs: %w", err)
	}
	return order, nil
}

// Describe writes a human-readable plan listing to w.
func (p *Plan) Describe(w io.Writer) {
	for i, j := range p.Jobs {
		fmt.Fprintf(w, "%2d. %-20s %s\n", i+1, j.ID(), p.Reasons[j.ID()])
	}
}
