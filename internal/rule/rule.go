// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rule defines the declarative rule model the pipeline is built
// from: named rules with file inputs and outputs, a single {dataset}
// wildcard dimension, and make-style freshness over file modification
// times.
package rule

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Wildcard is the placeholder substituted with a dataset name when a rule
// is instantiated. It is the only wildcard the engine supports.
const Wildcard = "{dataset}"

// StampName is the sentinel file written inside a directory output when
// the producing job completes. Directory outputs take their freshness
// from the stamp, not from the directory entry itself.
const StampName = ".done"

// Rule declares one pipeline step: input path patterns, output path
// patterns, and the function that produces the outputs. Patterns may
// contain the {dataset} wildcard; an output pattern ending in a path
// separator denotes a directory output.
type Rule struct {
	// Name identifies the rule ("search", "merge", "download", ...).
	Name string

	// Doc is a one-line description shown by plan and graph output.
	Doc string

	// Inputs are the path patterns the rule consumes.
	Inputs []string

	// Outputs are the path patterns the rule produces.
	Outputs []string

	// Run executes an instantiated job. Concrete paths are on the job.
	Run func(ctx context.Context, job Job, w io.Writer) error
}

// HasWildcard reports whether the rule is instantiated per dataset.
// By construction (see Validate) outputs decide: a rule whose outputs
// carry the wildcard is a per-dataset rule.
func (r *Rule) HasWildcard() bool {
	for _, o := range r.Outputs {
		if strings.Contains(o, Wildcard) {
			return true
		}
	}
	return false
}

// Validate checks the rule's pattern invariants: at least one output,
// and either every output carries the wildcard or none does.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule without a name")
	}
	if len(r.Outputs) == 0 {
		return fmt.Errorf("rule %s declares no outputs", r.Name)
	}
	wild := strings.Contains(r.Outputs[0], Wildcard)
	for _, o := range r.Outputs[1:] {
		if strings.Contains(o, Wildcard) != wild {
			return fmt.Errorf("rule %s: not all output patterns carry the %s wildcard", r.Name, Wildcard)
		}
	}
	if !wild {
		for _, in := range r.Inputs {
			if strings.Contains(in, Wildcard) {
				return fmt.Errorf("rule %s: input %s carries a wildcard but outputs do not", r.Name, in)
			}
		}
	}
	return nil
}

// Expand substitutes the dataset name into a path pattern.
func Expand(pattern, dataset string) string {
	return strings.ReplaceAll(pattern, Wildcard, dataset)
}

// Match reports whether path is a concrete instance of pattern. For a
// wildcard pattern the bound dataset name is returned; it must be a
// single non-empty path element.
func Match(pattern, path string) (dataset string, ok bool) {
	idx := strings.Index(pattern, Wildcard)
	if idx < 0 {
		return "", pattern == path
	}
	prefix := pattern[:idx]
	suffix := pattern[idx+len(Wildcard):]
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	mid := path[len(prefix) : len(path)-len(suffix)]
	if mid == "" || strings.ContainsRune(mid, filepath.Separator) || strings.ContainsRune(mid, '/') {
		return "", false
	}
	return mid, true
}

// Job is a rule instantiated for zero or one dataset, with all patterns
// expanded to concrete paths.
type Job struct {
	Rule    *Rule
	Dataset string
	Inputs  []string
	Outputs []string
}

// Instantiate expands the rule's patterns for the given dataset. Rules
// without the wildcard must be instantiated with an empty dataset.
func (r *Rule) Instantiate(dataset string) (Job, error) {
	if r.HasWildcard() && dataset == "" {
		return Job{}, fmt.Errorf("rule %s requires a dataset", r.Name)
	}
	if !r.HasWildcard() && dataset != "" {
		return Job{}, fmt.Errorf("rule %s takes no dataset, got %q", r.Name, dataset)
	}
	j := Job{Rule: r, Dataset: dataset}
	for _, in := range r.Inputs {
		j.Inputs = append(j.Inputs, Expand(in, dataset))
	}
	for _, out := range r.Outputs {
		j.Outputs = append(j.Outputs, Expand(out, dataset))
	}
	return j, nil
}

// ID returns a stable identifier: "rule" or "rule:dataset".
func (j Job) ID() string {
	if j.Dataset == "" {
		return j.Rule.Name
	}
	return j.Rule.Name + ":" + j.Dataset
}

// IsDir reports whether an output path denotes a directory output.
func IsDir(output string) bool {
	return strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator))
}

// stampPath returns the freshness sentinel for an output: the output
// itself for plain files, the stamp file inside directory outputs.
func stampPath(output string) string {
	if IsDir(output) {
		return filepath.Join(output, StampName)
	}
	return output
}

// modTime returns the freshness time of an input or output path, or a
// zero time when the path does not exist.
func modTime(path string) (time.Time, error) {
	info, err := os.Stat(stampPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Stale reports whether the job must run: an output is missing, or an
// input is newer than the oldest output. Missing inputs also mark the
// job stale; whether a producer exists for them is the planner's
// concern. The returned reason is empty for fresh jobs.
func (j Job) Stale() (bool, string, error) {
	var oldest time.Time
	for _, out := range j.Outputs {
		t, err := modTime(out)
		if err != nil {
			return false, "", fmt.Errorf("checking output %s: %w", out, err)
		}
		if t.IsZero() {
			return true, fmt.Sprintf("output %s missing", out), nil
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	for _, in := range j.Inputs {
		t, err := modTime(in)
		if err != nil {
			return false, "", fmt.Errorf("checking input %s: %w", in, err)
		}
		if t.IsZero() {
			return true, fmt.Sprintf("input %s missing", in), nil
		}
		if t.After(oldest) {
			return true, fmt.Sprintf("input %s newer than outputs", in), nil
		}
	}
	return false, "", nil
}

// Stamp marks the job's directory outputs complete by writing their
// sentinel files. Plain file outputs need no stamping.
func (j Job) Stamp() error {
	for _, out := range j.Outputs {
		if !IsDir(out) {
			continue
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", out, err)
		}
		stamp := filepath.Join(out, StampName)
		if err := os.WriteFile(stamp, nil, 0o644); err != nil {
			return fmt.Errorf("writing stamp %s: %w", stamp, err)
		}
		now := time.Now()
		if err := os.Chtimes(stamp, now, now); err != nil {
			return fmt.Errorf("touching stamp %s: %w", stamp, err)
		}
	}
	return nil
}

// Set is an ordered collection of rules forming one pipeline.
type Set struct {
	rules []*Rule
}

// NewSet validates the rules and checks that no two rules can produce
// the same concrete output.
func NewSet(rules ...*Rule) (*Set, error) {
	byName := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if byName[r.Name] {
			return nil, fmt.Errorf("duplicate rule name %s", r.Name)
		}
		byName[r.Name] = true
	}
	for i, a := range rules {
		for _, b := range rules[i+1:] {
			for _, oa := range a.Outputs {
				for _, ob := range b.Outputs {
					if PatternsOverlap(oa, ob) {
						return nil, fmt.Errorf(
							"rules %s and %s both produce %s", a.Name, b.Name, oa)
					}
				}
			}
		}
	}
	return &Set{rules: rules}, nil
}

// PatternsOverlap reports whether two path patterns can name the same
// concrete path. Identical patterns always overlap; a wildcard pattern
// overlaps a plain path when the plain path matches it.
func PatternsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if _, ok := Match(a, b); ok {
		return true
	}
	if _, ok := Match(b, a); ok {
		return true
	}
	return false
}

// Rules returns the rules in declaration order.
func (s *Set) Rules() []*Rule {
	return s.rules
}

// Lookup returns the rule with the given name, or nil.
func (s *Set) Lookup(name string) *Rule {
	for _, r := range s.rules {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// FindProducer returns the job that produces the requested concrete
// path, or ok=false when no rule's outputs match it.
func (s *Set) FindProducer(path string) (Job, bool, error) {
	for _, r := range s.rules {
		for _, out := range r.Outputs {
			dataset, ok := Match(out, path)
			if !ok {
				continue
			}
			j, err := r.Instantiate(dataset)
			if err != nil {
				return Job{}, false, err
			}
			return j, true, nil
		}
	}
	return Job{}, false, nil
}
