package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmine/internal/dag"
)

// reportFile is the name of the last-run report under the work
// directory.
const reportFile = "last_run.yaml"

// RunReport is the on-disk record of the most recent pipeline run. It
// lets the researcher see what the last invocation did without reading
// the ledger database.
type RunReport struct {
	Targets []string    `yaml:"targets"`
	Jobs    []JobReport `yaml:"jobs"`
	Summary RunSummary  `yaml:"summary"`
}

// JobReport records one job outcome in serializable form.
type JobReport struct {
	Job      string   `yaml:"job"`
	Rule     string   `yaml:"rule"`
	Dataset  string   `yaml:"dataset,omitempty"`
	Status   string   `yaml:"status"`
	Duration string   `yaml:"duration,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Outputs  []string `yaml:"outputs"`
}

// RunSummary stores run statistics and a timestamp.
type RunSummary struct {
	Done      int       `yaml:"done"`
	Failed    int       `yaml:"failed"`
	Skipped   int       `yaml:"skipped"`
	Timestamp time.Time `yaml:"timestamp"`
}

// ReportPath returns the last-run report location for a work directory.
func ReportPath(workDir string) string {
	return filepath.Join(workDir, reportFile)
}

// WriteRunReport saves the run outcome to path.
func WriteRunReport(path string, targets []string, results []dag.Result) error {
	report := RunReport{
		Targets: targets,
		Summary: RunSummary{Timestamp: time.Now()},
	}
	for _, r := range results {
		jr := JobReport{
			Job:     r.Job.ID(),
			Rule:    r.Job.Rule.Name,
			Dataset: r.Job.Dataset,
			Status:  string(r.Status),
			Outputs: r.Job.Outputs,
		}
		if r.Duration > 0 {
			jr.Duration = r.Duration.Round(time.Millisecond).String()
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		report.Jobs = append(report.Jobs, jr)

		switch r.Status {
		case dag.StatusDone:
			report.Summary.Done++
		case dag.StatusFailed:
			report.Summary.Failed++
		case dag.StatusSkipped:
			report.Summary.Skipped++
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunReport loads a previously saved run report from disk.
func ReadRunReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run report: %w", err)
	}
	var report RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing run report: %w", err)
	}
	return &report, nil
}
