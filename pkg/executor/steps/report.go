package steps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report summarizes one run.
type Report struct {
	Task       string        `json:"task"`
	Status     string        `json:"status"`
	FailedStep string        `json:"failed_step,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Steps      []StepResult  `json:"steps"`
	Recoveries int           `json:"recoveries"`
}

// StepResult records one executed step.
type StepResult struct {
	Name     string        `json:"name"`
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration"`
	Retried  bool          `json:"retried"`
	Error    string        `json:"error,omitempty"`
}

// Completed returns the names of the steps that finished without error.
func (r *Report) Completed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Error == "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// Succeeded reports whether every step ran.
func (r *Report) Succeeded() bool {
	return r.Status == statusSuccess
}

func (r *Report) stop(status, step string, err error) *Report {
	r.Status = status
	r.FailedStep = step
	r.Error = err.Error()
	return r
}

// WriteJSON writes the report to path, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
