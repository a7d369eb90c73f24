package pipeline

import "time"

// RunResult represents the settled outcome of a pipeline run.
type RunResult struct {
	RunID     string         `json:"run_id"`
	Pipeline  string         `json:"pipeline"`
	State     string         `json:"state"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	SettledAt time.Time      `json:"settled_at"`
	Duration  time.Duration  `json:"duration"`
}
