package model

import "time"

// RunStatus is the lifecycle state of one verification run
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusFailed  RunStatus = "failed"
)

// Report is the serializable record of one verification run.
// Field names of Searches follow the historical JSONL layout so existing
// evaluation tooling keeps working.
type Report struct {
	RunID      string        `json:"run_id"`
	Claim      string        `json:"claim"`
	Label      string        `json:"label,omitempty"`
	Model      string        `json:"model"`
	Status     RunStatus     `json:"status"`
	Result     *Verdict      `json:"result"` // nil when the claim could not be verified
	Searches   SearchLog     `json:"searches"`
	Usage      Usage         `json:"usage"`
	Iterations int           `json:"iterations"`
	Sources    []SourceRef   `json:"sources,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// SearchLog wraps the ordered search batches of a run
type SearchLog struct {
	GoogleSearches []SearchBatch `json:"google_searches"`
}

// Correct reports whether a labeled report's verdict matched its label.
// The second value is false when the report has no label.
func (r *Report) Correct() (bool, bool) {
	if r.Label == "" {
		return false, false
	}
	return r.Result.Matches(r.Label), true
}
