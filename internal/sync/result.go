package sync

import (
	"time"
)

// Outcome is the terminal state of one executed action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// ActionOutcome pairs a planned action with what happened to it. The
// slice order in RunResult reflects true execution order.
type ActionOutcome struct {
	Action  PlannedAction `json:"action"`
	Outcome Outcome       `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// Counts summarizes a run.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// RunResult is the record of one ExecuteSync invocation. Appended to
// during execution, immutable once EndedAt is set.
type RunResult struct {
	RunID     string          `json:"run_id"`
	ConfigID  string          `json:"config_id"`
	DryRun    bool            `json:"dry_run"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Counts    Counts          `json:"counts"`
	Outcomes  []ActionOutcome `json:"outcomes"`
	// BatchID links to the executor record that ran the actions.
	BatchID string `json:"batch_id,omitempty"`
}

// Duration is the wall-clock span of the run.
func (r *RunResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
