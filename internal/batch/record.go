package batch

import (
	"time"
)

// Status is the lifecycle state of a batch record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the record will not change anymore.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// OpError records one permanently failed operation.
type OpError struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
	// Attempts is how often the operation was tried before giving up.
	Attempts int `json:"attempts"`
}

// Record tracks one Process invocation. It is mutated only by the
// goroutine running that batch; any other caller reads copies via
// Status on the executor.
type Record struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Errors    []OpError `json:"errors,omitempty"`
}

func (r *Record) snapshot() Record {
	out := *r
	out.Errors = append([]OpError(nil), r.Errors...)
	return out
}
