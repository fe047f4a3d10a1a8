package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"drivesync/internal/drive"
)

const (
	DefaultBatchSize     = 10
	DefaultRetryAttempts = 3
	DefaultBaseDelay     = 500 * time.Millisecond
	DefaultBatchDelay    = 1 * time.Second
)

var errCancelled = errors.New("batch cancelled")

// Operation is one unit of work against the external store.
type Operation interface {
	// Name identifies the operation in logs and error records.
	Name() string
	// Execute performs the operation.
	Execute(ctx context.Context) error
	// Validate performs existence checks only; used for dry runs.
	Validate(ctx context.Context) error
}

// ProgressFunc is invoked after every chunk.
type ProgressFunc func(processed, total int, snapshot Record)

// ResultFunc is invoked after every operation settles, in execution
// order. attempts is how often the operation was tried.
type ResultFunc func(index int, name string, err error, attempts int)

// Options tunes one Process invocation.
type Options struct {
	BatchSize       int
	RetryAttempts   int
	ContinueOnError bool
	DryRun          bool
	OnProgress      ProgressFunc
	OnResult        ResultFunc
}

type runState struct {
	record     Record
	cancel     chan struct{}
	cancelOnce sync.Once
}

// Executor runs operation lists in rate-limited chunks with per-op
// retry. Independent Process invocations may run concurrently, but the
// operations inside one invocation execute strictly sequentially: the
// target tree is shared mutable state, and overlapping moves or deletes
// would break its parent/child invariants.
type Executor struct {
	baseDelay  time.Duration
	batchDelay time.Duration

	mu      sync.RWMutex
	records map[string]*runState
}

// NewExecutor builds an executor. baseDelay seeds the exponential
// retry backoff; batchDelay is the pause between chunks, which keeps
// call volume under the provider's quota ceiling. Zero values take the
// defaults; the inter-chunk pause is mandatory in normal operation, so
// disabling it requires an explicit negative batchDelay.
func NewExecutor(baseDelay, batchDelay time.Duration) *Executor {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if batchDelay == 0 {
		batchDelay = DefaultBatchDelay
	}
	if batchDelay < 0 {
		batchDelay = 0
	}
	return &Executor{
		baseDelay:  baseDelay,
		batchDelay: batchDelay,
		records:    make(map[string]*runState),
	}
}

// Process executes ops in chunks of opts.BatchSize, in input order,
// and returns the final record snapshot. The record stays registered
// until Cleanup removes it.
func (e *Executor) Process(ctx context.Context, ops []Operation, opts Options) Record {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}

	st := &runState{
		record: Record{
			ID:        uuid.NewString(),
			Status:    StatusRunning,
			StartedAt: time.Now(),
			Total:     len(ops),
		},
		cancel: make(chan struct{}),
	}
	e.mu.Lock()
	e.records[st.record.ID] = st
	e.mu.Unlock()

	slog.Info("batch start",
		"id", st.record.ID,
		"total", len(ops),
		"batch_size", opts.BatchSize,
		"retry_attempts", opts.RetryAttempts,
		"dry_run", opts.DryRun,
	)

	for start := 0; start < len(ops); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(ops))

		for i := start; i < end; i++ {
			// cancellation is checked at operation boundaries only
			if e.interrupted(ctx, st) {
				return e.finish(st, StatusCancelled)
			}

			op := ops[i]
			attempts, err := e.attempt(ctx, st, op, opts)
			if errors.Is(err, errCancelled) {
				return e.finish(st, StatusCancelled)
			}

			e.mu.Lock()
			st.record.Processed++
			if err == nil {
				st.record.Succeeded++
			} else {
				st.record.Failed++
				st.record.Errors = append(st.record.Errors, OpError{
					Operation: op.Name(),
					Message:   err.Error(),
					Attempts:  attempts,
				})
			}
			e.mu.Unlock()

			if opts.OnResult != nil {
				opts.OnResult(i, op.Name(), err, attempts)
			}

			if err != nil {
				slog.Error("operation failed", "batch", st.record.ID, "op", op.Name(), "attempts", attempts, "err", err)
				if !opts.ContinueOnError {
					return e.finish(st, StatusFailed)
				}
			}
		}

		if opts.OnProgress != nil {
			e.mu.RLock()
			snap := st.record.snapshot()
			e.mu.RUnlock()
			opts.OnProgress(snap.Processed, snap.Total, snap)
		}

		// rate limiting between chunks; the provider enforces its own
		// quota and unthrottled calls degrade to hard failures
		if end < len(ops) && e.batchDelay > 0 {
			if !e.pause(ctx, st, e.batchDelay) {
				return e.finish(st, StatusCancelled)
			}
		}
	}

	return e.finish(st, StatusCompleted)
}

// attempt runs one operation with retry. Only structurally retryable
// errors (transient, quota) are retried; everything else fails on the
// first attempt.
func (e *Executor) attempt(ctx context.Context, st *runState, op Operation, opts Options) (int, error) {
	var err error
	for attempt := 1; ; attempt++ {
		if opts.DryRun {
			err = op.Validate(ctx)
		} else {
			err = op.Execute(ctx)
		}
		if err == nil {
			return attempt, nil
		}
		if !drive.Retryable(err) || attempt >= opts.RetryAttempts {
			return attempt, err
		}

		delay := e.baseDelay << (attempt - 1)
		slog.Debug("retrying operation", "batch", st.record.ID, "op", op.Name(), "attempt", attempt, "delay", delay, "err", err)
		if !e.pause(ctx, st, delay) {
			return attempt, errCancelled
		}
	}
}

// pause sleeps for d, returning false when the run was cancelled.
func (e *Executor) pause(ctx context.Context, st *runState, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-st.cancel:
		return false
	}
}

func (e *Executor) interrupted(ctx context.Context, st *runState) bool {
	select {
	case <-ctx.Done():
		return true
	case <-st.cancel:
		return true
	default:
		return false
	}
}

func (e *Executor) finish(st *runState, status Status) Record {
	e.mu.Lock()
	st.record.Status = status
	st.record.EndedAt = time.Now()
	snap := st.record.snapshot()
	e.mu.Unlock()

	slog.Info("batch done",
		"id", snap.ID,
		"status", snap.Status,
		"succeeded", snap.Succeeded,
		"failed", snap.Failed,
		"took", snap.EndedAt.Sub(snap.StartedAt),
	)
	return snap
}

// Cancel requests a prompt stop of a running batch. Returns false when
// the record is unknown or already terminal.
func (e *Executor) Cancel(id string) bool {
	e.mu.RLock()
	st, ok := e.records[id]
	terminal := ok && st.record.Status.Terminal()
	e.mu.RUnlock()

	if !ok || terminal {
		return false
	}
	st.cancelOnce.Do(func() { close(st.cancel) })
	return true
}

// Status returns a copy of a record; safe to call while the batch runs.
func (e *Executor) Status(id string) (Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.records[id]
	if !ok {
		return Record{}, false
	}
	return st.record.snapshot(), true
}

// List returns snapshots of all known records.
func (e *Executor) List() []Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Record, 0, len(e.records))
	for _, st := range e.records {
		out = append(out, st.record.snapshot())
	}
	return out
}

// Cleanup drops terminal records that ended before the threshold.
// Running records are never removed.
func (e *Executor) Cleanup(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, st := range e.records {
		if st.record.Status.Terminal() && st.record.EndedAt.Before(cutoff) {
			delete(e.records, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("batch records cleaned", "removed", removed)
	}
	return removed
}
