// Package scheduler triggers recurring synchronization runs. It is the
// scheduling collaborator of the orchestrator: it only ever calls the
// single ExecuteSync entry point, via the Runner it was given.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Runner executes one synchronization cycle for a pairing.
type Runner func(ctx context.Context, configID string) error

// ParseInterval understands the named intervals plus any Go duration
// string ("90m").
func ParseInterval(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "hourly":
		return time.Hour, nil
	case "daily":
		return 24 * time.Hour, nil
	case "weekly":
		return 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be positive", s)
	}
	return d, nil
}

type entry struct {
	stop    chan struct{}
	running atomic.Bool
}

// Scheduler owns one timer goroutine per registered pairing.
type Scheduler struct {
	run Runner

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

// New builds a scheduler around a runner.
func New(run Runner) *Scheduler {
	return &Scheduler{
		run:     run,
		entries: make(map[string]*entry),
	}
}

// Register starts a recurring trigger for a pairing. Re-registering an
// id replaces its previous interval.
func (s *Scheduler) Register(ctx context.Context, configID string, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	s.mu.Lock()
	if prev, ok := s.entries[configID]; ok {
		close(prev.stop)
	}
	e := &entry{stop: make(chan struct{})}
	s.entries[configID] = e
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, configID, every, e)

	slog.Info("schedule registered", "pairing", configID, "every", every)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, configID string, every time.Duration, e *entry) {
	defer s.wg.Done()

	// a timer, not a ticker, so a slow run cannot queue up ticks
	timer := time.NewTimer(every)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-timer.C:
			s.fire(ctx, configID, e)
			timer.Reset(every)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, configID string, e *entry) {
	// skip the tick when the previous run is still going
	if !e.running.CompareAndSwap(false, true) {
		slog.Info("previous run still active, skipping tick", "pairing", configID)
		return
	}
	defer e.running.Store(false)

	if err := s.run(ctx, configID); err != nil && ctx.Err() == nil {
		slog.Error("scheduled run failed", "pairing", configID, "err", err)
	}
}

// Unregister stops the trigger of one pairing.
func (s *Scheduler) Unregister(configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[configID]; ok {
		close(e.stop)
		delete(s.entries, configID)
	}
}

// Stop halts every trigger and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, e := range s.entries {
		close(e.stop)
		delete(s.entries, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
