package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"drivesync/internal/batch"
	"drivesync/internal/drive"
)

// Store is the optional persistence collaborator. The orchestrator
// works entirely from memory; a store only adds durability across
// restarts.
type Store interface {
	SaveConfig(cfg *OperationConfig) error
	SaveRun(r *RunResult) error
}

// OrchestratorOptions are the explicit collaborators of an
// orchestrator. There is no ambient session or global drive handle;
// everything arrives here.
type OrchestratorOptions struct {
	Source   drive.API
	Target   drive.API
	Executor *batch.Executor
	Resolver *Resolver // optional; zero resolver has no merge/manual collaborators
	Store    Store     // optional

	// Batch tuning applied to every run of this orchestrator.
	BatchSize       int
	RetryAttempts   int
	ContinueOnError bool
}

// Orchestrator ties analyzer, planner, resolver and executor into one
// synchronization run and keeps per-pairing history.
type Orchestrator struct {
	source   drive.API
	target   drive.API
	executor *batch.Executor
	resolver *Resolver
	store    Store

	batchSize       int
	retryAttempts   int
	continueOnError bool

	mu      sync.RWMutex
	configs map[string]*OperationConfig
	history map[string][]*RunResult
	running map[string]context.CancelFunc
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Executor == nil {
		opts.Executor = batch.NewExecutor(0, 0)
	}
	if opts.Resolver == nil {
		opts.Resolver = &Resolver{}
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = batch.DefaultRetryAttempts
	}
	return &Orchestrator{
		source:          opts.Source,
		target:          opts.Target,
		executor:        opts.Executor,
		resolver:        opts.Resolver,
		store:           opts.Store,
		batchSize:       opts.BatchSize,
		retryAttempts:   opts.RetryAttempts,
		continueOnError: opts.ContinueOnError,
		configs:         make(map[string]*OperationConfig),
		history:         make(map[string][]*RunResult),
		running:         make(map[string]context.CancelFunc),
	}
}

// Executor exposes the batch executor (status queries, cleanup).
func (o *Orchestrator) Executor() *batch.Executor {
	return o.executor
}

// Register validates and adopts a pairing config; same-id registration
// replaces the previous one.
func (o *Orchestrator) Register(cfg *OperationConfig) (*OperationConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.configs[cfg.ID] = cfg
	snapshot := *cfg
	o.mu.Unlock()

	o.persistConfig(&snapshot)
	return cfg, nil
}

// persistConfig writes a private copy of a config to the store, taken
// under o.mu by the caller. The registered *OperationConfig itself is
// never handed to the store: Stop and ExecuteSync mutate its Status and
// LastRunAt concurrently.
func (o *Orchestrator) persistConfig(snapshot *OperationConfig) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveConfig(snapshot); err != nil {
		slog.Warn("could not persist pairing config", "id", snapshot.ID, "err", err)
	}
}

// Config returns a copy of a registered pairing.
func (o *Orchestrator) Config(id string) (OperationConfig, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	cfg, ok := o.configs[id]
	if !ok {
		return OperationConfig{}, false
	}
	return *cfg, true
}

// History returns the append-only run history of a pairing, oldest
// first.
func (o *Orchestrator) History(configID string) []*RunResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]*RunResult(nil), o.history[configID]...)
}

// Stop marks a pairing Stopped and aborts its in-flight run, if any.
func (o *Orchestrator) Stop(configID string) error {
	o.mu.Lock()
	cfg, ok := o.configs[configID]
	if !ok {
		o.mu.Unlock()
		return drive.NewError(drive.KindNotFound, "stop", configID, nil)
	}
	cfg.Status = StatusStopped
	snapshot := *cfg
	cancel := o.running[configID]
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.persistConfig(&snapshot)
	slog.Info("pairing stopped", "id", configID)
	return nil
}

// Resume flips a stopped pairing back to Active.
func (o *Orchestrator) Resume(configID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	cfg, ok := o.configs[configID]
	if !ok {
		return drive.NewError(drive.KindNotFound, "resume", configID, nil)
	}
	cfg.Status = StatusActive
	return nil
}

// ExecuteSync runs one synchronization cycle for a pairing: snapshot
// both roots, plan, resolve conflicts, execute. With dryRun the
// executor only validates. The returned RunResult is a summary even
// when individual actions failed; an error return means the run could
// not start (unknown or stopped pairing, unreadable root).
func (o *Orchestrator) ExecuteSync(ctx context.Context, configID string, dryRun bool) (*RunResult, error) {
	o.mu.RLock()
	cfg, ok := o.configs[configID]
	var status Status
	if ok {
		status = cfg.Status
	}
	o.mu.RUnlock()
	if !ok {
		return nil, drive.NewError(drive.KindNotFound, "execute_sync", configID, nil)
	}
	if status == StatusStopped {
		return nil, drive.NewError(drive.KindPolicyViolation, "execute_sync", configID,
			fmt.Errorf("pairing is stopped"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.running[configID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, configID)
		o.mu.Unlock()
	}()

	result := &RunResult{
		RunID:     uuid.NewString(),
		ConfigID:  configID,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}

	var sourceMap, targetMap map[string]FileEntry
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		var err error
		sourceMap, err = Snapshot(gctx, o.source, cfg.SourceRootID, cfg.Filter, cfg.IncludeSubtrees)
		if err != nil {
			return fmt.Errorf("source snapshot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		targetMap, err = Snapshot(gctx, o.target, cfg.TargetRootID, cfg.Filter, cfg.IncludeSubtrees)
		if err != nil {
			return fmt.Errorf("target snapshot: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := Plan(sourceMap, targetMap, cfg.Mode, cfg.Propagate)
	slog.Info("sync planned",
		"pairing", cfg.Name,
		"source_files", len(sourceMap),
		"target_files", len(targetMap),
		"actions", len(plan.Actions),
		"conflicts", plan.Conflicts(),
	)

	// resolve conflicts inline, then hand the concrete list to the
	// executor; unresolved and skipped conflicts never execute
	outcomes := make([]ActionOutcome, 0, len(plan.Actions))
	var ops []batch.Operation
	var opSlots []int
	for _, a := range plan.Actions {
		if a.Kind == ActionConflict {
			result.Counts.Conflicts++
			r := o.resolver.Resolve(runCtx, a, cfg.ConflictPolicy)
			a.Resolved = &r
			if r.Kind == ResolveSkip {
				outcomes = append(outcomes, ActionOutcome{Action: a, Outcome: OutcomeSkipped})
				continue
			}
			if r.Kind == ResolveNone {
				outcomes = append(outcomes, ActionOutcome{Action: a, Outcome: OutcomeSkipped,
					Error: "unresolved: " + r.Reason})
				continue
			}
		}
		outcomes = append(outcomes, ActionOutcome{Action: a, Outcome: OutcomeSkipped, Error: "not executed"})
		opSlots = append(opSlots, len(outcomes)-1)
		ops = append(ops, newActionOp(a, o.source, o.target, cfg))
	}

	record := o.executor.Process(runCtx, ops, batch.Options{
		BatchSize:       o.batchSize,
		RetryAttempts:   o.retryAttempts,
		ContinueOnError: o.continueOnError,
		DryRun:          dryRun,
		OnResult: func(i int, name string, err error, attempts int) {
			slot := &outcomes[opSlots[i]]
			if err != nil {
				slot.Outcome = OutcomeFailed
				slot.Error = err.Error()
				result.Counts.Errors++
				return
			}
			slot.Outcome = OutcomeSuccess
			slot.Error = ""
			switch slot.Action.EffectiveKind() {
			case ActionCreate:
				result.Counts.Created++
			case ActionUpdate:
				result.Counts.Updated++
			case ActionDelete:
				result.Counts.Deleted++
			}
		},
	})

	result.Outcomes = outcomes
	result.BatchID = record.ID
	result.EndedAt = time.Now()

	o.mu.Lock()
	cfg.LastRunAt = result.EndedAt
	snapshot := *cfg
	o.history[configID] = append(o.history[configID], result)
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SaveRun(result); err != nil {
			slog.Warn("could not persist run result", "run", result.RunID, "err", err)
		}
	}
	o.persistConfig(&snapshot)

	slog.Info("sync finished",
		"pairing", cfg.Name,
		"dry_run", dryRun,
		"created", result.Counts.Created,
		"updated", result.Counts.Updated,
		"deleted", result.Counts.Deleted,
		"conflicts", result.Counts.Conflicts,
		"errors", result.Counts.Errors,
		"took", result.Duration(),
	)
	return result, nil
}
