package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"drivesync/internal/batch"
	"drivesync/internal/config"
	"drivesync/internal/drive/local"
	"drivesync/internal/scheduler"
	"drivesync/internal/store"
	"drivesync/internal/sync"
	"drivesync/pkg/logger"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "drivesync",
		Usage:   "Reconcile folder trees and run bulk drive operations",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			planCommand(),
			syncCommand(),
			daemonCommand(),
			historyCommand(),
			cleanupCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.System.LogLevel, cfg.System.LogFile); err != nil {
		return nil, fmt.Errorf("logger setup: %w", err)
	}
	return cfg, nil
}

// buildOrchestrator wires one pairing: two local drive adapters, the
// shared executor, and the optional bbolt store.
func buildOrchestrator(cfg *config.Config, p *config.PairingConfig, st *store.Store, exec *batch.Executor) (*sync.Orchestrator, *sync.OperationConfig, error) {
	op, err := p.Operation()
	if err != nil {
		return nil, nil, err
	}

	opts := sync.OrchestratorOptions{
		Source:          local.New(p.SourceRoot),
		Target:          local.New(p.TargetRoot),
		Executor:        exec,
		BatchSize:       cfg.Batch.BatchSize,
		RetryAttempts:   cfg.Batch.RetryAttempts,
		ContinueOnError: cfg.Batch.ContinueOnError,
	}
	if st != nil {
		opts.Store = st
	}

	orch := sync.NewOrchestrator(opts)
	if _, err := orch.Register(op); err != nil {
		return nil, nil, err
	}
	return orch, op, nil
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Diff a pairing's trees and print the planned actions without executing",
		ArgsUsage: "<pairing>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := cfg.Pairing(cmd.Args().First())
			if err != nil {
				return err
			}
			op, err := p.Operation()
			if err != nil {
				return err
			}

			source := local.New(p.SourceRoot)
			target := local.New(p.TargetRoot)

			sourceMap, err := sync.Snapshot(ctx, source, source.RootID(), op.Filter, op.IncludeSubtrees)
			if err != nil {
				return fmt.Errorf("source snapshot: %w", err)
			}
			targetMap, err := sync.Snapshot(ctx, target, target.RootID(), op.Filter, op.IncludeSubtrees)
			if err != nil {
				return fmt.Errorf("target snapshot: %w", err)
			}

			plan := sync.Plan(sourceMap, targetMap, op.Mode, op.Propagate)
			if len(plan.Actions) == 0 {
				fmt.Println("trees are in sync, nothing to do")
				return nil
			}
			for _, a := range plan.Actions {
				size := int64(0)
				if a.Source != nil {
					size = a.Source.Size
				} else if a.Target != nil {
					size = a.Target.Size
				}
				fmt.Printf("%-8s  %-9s  %s  (%s)\n", a.Kind, "-> "+a.Direction.String(), a.Path, humanize.Bytes(uint64(size)))
			}
			fmt.Printf("%d actions, %d conflicts\n", len(plan.Actions), plan.Conflicts())
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Run one synchronization cycle for a pairing",
		ArgsUsage: "<pairing>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "validate the planned actions without mutating either side",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := cfg.Pairing(cmd.Args().First())
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.System.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			exec := batch.NewExecutor(cfg.Batch.BaseDelayDuration, cfg.Batch.BatchDelayDuration)
			orch, op, err := buildOrchestrator(cfg, p, st, exec)
			if err != nil {
				return err
			}

			result, err := orch.ExecuteSync(ctx, op.ID, cmd.Bool("dry-run"))
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		},
	}
}

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run all scheduled pairings until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.System.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			exec := batch.NewExecutor(cfg.Batch.BaseDelayDuration, cfg.Batch.BatchDelayDuration)

			orchestrators := make(map[string]*sync.Orchestrator)
			schedules := make(map[string]time.Duration)
			for i := range cfg.Pairings {
				p := &cfg.Pairings[i]
				orch, op, err := buildOrchestrator(cfg, p, st, exec)
				if err != nil {
					return err
				}
				orchestrators[op.ID] = orch
				if op.Schedule > 0 {
					schedules[op.ID] = op.Schedule
				}
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.New(func(ctx context.Context, configID string) error {
				_, err := orchestrators[configID].ExecuteSync(ctx, configID, false)
				return err
			})

			slog.Info("drivesync daemon starting", "version", version, "pairings", len(orchestrators))

			// run everything once up front, then hand over to the timers
			for id, orch := range orchestrators {
				if _, err := orch.ExecuteSync(ctx, id, false); err != nil && ctx.Err() == nil {
					slog.Error("initial sync failed", "pairing", id, "err", err)
				}
			}
			for id, every := range schedules {
				if err := sched.Register(ctx, id, every); err != nil {
					return err
				}
			}

			<-ctx.Done()
			slog.Info("shutting down, waiting for in-flight runs")
			sched.Stop()
			slog.Info("daemon stopped")
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Print the persisted run history of a pairing",
		ArgsUsage: "<pairing>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 10,
				Usage: "show at most this many recent runs",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := cfg.Pairing(cmd.Args().First())
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.System.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.RunsFor(p.Name)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			limit := int(cmd.Int("limit"))
			if limit > 0 && len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			for _, r := range runs {
				printResult(r)
			}
			return nil
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Prune old run history",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Value: 30 * 24 * time.Hour,
				Usage: "remove runs that ended before this long ago",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.System.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.PruneRuns(cmd.Duration("older-than"))
			if err != nil {
				return err
			}
			fmt.Printf("removed %d run records\n", removed)
			return nil
		},
	}
}

func printResult(r *sync.RunResult) {
	mode := "sync"
	if r.DryRun {
		mode = "dry-run"
	}
	fmt.Printf("%s  %s  created=%d updated=%d deleted=%d conflicts=%d errors=%d  (%s)\n",
		r.StartedAt.Format(time.DateTime), mode,
		r.Counts.Created, r.Counts.Updated, r.Counts.Deleted, r.Counts.Conflicts, r.Counts.Errors,
		r.Duration().Round(time.Millisecond))
	for _, o := range r.Outcomes {
		if o.Outcome == sync.OutcomeFailed {
			fmt.Printf("  failed: %s %s: %s\n", o.Action.Kind, o.Action.Path, o.Error)
		}
	}
}
