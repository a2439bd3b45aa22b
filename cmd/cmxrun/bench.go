package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cmxrt/metrics"
	"github.com/hupe1980/cmxrt/scheduler"
)

type benchFlags struct {
	submitters int
	chain      int
	rounds     int
	strategy   string
}

func newBenchCmd(g *globalFlags) *cobra.Command {
	f := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure scheduler throughput with concurrent submitters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), g, f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&f.submitters, "submitters", 4, "Number of concurrent submitting goroutines")
	cmd.Flags().IntVar(&f.chain, "chain", 32, "Tasks per submitter and round, each depending on the previous one")
	cmd.Flags().IntVar(&f.rounds, "rounds", 100, "Number of rounds; the scheduler is reset between rounds")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Scheduling strategy override (fifo|priority|round_robin)")

	return cmd
}

func runBench(ctx context.Context, g *globalFlags, f *benchFlags, out io.Writer) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if f.strategy != "" {
		cfg.Scheduler.Strategy = f.strategy
	}

	strategy, err := scheduler.ParseStrategy(cfg.Scheduler.Strategy)
	if err != nil {
		return err
	}
	if f.submitters < 1 || f.chain < 1 || f.rounds < 1 {
		return fmt.Errorf("submitters, chain and rounds must be positive")
	}
	if perRound := f.submitters * f.chain; perRound > scheduler.MaxTasks {
		return fmt.Errorf("submitters*chain = %d exceeds %d task slots", perRound, scheduler.MaxTasks)
	}

	logger, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}

	basic := metrics.NewBasic()
	sched := scheduler.New(
		scheduler.WithStrategy(strategy),
		scheduler.WithPollInterval(cfg.PollInterval()),
		scheduler.WithLogger(logger.Logger),
		scheduler.WithMetricsObserver(basic),
	)
	if err := sched.Initialize(); err != nil {
		return err
	}
	defer sched.Shutdown()

	var executed atomic.Int64
	work := func() error {
		executed.Add(1)
		return nil
	}

	start := time.Now()
	for range f.rounds {
		if err := benchRound(ctx, sched, f, work); err != nil {
			return err
		}
		sched.Reset()
	}
	elapsed := time.Since(start)

	n := executed.Load()
	fmt.Fprintf(out, "strategy:   %s\n", strategy)
	fmt.Fprintf(out, "rounds:     %d\n", f.rounds)
	fmt.Fprintf(out, "tasks:      %d\n", n)
	fmt.Fprintf(out, "elapsed:    %s\n", elapsed)
	fmt.Fprintf(out, "throughput: %.0f tasks/s\n", float64(n)/elapsed.Seconds())
	fmt.Fprintf(out, "scheduler:  %s\n", basic.Stats())

	return nil
}

// benchRound submits one chain per submitter while a single executor drains
// ready tasks, then waits for the rest.
func benchRound(ctx context.Context, sched *scheduler.Scheduler, f *benchFlags, work scheduler.TaskFunc) error {
	var producing atomic.Int32
	producing.Store(int32(f.submitters))

	eg, egCtx := errgroup.WithContext(ctx)

	for s := range f.submitters {
		priority := scheduler.Priority(s % 4)
		eg.Go(func() error {
			defer producing.Add(-1)

			prev := scheduler.InvalidTaskID
			for range f.chain {
				var deps []scheduler.TaskID
				if prev != scheduler.InvalidTaskID {
					deps = []scheduler.TaskID{prev}
				}
				id, err := sched.SubmitWithDeps(work, deps, priority)
				if err != nil {
					return err
				}
				prev = id
			}
			return nil
		})
	}

	eg.Go(func() error {
		for producing.Load() > 0 {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if !sched.ExecuteSingleTask() {
				runtime.Gosched()
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	return sched.Wait(ctx)
}
