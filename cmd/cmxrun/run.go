package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/cmxrt"
	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/metrics"
	"github.com/hupe1980/cmxrt/profiler"
)

type runFlags struct {
	layers      int
	width       int
	passes      int
	seed        uint64
	strategy    string
	profile     bool
	verbose     bool
	metricsAddr string
	serve       bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run forward passes of a synthetic dense network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPasses(ctx, g, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVar(&f.layers, "layers", 4, "Number of dense layers")
	cmd.Flags().IntVar(&f.width, "width", 64, "Width of every layer")
	cmd.Flags().IntVar(&f.passes, "passes", 10, "Number of forward passes")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "Seed for the synthetic weights")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Scheduling strategy override (fifo|priority|round_robin)")
	cmd.Flags().BoolVar(&f.profile, "profile", false, "Time every step and print a report")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print the result of every pass")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&f.serve, "serve", false, "Keep serving metrics after the passes until interrupted")

	return cmd
}

func runPasses(ctx context.Context, g *globalFlags, f *runFlags, out, errOut io.Writer) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if f.strategy != "" {
		cfg.Scheduler.Strategy = f.strategy
	}
	if f.profile {
		cfg.Profiling.Enabled = true
	}
	if f.passes < 1 {
		return fmt.Errorf("passes must be positive, got %d", f.passes)
	}

	logger, err := newLogger(cfg, errOut)
	if err != nil {
		return err
	}

	model, err := newNetwork(f.layers, f.width, f.seed)
	if err != nil {
		return err
	}

	basic := metrics.NewBasic()
	observers := []metrics.Observer{basic}

	var srv *http.Server
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		observers = append(observers, metrics.NewPrometheus(reg))

		if srv, err = serveMetrics(f.metricsAddr, reg, logger); err != nil {
			return err
		}
		defer shutdownServer(srv, logger)
	}

	rt, err := cmxrt.New(
		cmxrt.WithConfig(cfg),
		cmxrt.WithLogger(logger),
		cmxrt.WithMetricsObserver(metrics.NewMulti(observers...)),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("runtime close", "error", err)
		}
	}()

	st := &passState{}
	steps := model.steps(st)

	var peak mempool.MemoryStats
	var total time.Duration
	completed := 0

	for i := range f.passes {
		res, err := rt.Run(ctx, steps)
		if err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}
		completed++
		total += res.Duration
		if res.Memory.Used() > peak.Used() {
			peak = res.Memory
		}
		if f.verbose {
			fmt.Fprintf(out, "pass %d: class=%d checksum=%.6f steps=%d duration=%s\n",
				i, st.class, st.checksum, res.Completed, res.Duration)
		}
	}

	layout := rt.Memory().Layout()
	fmt.Fprintf(out, "passes:      %d\n", completed)
	fmt.Fprintf(out, "steps/pass:  %d\n", len(steps))
	fmt.Fprintf(out, "avg pass:    %s\n", total/time.Duration(completed))
	fmt.Fprintf(out, "class:       %d\n", st.class)
	fmt.Fprintf(out, "checksum:    %.6f\n", st.checksum)
	fmt.Fprintf(out, "pool:        %s\n", layout)
	fmt.Fprintf(out, "peak tensor: %d / %d bytes\n", peak.TensorPoolUsed, layout.Tensor.Size)
	fmt.Fprintf(out, "peak temp:   %d / %d bytes\n", peak.TempBufferUsed, layout.TempBuffer.Size)
	fmt.Fprintf(out, "tasks:       %s\n", basic.Stats())

	if p := rt.Profiler(); p != nil {
		fmt.Fprintln(out)
		if _, err := p.Report(profiler.ByTotal).WriteTo(out); err != nil {
			return err
		}
	}

	if srv != nil && f.serve {
		logger.InfoContext(ctx, "serving metrics until interrupted", "addr", f.metricsAddr)
		<-ctx.Done()
	}

	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *cmxrt.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return srv, nil
}

func shutdownServer(srv *http.Server, logger *cmxrt.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
