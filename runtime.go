package cmxrt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/cmxrt/config"
	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/profiler"
	"github.com/hupe1980/cmxrt/resource"
	"github.com/hupe1980/cmxrt/scheduler"
)

// Runtime executes model graphs over a fixed set of memory pools.
//
// Runs on one Runtime are serialized. Run owns the scheduler while it
// executes; do not submit tasks to Scheduler() concurrently with Run.
type Runtime struct {
	cfg      config.Config
	pool     *mempool.Manager
	sched    *scheduler.Scheduler
	rc       *resource.Controller
	profiler *profiler.Profiler
	logger   *Logger

	runLock *semaphore.Weighted
	closed  atomic.Bool
}

// New creates a Runtime and allocates its memory pools.
func New(optFns ...Option) (*Runtime, error) {
	o := options{
		cfg:    config.Default(),
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	cfg := o.cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := o.rc
	if rc == nil && cfg.Memory.LimitBytes > 0 {
		rc = resource.NewController(resource.Config{MemoryLimitBytes: cfg.Memory.LimitBytes})
	}

	prof := o.profiler
	if prof == nil && cfg.Profiling.Enabled {
		prof = profiler.New()
	}

	floors := cfg.Floors()
	poolOpts := []mempool.Option{
		mempool.WithLogger(o.logger.Logger),
		mempool.WithFloors(floors.Tensor, floors.TempBuffer, floors.General),
		mempool.WithResourceController(rc),
	}
	if cfg.Memory.HeapBacking {
		poolOpts = append(poolOpts, mempool.WithHeapBacking())
	}
	if o.metrics != nil {
		poolOpts = append(poolOpts, mempool.WithMetricsObserver(o.metrics))
	}

	pool := mempool.New(poolOpts...)
	if err := pool.Initialize(cfg.Memory.PoolSize); err != nil {
		o.logger.LogPoolInit(context.Background(), mempool.Layout{}, false, err)
		return nil, err
	}

	schedOpts := []scheduler.Option{
		scheduler.WithStrategy(cfg.Strategy()),
		scheduler.WithPollInterval(cfg.PollInterval()),
		scheduler.WithLogger(o.logger.Logger),
	}
	if o.metrics != nil {
		schedOpts = append(schedOpts, scheduler.WithMetricsObserver(o.metrics))
	}

	sched := scheduler.New(schedOpts...)
	if err := sched.Initialize(); err != nil {
		_ = pool.Shutdown()
		return nil, err
	}

	o.logger.LogPoolInit(context.Background(), pool.Layout(), pool.Mapped(), nil)

	return &Runtime{
		cfg:      cfg,
		pool:     pool,
		sched:    sched,
		rc:       rc,
		profiler: prof,
		logger:   o.logger,
		runLock:  semaphore.NewWeighted(1),
	}, nil
}

// Run executes one pass over steps and rewinds the memory pools afterwards.
//
// Steps are submitted in order and run on the calling goroutine. Run returns
// when every step reached a terminal status or ctx ends; steps that had not
// started by then are dropped. The returned error matches ErrStepFailed when
// a step failed; the RunResult is returned alongside it.
func (r *Runtime) Run(ctx context.Context, steps []Step) (*RunResult, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateSteps(steps); err != nil {
		r.logger.LogRun(ctx, nil, err)
		return nil, err
	}

	if err := r.runLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.runLock.Release(1)

	if err := r.rc.AcquireRun(ctx); err != nil {
		return nil, err
	}
	defer r.rc.ReleaseRun()

	if r.closed.Load() {
		return nil, ErrClosed
	}

	res := &RunResult{
		RunID: uuid.NewString(),
		Steps: make([]StepResult, len(steps)),
	}
	start := time.Now()

	err := r.execute(ctx, res, steps)

	res.Duration = time.Since(start)
	res.Memory = r.pool.Stats()

	r.sched.Reset()
	r.pool.FreeAll()

	r.logger.LogRun(ctx, res, err)

	return res, err
}

func (r *Runtime) execute(ctx context.Context, res *RunResult, steps []Step) error {
	base := Context{RunID: res.RunID, pool: r.pool}

	var err error
	if base.Tensor, err = r.pool.Allocator(mempool.TensorPool); err != nil {
		return err
	}
	if base.Temp, err = r.pool.Allocator(mempool.TempBufferPool); err != nil {
		return err
	}
	if base.General, err = r.pool.Allocator(mempool.GeneralPool); err != nil {
		return err
	}

	contexts := make([]Context, len(steps))
	var deps [scheduler.MaxDependencies]scheduler.TaskID

	for i := range steps {
		st := &steps[i]

		sc := &contexts[i]
		*sc = base
		sc.Index = i
		sc.Name = st.Name

		d := deps[:0]
		for _, j := range st.Deps {
			d = append(d, res.Steps[j].TaskID)
		}

		id, err := r.sched.SubmitWithDeps(r.bind(st, sc), d, st.Priority)
		if err != nil {
			return fmt.Errorf("cmxrt: submit step %d (%s): %w", i, st.Name, err)
		}
		res.Steps[i] = StepResult{Name: st.Name, TaskID: id, Status: scheduler.StatusPending}
	}

	waitErr := r.sched.Wait(ctx)

	var firstFailure *StepError
	for i := range res.Steps {
		sr := &res.Steps[i]
		if info, ok := r.sched.Task(sr.TaskID); ok {
			sr.Status = info.Status
			sr.Err = info.Err
		}

		switch sr.Status {
		case scheduler.StatusCompleted:
			res.Completed++
		case scheduler.StatusFailed:
			res.Failed++
			r.logger.LogTaskFailure(ctx, res.RunID, *sr)
			if firstFailure == nil {
				firstFailure = &StepError{Index: i, Name: sr.Name, Err: sr.Err}
			}
		}
	}

	if waitErr != nil {
		return fmt.Errorf("cmxrt: run %s: %w", res.RunID, waitErr)
	}
	if firstFailure != nil {
		return firstFailure
	}
	return nil
}

func (r *Runtime) bind(st *Step, sc *Context) scheduler.TaskFunc {
	fn := st.Fn
	body := func() error { return fn(sc) }
	if r.profiler == nil {
		return body
	}
	return profiler.Wrap(r.profiler, st.Name, body)
}

// Memory returns the pool manager.
func (r *Runtime) Memory() *mempool.Manager { return r.pool }

// Scheduler returns the task scheduler.
func (r *Runtime) Scheduler() *scheduler.Scheduler { return r.sched }

// Profiler returns the step profiler, or nil when profiling is off.
func (r *Runtime) Profiler() *profiler.Profiler { return r.profiler }

// Config returns the effective configuration.
func (r *Runtime) Config() config.Config { return r.cfg }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *Logger { return r.logger }
