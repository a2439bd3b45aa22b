// Package cmxrt is the core of an embedded inference runtime that executes a
// pre-decomposed model graph under a fixed memory bound.
//
// A Runtime owns one memory pool manager and one task scheduler. The pool
// manager allocates a single backing block at startup and splits it into a
// tensor, a temp-buffer and a general arena; the scheduler runs the graph's
// steps as dependent tasks. After startup, executing a graph does not grow
// memory: kernels allocate from the arenas, and the arenas are rewound after
// every pass.
//
// # Quick Start
//
//	rt, err := cmxrt.New(cmxrt.WithConfig(config.Default()))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	steps := []cmxrt.Step{
//		{Name: "embed", Fn: embed},
//		{Name: "dense_0", Fn: dense0, Deps: []int{0}},
//		{Name: "softmax", Fn: softmax, Deps: []int{1}, Priority: scheduler.PriorityHigh},
//	}
//	res, err := rt.Run(ctx, steps)
//
// # Failure Semantics
//
// A step whose function returns an error or panics fails, and every step that
// depends on it fails with scheduler.ErrDependencyFailed without running.
// Independent steps still run. Run reports the first failure as a *StepError
// matching ErrStepFailed.
//
// # Packages
//
//   - arena: lock-free bump allocator over one block
//   - mempool: backing block ownership and the 60/25/15 pool split
//   - scheduler: bounded dependency-aware task scheduler
//   - config: YAML/JSON/TOML configuration
//   - metrics: Basic and Prometheus observers
//   - profiler: per-step timing table
//   - resource: memory budget and pass slots shared between runtimes
package cmxrt
