// Package scheduler runs the steps of a model graph as dependent tasks.
//
// A Scheduler keeps a fixed pool of MaxTasks task slots and a bounded ready
// ring of MaxReadyTasks entries. Tasks are submitted with up to
// MaxDependencies earlier tasks they wait for; a task whose dependencies have
// all completed is moved to the ready ring, and ExecuteSingleTask picks the
// next one according to the selection Strategy:
//
//   - FIFO: the head of the ring.
//   - PriorityBased: the first task with the highest priority, so tasks of
//     equal priority keep submission order. There is no aging; a stream of
//     high-priority work starves lower tiers.
//   - RoundRobin: currently identical to FIFO.
//
// Task bodies run synchronously on the goroutine that calls
// ExecuteSingleTask, outside the scheduler lock. A body that returns an error
// or panics marks its task Failed; the failure propagates to every task that
// depends on it, directly or transitively, without running them.
//
// Task ids are 1, 2, 3, ... in submission order and restart after Reset.
// InvalidTaskID (0) is never assigned.
package scheduler
