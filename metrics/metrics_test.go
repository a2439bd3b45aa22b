package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cmxrt/mempool"
	"github.com/hupe1980/cmxrt/scheduler"
)

func TestBasic(t *testing.T) {
	b := NewBasic()

	b.OnSubmit(scheduler.PriorityNormal, nil)
	b.OnSubmit(scheduler.PriorityNormal, nil)
	b.OnSubmit(scheduler.PriorityHigh, errors.New("full"))
	b.OnTaskDone(scheduler.PriorityNormal, scheduler.StatusCompleted, 10*time.Millisecond)
	b.OnTaskDone(scheduler.PriorityNormal, scheduler.StatusFailed, 30*time.Millisecond)
	b.OnQueueDepth(3)
	b.OnQueueDepth(1)
	b.OnPoolReset(mempool.TensorPool, 4096, 8192, 1<<20)
	b.OnPoolReset(mempool.TensorPool, 1024, 8192, 1<<20)
	b.OnPoolReset(mempool.PoolType(7), 1, 1, 1)
	b.OnAllocFailure(mempool.GeneralPool, 64)

	s := b.Stats()
	assert.Equal(t, int64(2), s.Submitted)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, int64(1), s.Completed)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, 20*time.Millisecond, s.AvgLatency)
	assert.Equal(t, int64(3), s.MaxQueueDepth)
	assert.Equal(t, uint64(4096), s.PassPeak[mempool.TensorPool])
	assert.Equal(t, int64(1), s.AllocFailures)
	assert.Equal(t, int64(3), b.PoolResets.Load())
	assert.Contains(t, s.String(), "completed=1")
}

func TestBasic_NoTasks(t *testing.T) {
	assert.Equal(t, time.Duration(0), NewBasic().AvgTaskLatency())
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnSubmit(scheduler.PriorityCritical, nil)
	p.OnSubmit(scheduler.PriorityCritical, errors.New("full"))
	p.OnTaskDone(scheduler.PriorityCritical, scheduler.StatusCompleted, time.Millisecond)
	p.OnTaskDone(scheduler.PriorityLow, scheduler.StatusFailed, 0)
	p.OnQueueDepth(5)
	p.OnPoolReset(mempool.TempBufferPool, 100, 200, 300)
	p.OnAllocFailure(mempool.TempBufferPool, 64)

	assert.InDelta(t, 1, testutil.ToFloat64(p.submissions.WithLabelValues("critical", "accepted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.submissions.WithLabelValues("critical", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.tasks.WithLabelValues("low", "failed")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(p.readyDepth), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(p.poolUsed.WithLabelValues("temp_buffer")), 0)
	assert.InDelta(t, 200, testutil.ToFloat64(p.poolPeak.WithLabelValues("temp_buffer")), 0)
	assert.InDelta(t, 300, testutil.ToFloat64(p.poolCapacity.WithLabelValues("temp_buffer")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.allocFailures.WithLabelValues("temp_buffer")), 0)

	// Only the executed task is observed in the histogram.
	assert.Equal(t, 1, testutil.CollectAndCount(p.taskDuration))

	expected := `
# HELP cmxrt_scheduler_ready_tasks Number of tasks in the ready queue
# TYPE cmxrt_scheduler_ready_tasks gauge
cmxrt_scheduler_ready_tasks 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cmxrt_scheduler_ready_tasks"))
}

func TestPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)

	assert.Panics(t, func() { NewPrometheus(reg) })
}

func TestMulti(t *testing.T) {
	a, b := NewBasic(), NewBasic()
	m := NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.OnSubmit(scheduler.PriorityLow, nil)
	m.OnTaskDone(scheduler.PriorityLow, scheduler.StatusCompleted, time.Millisecond)
	m.OnQueueDepth(2)
	m.OnPoolReset(mempool.GeneralPool, 10, 10, 100)
	m.OnAllocFailure(mempool.GeneralPool, 1)

	for _, c := range []*Basic{a, b} {
		s := c.Stats()
		assert.Equal(t, int64(1), s.Submitted)
		assert.Equal(t, int64(1), s.Completed)
		assert.Equal(t, int64(2), s.MaxQueueDepth)
		assert.Equal(t, uint64(10), s.PassPeak[mempool.GeneralPool])
		assert.Equal(t, int64(1), s.AllocFailures)
	}
}
