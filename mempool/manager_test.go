package mempool

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cmxrt/arena"
	"github.com/hupe1980/cmxrt/internal/mem"
	"github.com/hupe1980/cmxrt/resource"
)

type recordingObserver struct {
	resets   map[PoolType]uint64
	failures []PoolType
}

func (r *recordingObserver) OnPoolReset(pool PoolType, used, _, _ uint64) {
	if r.resets == nil {
		r.resets = make(map[PoolType]uint64)
	}
	r.resets[pool] = used
}

func (r *recordingObserver) OnAllocFailure(pool PoolType, _ int) {
	r.failures = append(r.failures, pool)
}

func newInitialized(t *testing.T, size int, opts ...Option) *Manager {
	t.Helper()
	m := New(opts...)
	require.NoError(t, m.Initialize(size))
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestManager_Lifecycle(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"mapped", nil},
		{"heap", []Option{WithHeapBacking()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := New(tc.opts...)
			assert.False(t, m.Initialized())

			_, err := m.Allocator(TensorPool)
			require.ErrorIs(t, err, ErrNotInitialized)
			assert.Equal(t, MemoryStats{}, m.Stats())

			require.NoError(t, m.Initialize(1_000_000))
			assert.True(t, m.Initialized())

			a, err := m.Allocator(TensorPool)
			require.NoError(t, err)

			require.NoError(t, m.Shutdown())
			assert.False(t, m.Initialized())
			assert.False(t, a.Valid())
			assert.Nil(t, a.Alloc(8, 0))

			require.NoError(t, m.Shutdown())
		})
	}
}

func TestManager_InitializeIdempotent(t *testing.T) {
	m := newInitialized(t, 1_000_000)
	layout := m.Layout()

	a1, err := m.Allocator(GeneralPool)
	require.NoError(t, err)

	require.NoError(t, m.Initialize(50<<20))
	assert.Equal(t, layout, m.Layout())

	a2, err := m.Allocator(GeneralPool)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
}

func TestManager_InvalidSize(t *testing.T) {
	m := New()
	require.ErrorIs(t, m.Initialize(0), ErrInvalidSize)
	require.ErrorIs(t, m.Initialize(-1), ErrInvalidSize)
	assert.False(t, m.Initialized())
}

func TestManager_Partition(t *testing.T) {
	m := newInitialized(t, 1_000_000)

	l := m.Layout()
	assert.Equal(t, 1_000_000, l.Requested)
	assert.Equal(t, 1_000_000, l.Total)

	sizes := map[PoolType]int{
		TensorPool:     600000,
		TempBufferPool: MinTempBufferSize,
		GeneralPool:    137856,
	}

	var arenas []*arena.Arena
	for _, pt := range PoolTypes {
		a, err := m.Allocator(pt)
		require.NoError(t, err)
		assert.Equal(t, sizes[pt], a.Cap(), pt.String())
		arenas = append(arenas, a)
	}

	// Each pool can be filled completely without touching its neighbours.
	var regions [][]byte
	for i, a := range arenas {
		b := a.Alloc(a.Cap()-64, 1)
		require.NotNil(t, b)
		for j := range b {
			b[j] = byte(i + 1)
		}
		regions = append(regions, b)
	}
	for i, b := range regions {
		for _, v := range b {
			require.Equal(t, byte(i+1), v)
		}
	}

	stats := m.Stats()
	assert.Equal(t, uint64(l.Total), stats.TotalSize)
	assert.Equal(t, uint64(600000-64), stats.TensorPoolUsed)
	assert.Equal(t, uint64(MinTempBufferSize-64), stats.TempBufferUsed)
	assert.Equal(t, uint64(137856-64), stats.GeneralPoolUsed)
	assert.Equal(t, stats.Used(), stats.PeakUsage)
}

func TestManager_ResetReturnsSameAddress(t *testing.T) {
	m := newInitialized(t, 1_000_000)

	a, err := m.Allocator(TensorPool)
	require.NoError(t, err)

	first := a.Alloc(10_000, 0)
	require.NotNil(t, first)

	a.Reset()

	second := a.Alloc(10_000, 0)
	require.NotNil(t, second)
	assert.Equal(t, unsafe.Pointer(&first[0]), unsafe.Pointer(&second[0]))
}

func TestManager_FreeAll(t *testing.T) {
	obs := &recordingObserver{}
	m := newInitialized(t, 1_000_000, WithMetricsObserver(obs))

	for _, pt := range PoolTypes {
		_, err := m.Alloc(pt, 1000, 0)
		require.NoError(t, err)
	}
	require.Equal(t, uint64(3*1024), m.Stats().Used())

	m.FreeAll()

	stats := m.Stats()
	assert.Equal(t, uint64(0), stats.Used())
	assert.Equal(t, uint64(3*1024), stats.PeakUsage)
	for _, pt := range PoolTypes {
		assert.Equal(t, uint64(1024), obs.resets[pt], pt.String())
	}
}

func TestManager_AllocExhausted(t *testing.T) {
	obs := &recordingObserver{}
	m := newInitialized(t, 1_000_000, WithMetricsObserver(obs))

	_, err := m.Alloc(GeneralPool, 137856, 1)
	require.NoError(t, err)

	_, err = m.Alloc(GeneralPool, 1, 1)
	require.ErrorIs(t, err, ErrExhausted)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, GeneralPool, exhausted.Pool)
	assert.Equal(t, 1, exhausted.Requested)
	assert.Equal(t, 0, exhausted.Available)
	assert.Contains(t, err.Error(), "arena exhausted")
	assert.Equal(t, []PoolType{GeneralPool}, obs.failures)

	_, err = m.Alloc(PoolType(3), 1, 1)
	require.ErrorIs(t, err, ErrUnknownPoolType)
}

func TestManager_PoolStats(t *testing.T) {
	m := newInitialized(t, 1_000_000)

	_, err := m.Alloc(TempBufferPool, 100, 32)
	require.NoError(t, err)

	s, err := m.PoolStats(TempBufferPool)
	require.NoError(t, err)
	assert.Equal(t, uint64(MinTempBufferSize), s.TotalSize)
	assert.Equal(t, uint64(1), s.AllocCount)

	_, err = m.PoolStats(PoolType(-1))
	require.ErrorIs(t, err, ErrUnknownPoolType)
}

func TestManager_Floors(t *testing.T) {
	m := newInitialized(t, 1000, WithFloors(0, 0, 0), WithHeapBacking())

	l := m.Layout()
	assert.Equal(t, 1000, l.Total)
	assert.Equal(t, 104, l.General.Size)
	assert.False(t, m.Mapped())

	for _, pt := range PoolTypes {
		b, err := m.Alloc(pt, 8, 0)
		require.NoError(t, err, pt.String())
		assert.True(t, mem.IsAligned(b, 64), pt.String())
	}
}

func TestManager_ResourceBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 2 << 20})

	m1 := New(WithResourceController(rc))
	require.NoError(t, m1.Initialize(1_000_000))
	assert.Equal(t, int64(m1.Layout().Total), rc.MemoryUsage())

	m2 := New(WithResourceController(rc))
	err := m2.Initialize(1_500_000)
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.False(t, m2.Initialized())

	require.NoError(t, m1.Shutdown())
	assert.Equal(t, int64(0), rc.MemoryUsage())

	require.NoError(t, m2.Initialize(1_500_000))
	require.NoError(t, m2.Shutdown())

	require.NoError(t, rc.AcquireMemory(context.Background(), 2<<20))
}
