package mempool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/cmxrt/arena"
	"github.com/hupe1980/cmxrt/internal/conv"
	"github.com/hupe1980/cmxrt/internal/mem"
	"github.com/hupe1980/cmxrt/internal/mmap"
	"github.com/hupe1980/cmxrt/resource"
)

// MemoryStats is a snapshot of pool usage.
//
// PeakUsage is the sum of the per-pool high-water marks.
type MemoryStats struct {
	TotalSize       uint64
	TensorPoolUsed  uint64
	TempBufferUsed  uint64
	GeneralPoolUsed uint64
	PeakUsage       uint64
}

// Used returns the bytes in use across all pools.
func (s MemoryStats) Used() uint64 {
	return s.TensorPoolUsed + s.TempBufferUsed + s.GeneralPoolUsed
}

// Manager owns the backing block and the three arenas carved from it.
type Manager struct {
	mu sync.Mutex

	initialized bool
	layout      Layout
	block       []byte
	mapping     *mmap.Mapping // nil when heap-backed
	pools       [numPools]*arena.Arena

	floors      Floors
	heapBacking bool

	rc      *resource.Controller
	logger  *slog.Logger
	metrics MetricsObserver
}

// New creates an uninitialized Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		floors:  DefaultFloors(),
		logger:  slog.New(slog.DiscardHandler),
		metrics: NoopMetricsObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize allocates the backing block and builds the arenas.
// Calling it on an initialized Manager is a no-op.
func (m *Manager) Initialize(totalSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if totalSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, totalSize)
	}

	layout := ComputeLayout(totalSize, m.floors)

	budget := conv.IntToInt64(layout.Total)
	if err := m.rc.ReserveMemory(budget); err != nil {
		return fmt.Errorf("mempool: reserve %d bytes: %w", layout.Total, err)
	}

	block, mapping, err := m.allocBlock(layout.Total)
	if err != nil {
		m.rc.ReleaseMemory(budget)
		return err
	}

	for _, pt := range PoolTypes {
		r, _ := layout.Range(pt)
		m.pools[pt] = arena.New(block[r.Offset:r.End():r.End()])
	}

	m.layout = layout
	m.block = block
	m.mapping = mapping
	m.initialized = true

	m.logger.Info("memory pools initialized",
		"requested", layout.Requested,
		"total", layout.Total,
		"tensor", layout.Tensor.Size,
		"temp_buffer", layout.TempBuffer.Size,
		"general", layout.General.Size,
		"mapped", mapping != nil,
	)

	return nil
}

func (m *Manager) allocBlock(size int) ([]byte, *mmap.Mapping, error) {
	if !m.heapBacking {
		mapping, err := mmap.MapAnon(size)
		if err == nil {
			if err := mapping.Advise(mmap.AccessWillNeed); err != nil {
				m.logger.Debug("madvise failed", "error", err)
			}
			return mapping.Bytes(), mapping, nil
		}
		m.logger.Warn("anonymous mapping failed, using heap", "size", size, "error", err)
	}

	// size is positive here; AllocAligned only returns nil for size <= 0.
	return mem.AllocAligned(size), nil, nil
}

// Allocator returns the arena for pt.
func (m *Manager) Allocator(pt PoolType) (*arena.Arena, error) {
	if !pt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPoolType, int(pt))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return m.pools[pt], nil
}

// Alloc allocates from pool pt and reports exhaustion as an *ExhaustedError.
// align follows arena.Arena.Alloc.
func (m *Manager) Alloc(pt PoolType, size, align int) ([]byte, error) {
	a, err := m.Allocator(pt)
	if err != nil {
		return nil, err
	}

	if b := a.Alloc(size, align); b != nil {
		return b, nil
	}

	m.metrics.OnAllocFailure(pt, size)
	m.logger.Debug("pool allocation failed", "pool", pt.String(), "size", size, "available", a.Available())

	return nil, &ExhaustedError{Pool: pt, Requested: size, Available: a.Available()}
}

// FreeAll rewinds every arena. Every region handed out before the call
// becomes invalid. It must only run while no task allocates from the pools.
func (m *Manager) FreeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}

	for _, pt := range PoolTypes {
		a := m.pools[pt]
		s := a.Stats()
		m.metrics.OnPoolReset(pt, s.UsedSize, s.PeakUsage, s.TotalSize)
		a.Reset()
	}
}

// Shutdown releases the arenas and frees the backing block. The Manager can
// be initialized again afterwards.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	for i, a := range m.pools {
		a.Release()
		m.pools[i] = nil
	}

	var err error
	if m.mapping != nil {
		err = m.mapping.Close()
	}
	m.rc.ReleaseMemory(conv.IntToInt64(m.layout.Total))

	m.block = nil
	m.mapping = nil
	m.layout = Layout{}
	m.initialized = false

	m.logger.Info("memory pools shut down")

	if err != nil {
		return fmt.Errorf("mempool: unmap backing block: %w", err)
	}
	return nil
}

// Stats returns a snapshot of pool usage. It is zero before Initialize.
func (m *Manager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return MemoryStats{}
	}

	total, _ := conv.IntToUint64(m.layout.Total)
	tensor := m.pools[TensorPool].Stats()
	temp := m.pools[TempBufferPool].Stats()
	general := m.pools[GeneralPool].Stats()

	return MemoryStats{
		TotalSize:       total,
		TensorPoolUsed:  tensor.UsedSize,
		TempBufferUsed:  temp.UsedSize,
		GeneralPoolUsed: general.UsedSize,
		PeakUsage:       tensor.PeakUsage + temp.PeakUsage + general.PeakUsage,
	}
}

// PoolStats returns the arena statistics of pool pt.
func (m *Manager) PoolStats(pt PoolType) (arena.Stats, error) {
	a, err := m.Allocator(pt)
	if err != nil {
		return arena.Stats{}, err
	}
	return a.Stats(), nil
}

// Layout returns the current partition. It is zero before Initialize.
func (m *Manager) Layout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layout
}

// Initialized reports whether the backing block is allocated.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Mapped reports whether the backing block lives in an anonymous mapping.
func (m *Manager) Mapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapping != nil
}
