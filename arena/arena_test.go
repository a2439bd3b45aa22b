package arena

import (
	"math/rand"
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cmxrt/internal/mem"
)

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func newTestArena(t testing.TB, size int) *Arena {
	t.Helper()
	buf := mem.AllocAligned(size)
	require.NotNil(t, buf)
	return New(buf)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func TestArena_New(t *testing.T) {
	t.Run("wraps block", func(t *testing.T) {
		a := newTestArena(t, 4096)
		assert.Equal(t, 4096, a.Cap())
		assert.Equal(t, 4096, a.Available())
		assert.True(t, a.Valid())
	})

	t.Run("empty block", func(t *testing.T) {
		a := New(nil)
		assert.False(t, a.Valid())
		assert.Nil(t, a.Alloc(1, 0))
	})

	t.Run("nil arena", func(t *testing.T) {
		var a *Arena
		assert.Nil(t, a.Alloc(8, 0))
		assert.Equal(t, 0, a.Available())
		assert.Equal(t, Stats{}, a.Stats())
	})
}

func TestArena_Alloc(t *testing.T) {
	t.Run("default alignment", func(t *testing.T) {
		a := newTestArena(t, 1024)

		b := a.Alloc(10, 0)
		require.NotNil(t, b)
		assert.Len(t, b, 10)
		assert.Equal(t, 10, cap(b))
		assert.Zero(t, addr(b)%DefaultAlignment)
		assert.Equal(t, 64, a.Len())
	})

	t.Run("tensor alignment", func(t *testing.T) {
		a := newTestArena(t, 1024)

		b := a.Alloc(100, TensorAlignment)
		require.NotNil(t, b)
		assert.Zero(t, addr(b)%TensorAlignment)
		assert.Equal(t, 128, a.Len())
	})

	t.Run("invalid requests", func(t *testing.T) {
		a := newTestArena(t, 1024)

		assert.Nil(t, a.Alloc(0, 0))
		assert.Nil(t, a.Alloc(-1, 0))
		assert.Nil(t, a.Alloc(8, 3))
		assert.Nil(t, a.Alloc(8, -8))
		assert.Equal(t, 0, a.Len())
	})

	t.Run("exact fit", func(t *testing.T) {
		a := newTestArena(t, 256)

		require.NotNil(t, a.Alloc(256, 64))
		assert.Equal(t, 0, a.Available())
		assert.Nil(t, a.Alloc(1, 1))
	})

	t.Run("padding from absolute address", func(t *testing.T) {
		buf := mem.AllocAligned(512)
		a := New(buf[8:])

		b := a.Alloc(16, 64)
		require.NotNil(t, b)
		assert.Zero(t, addr(b)%64)
		assert.Equal(t, uint64(56+48), a.Stats().BytesWasted)
	})
}

func TestArena_NonOverlapping(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, align := range []int{1, 8, 32, 64} {
		a := newTestArena(t, 64*1024)

		var (
			regions [][]byte
			total   int
		)
		for {
			size := 1 + rng.Intn(700)
			if total+alignUp(size, align) > a.Cap() {
				break
			}
			total += alignUp(size, align)

			b := a.Alloc(size, align)
			require.NotNil(t, b, "align=%d size=%d total=%d", align, size, total)
			assert.Zero(t, addr(b)%uintptr(align))
			regions = append(regions, b)
		}

		assertDisjoint(t, regions)
	}
}

func TestArena_FailureLeavesCursor(t *testing.T) {
	a := newTestArena(t, 1024)

	require.NotNil(t, a.Alloc(900, 0))
	before := a.Stats()

	assert.Nil(t, a.Alloc(200, 0))

	after := a.Stats()
	assert.Equal(t, before.UsedSize, after.UsedSize)
	assert.Equal(t, before.AllocCount, after.AllocCount)

	b := a.Alloc(64, 0)
	require.NotNil(t, b)
}

func TestArena_Reset(t *testing.T) {
	a := newTestArena(t, 4096)

	first := a.Alloc(100, 0)
	require.NotNil(t, first)
	require.NotNil(t, a.Alloc(1000, 0))
	a.Dealloc(first)

	peak := a.Stats().PeakUsage
	a.Reset()

	stats := a.Stats()
	assert.Equal(t, uint64(0), stats.UsedSize)
	assert.Equal(t, uint64(0), stats.AllocCount)
	assert.Equal(t, uint64(0), stats.DeallocCount)
	assert.Equal(t, uint64(0), stats.BytesWasted)
	assert.Equal(t, peak, stats.PeakUsage)

	again := a.Alloc(100, 0)
	require.NotNil(t, again)
	assert.Equal(t, addr(first), addr(again))
}

func TestArena_Stats(t *testing.T) {
	a := newTestArena(t, 4096)

	b := a.Alloc(10, 64)
	require.NotNil(t, b)
	require.NotNil(t, a.Alloc(64, 64))
	a.Dealloc(b)
	a.Dealloc(nil)

	stats := a.Stats()
	assert.Equal(t, uint64(4096), stats.TotalSize)
	assert.Equal(t, uint64(128), stats.UsedSize)
	assert.Equal(t, uint64(128), stats.PeakUsage)
	assert.Equal(t, uint64(2), stats.AllocCount)
	assert.Equal(t, uint64(1), stats.DeallocCount)
	assert.Equal(t, uint64(54), stats.BytesWasted)
	assert.InDelta(t, 3.125, a.Usage(), 0.001)
	assert.Contains(t, a.String(), "allocs: 2")
}

func TestArena_Release(t *testing.T) {
	a := newTestArena(t, 1024)
	require.NotNil(t, a.Alloc(8, 0))

	a.Release()

	assert.False(t, a.Valid())
	assert.Nil(t, a.Alloc(8, 0))
	assert.Nil(t, a.AllocFloat32Slice(4))
}

func TestArena_TypedSlices(t *testing.T) {
	a := newTestArena(t, 4096)

	f := a.AllocFloat32Slice(16)
	require.Len(t, f, 16)
	assert.Zero(t, uintptr(unsafe.Pointer(&f[0]))%DefaultAlignment)
	for i := range f {
		f[i] = float32(i)
	}
	assert.Equal(t, float32(15), f[15])

	q := a.AllocInt8Slice(10)
	require.Len(t, q, 10)
	q[9] = -1
	assert.Equal(t, int8(-1), q[9])

	p := a.AllocPointer(8, 8)
	require.NotNil(t, p)
	assert.Zero(t, uintptr(p)%8)

	assert.Nil(t, a.AllocFloat32Slice(0))
	assert.Nil(t, a.AllocInt8Slice(-1))
	assert.Nil(t, a.AllocFloat32Slice(4096))
}

func TestArena_ConcurrentAlloc(t *testing.T) {
	const (
		workers   = 8
		perWorker = 100
		size      = 48
	)

	a := newTestArena(t, workers*perWorker*DefaultAlignment)
	results := make([][][]byte, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				b := a.Alloc(size, 0)
				if b == nil {
					continue
				}
				for j := range b {
					b[j] = byte(w)
				}
				results[w] = append(results[w], b)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var all [][]byte
	for w, regions := range results {
		assert.Len(t, regions, perWorker)
		for _, b := range regions {
			for _, v := range b {
				require.Equal(t, byte(w), v)
			}
		}
		all = append(all, regions...)
	}

	assertDisjoint(t, all)
	assert.Equal(t, uint64(workers*perWorker), a.Stats().AllocCount)
	assert.Equal(t, 0, a.Available())
	assert.Nil(t, a.Alloc(1, 1))
}

func assertDisjoint(t *testing.T, regions [][]byte) {
	t.Helper()

	sort.Slice(regions, func(i, j int) bool { return addr(regions[i]) < addr(regions[j]) })
	for i := 1; i < len(regions); i++ {
		prevEnd := addr(regions[i-1]) + uintptr(len(regions[i-1]))
		require.LessOrEqual(t, prevEnd, addr(regions[i]), "regions %d and %d overlap", i-1, i)
	}
}

func BenchmarkArena_Alloc(b *testing.B) {
	a := newTestArena(b, 1<<20)
	b.ReportAllocs()

	for b.Loop() {
		if a.Alloc(256, 0) == nil {
			a.Reset()
		}
	}
}

func BenchmarkArena_AllocParallel(b *testing.B) {
	a := newTestArena(b, 64<<20)
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = a.Alloc(64, 0)
		}
	})
}
