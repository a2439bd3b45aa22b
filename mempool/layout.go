package mempool

import (
	"fmt"

	"github.com/hupe1980/cmxrt/arena"
)

const (
	// DefaultTotalSize is the backing block size used when none is configured.
	DefaultTotalSize = 1 << 20

	// MinTensorPoolSize is the default tensor pool floor (512 KiB).
	MinTensorPoolSize = 512 << 10
	// MinTempBufferSize is the default temp-buffer pool floor (256 KiB).
	MinTempBufferSize = 256 << 10
	// MinGeneralPoolSize is the default general pool floor (64 KiB).
	MinGeneralPoolSize = 64 << 10

	tensorPercent = 60
	tempPercent   = 25
)

// Floors are the minimum sizes of the three pools.
type Floors struct {
	Tensor     int
	TempBuffer int
	General    int
}

// DefaultFloors returns the built-in pool floors.
func DefaultFloors() Floors {
	return Floors{
		Tensor:     MinTensorPoolSize,
		TempBuffer: MinTempBufferSize,
		General:    MinGeneralPoolSize,
	}
}

// Range is a byte range [Offset, Offset+Size) within the backing block.
type Range struct {
	Offset int
	Size   int
}

// End returns the first offset after the range.
func (r Range) End() int { return r.Offset + r.Size }

// Layout is the partition of the backing block.
//
// Total is the effective block size: the sum of the three pool sizes after
// floors were applied, which may exceed the requested size.
type Layout struct {
	Requested  int
	Total      int
	Tensor     Range
	TempBuffer Range
	General    Range
}

// Range returns the byte range of the given pool.
func (l Layout) Range(pt PoolType) (Range, bool) {
	switch pt {
	case TensorPool:
		return l.Tensor, true
	case TempBufferPool:
		return l.TempBuffer, true
	case GeneralPool:
		return l.General, true
	default:
		return Range{}, false
	}
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{total: %d, tensor: %d@%d, temp_buffer: %d@%d, general: %d@%d}",
		l.Total,
		l.Tensor.Size, l.Tensor.Offset,
		l.TempBuffer.Size, l.TempBuffer.Offset,
		l.General.Size, l.General.Offset,
	)
}

// ComputeLayout splits total into the tensor, temp-buffer and general pools
// (60%, 25%, remainder) and raises each pool to its floor. The pools are laid
// out back to back in that order; the tensor and temp-buffer sizes are
// rounded up to arena.DefaultAlignment so that every pool starts aligned, and
// the general pool takes what is left.
//
// Layout.Total always equals the sum of the three sizes. It equals the
// requested size unless a floor raised a pool past what the block can hold.
func ComputeLayout(total int, floors Floors) Layout {
	if total < 0 {
		total = 0
	}

	tensor := alignUp(max(percentOf(total, tensorPercent), floors.Tensor))
	temp := alignUp(max(percentOf(total, tempPercent), floors.TempBuffer))
	general := max(total-tensor-temp, floors.General, 0)

	return Layout{
		Requested:  total,
		Total:      tensor + temp + general,
		Tensor:     Range{Offset: 0, Size: tensor},
		TempBuffer: Range{Offset: tensor, Size: temp},
		General:    Range{Offset: tensor + temp, Size: general},
	}
}

func percentOf(n, pct int) int {
	return n/100*pct + n%100*pct/100
}

func alignUp(n int) int {
	return (n + arena.DefaultAlignment - 1) &^ (arena.DefaultAlignment - 1)
}
