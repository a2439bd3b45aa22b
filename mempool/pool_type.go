package mempool

import "fmt"

// PoolType names one of the three sub-pools.
type PoolType int

const (
	// TensorPool holds activations and other tensor payloads.
	TensorPool PoolType = iota
	// TempBufferPool holds kernel scratch space.
	TempBufferPool
	// GeneralPool holds everything else.
	GeneralPool

	numPools = 3
)

// PoolTypes lists every pool type in partition order.
var PoolTypes = [numPools]PoolType{TensorPool, TempBufferPool, GeneralPool}

func (p PoolType) String() string {
	switch p {
	case TensorPool:
		return "tensor"
	case TempBufferPool:
		return "temp_buffer"
	case GeneralPool:
		return "general"
	default:
		return fmt.Sprintf("PoolType(%d)", int(p))
	}
}

// Valid reports whether p names a known pool.
func (p PoolType) Valid() bool {
	return p >= TensorPool && p <= GeneralPool
}
