package mempool

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the manager has no backing block.
	ErrNotInitialized = errors.New("mempool: not initialized")
	// ErrInvalidSize is returned for a non-positive pool size.
	ErrInvalidSize = errors.New("mempool: invalid size")
	// ErrUnknownPoolType is returned for a PoolType outside the known set.
	ErrUnknownPoolType = errors.New("mempool: unknown pool type")
	// ErrExhausted is matched by every *ExhaustedError.
	ErrExhausted = errors.New("arena exhausted")
)

// ExhaustedError reports an allocation a pool could not satisfy.
type ExhaustedError struct {
	Pool      PoolType
	Requested int
	Available int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("mempool: %s pool: arena exhausted (requested %d, available %d)",
		e.Pool, e.Requested, e.Available)
}

// Unwrap returns ErrExhausted.
func (e *ExhaustedError) Unwrap() error { return ErrExhausted }
