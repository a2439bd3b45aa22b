package conv

import (
	"fmt"
)

// IntToUint64 converts int to uint64, rejecting negative values.
func IntToUint64(v int) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint64 (negative)", v)
	}
	return uint64(v), nil
}

// IntToInt64 converts int to int64. It cannot fail on supported platforms.
func IntToInt64(v int) int64 {
	return int64(v)
}
