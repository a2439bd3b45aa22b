// Package conv provides checked integer conversions.
//
// The memory pools size everything in int (slice lengths) while the budget
// controller counts int64 and statistics are reported as uint64.
package conv
