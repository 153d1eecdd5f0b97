package metadata

import (
	"golang.org/x/exp/constraints"
)

// GetAligned rounds operand up to a multiple of granularity, which must be a
// power of two.
func GetAligned[T constraints.Unsigned](operand, granularity T) T {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}
