/*
Package bitint provides the power-of-two helpers used to size lock-free
buffers. A ring whose storage length is a power of two can turn a
monotonically increasing position into an index with a single AND.

Design Principles:
- Zero Allocations: stack only
- O(1): one bits.Len call per operation
- Real-Time Safe: no locks, syscalls, or blocking

Usage:

	size := bitint.NextPowerOfTwo(7200) // 8192
	mask := uint64(size - 1)
	index := position & mask
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive sizes
// return 1.
//
// Subtracting one first keeps exact powers of two unchanged:
//
//	Input  Output
//	8      8
//	4800   8192
//	7200   8192
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Mask returns size-1 for a power-of-two size, for use as an index mask.
// It returns 0 when size is not a power of two.
func Mask(size int) uint64 {
	if !IsPowerOfTwo(size) {
		return 0
	}
	return uint64(size - 1)
}
