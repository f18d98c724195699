/*
Package bitint provides power-of-2 bit manipulation helpers for transform
and buffer sizing. All operations are O(1), allocation free and real-time
safe.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Powers of 2 are
// returned unchanged; zero and negative sizes return 1. The size-1
// subtraction is what preserves exact powers of 2: bits.Len(7) is 3, so 8
// maps to 1<<3 = 8 rather than 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2
// have exactly one bit set, so n&(n-1) clears to zero only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
