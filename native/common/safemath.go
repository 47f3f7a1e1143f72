package common

import (
	"errors"
	"math/bits"
)

// ErrMathOverflow aborts any operation whose additive or multiplicative
// accounting would wrap a uint64. Quantities that represent owed or earned
// amounts must fail loudly rather than proceed with a wrapped value.
var ErrMathOverflow = errors.New("arithmetic overflow")

// CheckedAdd returns a+b or ErrMathOverflow when the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// CheckedMul returns a*b or ErrMathOverflow when the product wraps.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

// SatSub returns a-b, saturating at zero. Ledger balances can never go
// negative, so saturation is the correct domain semantic for debits.
func SatSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SatAdd returns a+b, clamping at the maximum uint64 instead of wrapping.
func SatAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return sum
}
