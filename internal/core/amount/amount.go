// Package amount provides the fixed-point payment-asset amount used across the
// auction engine. Amounts are denominated in the payment token's smallest unit.
package amount

import "fmt"

type Amount uint64

// UnitsPerToken is the number of base units in one whole payment token.
const UnitsPerToken Amount = 1_000_000_000_000_000_000

func New(units uint64) Amount {
	return Amount(units)
}

// FromTokens converts a whole-token count into base units.
func FromTokens(tokens uint64) Amount {
	return Amount(tokens) * UnitsPerToken
}

func (a Amount) Units() uint64 {
	return uint64(a)
}

func (a Amount) Add(other Amount) Amount {
	return a + other
}

// Sub saturates at zero rather than wrapping.
func (a Amount) Sub(other Amount) Amount {
	if other >= a {
		return 0
	}
	return a - other
}

// MulDiv computes a*mul/div without intermediate overflow for the parameter
// ranges used by increment presets (mul and div fit in 32 bits).
func (a Amount) MulDiv(mul, div uint64) Amount {
	if div == 0 {
		return 0
	}
	hi := uint64(a) / div
	lo := uint64(a) % div
	return Amount(hi*mul + lo*mul/div)
}

// Clamp bounds a into [lo, hi].
func (a Amount) Clamp(lo, hi Amount) Amount {
	if a < lo {
		return lo
	}
	if a > hi {
		return hi
	}
	return a
}

func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Amount) Amount {
	if a > b {
		return a
	}
	return b
}

func (a Amount) IsZero() bool {
	return a == 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%d", uint64(a))
}
