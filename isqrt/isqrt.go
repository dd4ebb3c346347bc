// Package isqrt computes integer square roots by Newton iteration, over
// both the 128-bit domain (the common case: square-rooting a Q64.64
// raw value or a liquidity figure) and the wider domain a widened
// product can land in before its sqrt is taken. No other package of
// this module calls it.
//
// Contract (spec §4.2): Sqrt128(n)^2 <= n, and (Sqrt128(n)+1)^2 > n
// whenever the successor does not itself overflow. The iteration is
// non-increasing after the first step and strictly decreasing until it
// reaches the fixed point, so it always terminates.
package isqrt

import (
	"math/big"

	"lukechampine.com/uint128"
)

// Sqrt128 returns floor(sqrt(n)) for a 128-bit unsigned n.
func Sqrt128(n uint128.Uint128) uint128.Uint128 {
	if n.IsZero() {
		return uint128.Zero
	}
	return uint128.FromBig(Sqrt256(n.Big()))
}

// Sqrt256 returns floor(sqrt(n)) for an arbitrary-width non-negative n,
// for products that have been widened past 128 bits before their root
// is needed. Sqrt128 delegates to it.
func Sqrt256(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}

	// Seed from the bit length: 2^(ceil(bitlen/2)+1) is always > sqrt(n),
	// giving Newton's method a starting point that converges monotonically
	// downward without ever overshooting below the true root mid-iteration.
	bitLen := n.BitLen()
	x := new(big.Int).Lsh(big.NewInt(1), uint((bitLen+1)/2+1))

	two := big.NewInt(2)
	for {
		// x_next = (x + n/x) / 2
		quotient := new(big.Int).Quo(n, x)
		sum := new(big.Int).Add(x, quotient)
		next := sum.Quo(sum, two)
		if next.Cmp(x) >= 0 {
			break
		}
		x = next
	}

	// Newton's method for integer sqrt can settle one above the true
	// floor; step down if so.
	for {
		square := new(big.Int).Mul(x, x)
		if square.Cmp(n) <= 0 {
			break
		}
		x = new(big.Int).Sub(x, big.NewInt(1))
	}
	return x
}
