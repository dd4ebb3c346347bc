// Package tick implements the tick <-> sqrt-price bijection: exact
// sqrt(1.0001)^tick in Q64.64, computed via binary exponentiation over a
// precomputed powers-of-two table, and its monotone-search inverse.
//
// The POWERS table and the tick/price bounds are copied verbatim from
// original_source/programs/amm_core/src/constants.rs (the Fluxa amm_core
// Anchor program this module's math is grounded on).
package tick

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
)

// MinTick and MaxTick bound every valid tick index (spec §3.2, §6).
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// MinLiquidity is the smallest liquidity delta a mint may add (spec §6).
const MinLiquidity = 1000

// BPSDenominator is the basis-point denominator fee rates and the
// protocol fee share are expressed against (spec §6).
const BPSDenominator = 10000

// MinSqrtPrice and MaxSqrtPrice bound the Q64.64 sqrt-price domain. The
// Q64.64 variant is canonical per spec §9's Open Question resolution:
// MinSqrtPrice is 0 here (not the Q64.96 4295128739 the other half of
// original_source's source tree uses).
var (
	MinSqrtPrice = fp.Zero
	MaxSqrtPrice = mustMaxSqrtPrice()
)

func mustMaxSqrtPrice() fp.Q64x64 {
	v, ok := new(big.Int).SetString("340269576636625053602161358042262667264", 10)
	if !ok {
		panic("tick: bad MaxSqrtPrice literal")
	}
	return fp.FromRaw(uint128.FromBig(v))
}

// powers holds floor((sqrt(1.0001))^(2^i) * 2^64) for i = 0..19, enough
// to binary-exponentiate any tick magnitude up to MaxTick (< 2^20).
var powers = [20]uint128.Uint128{
	u128("18447666387855959850"),
	u128("18448588748116922571"),
	u128("18450433606991734263"),
	u128("18454123878217468680"),
	u128("18461506635090006701"),
	u128("18476281010653910144"),
	u128("18505865242158250041"),
	u128("18565175891880433522"),
	u128("18684368066214940582"),
	u128("18925053041275764671"),
	u128("19415764168677886926"),
	u128("20435687552633177494"),
	u128("22639080592224303007"),
	u128("27784196929998399742"),
	u128("41848122137994986128"),
	u128("94936283578220370716"),
	u128("488590176327622479860"),
	u128("12941056668319229769860"),
	u128("9078618265828848800676189"),
	u128("4468068147273140139091016147737"),
}

func u128(s string) uint128.Uint128 {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("tick: bad POWERS literal " + s)
	}
	return uint128.FromBig(v)
}

// ToSqrtPrice returns the exact sqrt(1.0001)^t truncated to Q64.64, per
// spec §4.3. It fails with OutOfRange if t is outside [MinTick, MaxTick].
func ToSqrtPrice(t int32) (fp.Q64x64, error) {
	if t < MinTick || t > MaxTick {
		return fp.Q64x64{}, errors.New(errors.OutOfRange, "tick.ToSqrtPrice")
	}

	x := t
	if x < 0 {
		x = -x
	}

	ux := uint32(x)
	r := fp.One.Raw()
	for i := uint(0); i < uint(len(powers)) && (ux>>i) != 0; i++ {
		if ux&(1<<i) == 0 {
			continue
		}
		product := new(big.Int).Mul(r.Big(), powers[i].Big())
		product.Rsh(product, fp.Shift)
		r = uint128.FromBig(product)
	}

	if t < 0 {
		// floor(2^128 / r), the correctly-rounded Q64.64 reciprocal.
		twoPow128 := new(big.Int).Lsh(big.NewInt(1), 128)
		r = uint128.FromBig(new(big.Int).Quo(twoPow128, r.Big()))
	}

	return fp.FromRaw(r), nil
}

// FromSqrtPrice returns the greatest tick t such that
// ToSqrtPrice(t) <= p, found by monotone binary search (spec §4.3's
// Open Question: the source does not prescribe a bit-chunking trick, so
// a plain search over [MinTick, MaxTick] is used).
func FromSqrtPrice(p fp.Q64x64) int32 {
	lo, hi := MinTick, MaxTick
	for lo < hi {
		// Bias the midpoint high so the loop converges to the greatest
		// satisfying tick rather than oscillating around the boundary.
		mid := lo + (hi-lo+1)/2
		sp, err := ToSqrtPrice(mid)
		if err == nil && sp.Cmp(p) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
