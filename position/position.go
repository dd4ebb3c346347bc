// Package position implements LP position accounting: spec §3.5 and
// §4.8's fee-growth-inside computation, liquidity modification, and
// owed-token accrual.
//
// Position itself is a generalization of original_source's
// programs/amm_core/src/position.rs PositionData, whose base shape
// (owner, pool, tick bounds, liquidity) it keeps, with owner/pool/ticks
// moved into store.PositionKey. The two fee-growth-inside snapshots and
// two owed counters, which the original omits, are added here, as is
// the fee-growth-inside derivation.
package position

import (
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// Position is the per-owner, per-range account: spec §3.5.
type Position struct {
	Liquidity             uint128.Uint128
	FeeGrowthInside0Last  fp.Q64x64
	FeeGrowthInside1Last  fp.Q64x64
	TokensOwed0           uint64
	TokensOwed1           uint64
}

// New returns an empty position.
func New() *Position {
	return &Position{}
}

// FeeGrowthInside computes the fee growth accrued inside [lower, upper]
// as of the pool's current tick and global fee-growth accumulators, per
// spec §4.8: feeGrowthGlobal - feeGrowthBelow - feeGrowthAbove, where
// "below"/"above" flip which side of each boundary tick's
// fee-growth-outside snapshot applies depending on whether the current
// tick has crossed that boundary yet. All subtraction is mod-2^128
// wrapping (fp.WrappingSub): fee growth is only ever meaningful as a
// difference, never as an absolute magnitude.
func FeeGrowthInside(
	lower, upper *tickstate.State,
	lowerTick, upperTick, currentTick int32,
	feeGrowthGlobal0, feeGrowthGlobal1 fp.Q64x64,
) (inside0, inside1 fp.Q64x64) {
	var below0, below1 fp.Q64x64
	if currentTick >= lowerTick {
		below0, below1 = lower.FeeGrowthOutside0, lower.FeeGrowthOutside1
	} else {
		below0 = fp.WrappingSub(feeGrowthGlobal0, lower.FeeGrowthOutside0)
		below1 = fp.WrappingSub(feeGrowthGlobal1, lower.FeeGrowthOutside1)
	}

	var above0, above1 fp.Q64x64
	if currentTick < upperTick {
		above0, above1 = upper.FeeGrowthOutside0, upper.FeeGrowthOutside1
	} else {
		above0 = fp.WrappingSub(feeGrowthGlobal0, upper.FeeGrowthOutside0)
		above1 = fp.WrappingSub(feeGrowthGlobal1, upper.FeeGrowthOutside1)
	}

	inside0 = fp.WrappingSub(fp.WrappingSub(feeGrowthGlobal0, below0), above0)
	inside1 = fp.WrappingSub(fp.WrappingSub(feeGrowthGlobal1, below1), above1)
	return inside0, inside1
}

// saturatingAddU64 adds b onto a, clamping at MaxUint64 instead of
// wrapping: owed-token counters are a user-facing balance, not a ring
// accumulator, so saturation (not wraparound) is the safe failure mode
// if they ever approach the u64 ceiling.
func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// Accrue folds newly computed fee-growth-inside snapshots into the
// position: the difference since FeeGrowthInside{0,1}Last, multiplied
// by the position's liquidity, becomes newly owed tokens (spec §4.8).
// Called on every touch (mint, burn, collect) before the liquidity or
// snapshot fields themselves change.
func (p *Position) Accrue(feeGrowthInside0, feeGrowthInside1 fp.Q64x64) error {
	if !p.Liquidity.IsZero() {
		delta0 := fp.WrappingSub(feeGrowthInside0, p.FeeGrowthInside0Last)
		delta1 := fp.WrappingSub(feeGrowthInside1, p.FeeGrowthInside1Last)

		owed0, err := fp.MulDivRaw(delta0.Raw(), p.Liquidity, fp.One.Raw())
		if err != nil {
			return err
		}
		owed1, err := fp.MulDivRaw(delta1.Raw(), p.Liquidity, fp.One.Raw())
		if err != nil {
			return err
		}

		p.TokensOwed0 = saturatingAddU64(p.TokensOwed0, clampToU64(owed0))
		p.TokensOwed1 = saturatingAddU64(p.TokensOwed1, clampToU64(owed1))
	}

	p.FeeGrowthInside0Last = feeGrowthInside0
	p.FeeGrowthInside1Last = feeGrowthInside1
	return nil
}

func clampToU64(v uint128.Uint128) uint64 {
	max64 := uint128.From64(^uint64(0))
	if v.Cmp(max64) > 0 {
		return ^uint64(0)
	}
	return v.Big().Uint64()
}

// ModifyLiquidity applies a signed liquidity delta (positive = mint,
// negative = burn) after the caller has already called Accrue with the
// range's current fee-growth-inside. Fails with InsufficientLiquidity
// if a burn's magnitude exceeds the position's liquidity.
func (p *Position) ModifyLiquidity(deltaMag uint128.Uint128, negative bool) error {
	if negative {
		if p.Liquidity.Cmp(deltaMag) < 0 {
			return errors.New(errors.InsufficientLiquidity, "position.ModifyLiquidity")
		}
		p.Liquidity = p.Liquidity.Sub(deltaMag)
		return nil
	}
	sum := p.Liquidity.Add(deltaMag)
	if sum.Cmp(p.Liquidity) < 0 {
		return errors.New(errors.Overflow, "position.ModifyLiquidity")
	}
	p.Liquidity = sum
	return nil
}

// Collect withdraws up to (requested0, requested1) from the position's
// owed balances, returning the amounts actually paid (min(requested,
// owed)) and decrementing TokensOwed accordingly. Spec §4.8: collect
// never blocks on an empty balance, it simply pays out zero.
func (p *Position) Collect(requested0, requested1 uint64) (paid0, paid1 uint64) {
	paid0 = min64(requested0, p.TokensOwed0)
	paid1 = min64(requested1, p.TokensOwed1)
	p.TokensOwed0 -= paid0
	p.TokensOwed1 -= paid1
	return paid0, paid1
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// IsClosable reports whether a position has no remaining liquidity or
// owed tokens and can be deleted from storage, matching the
// close_position eligibility check original_source's instructions
// perform before letting an account be reclaimed.
func (p *Position) IsClosable() bool {
	return p.Liquidity.IsZero() && p.TokensOwed0 == 0 && p.TokensOwed1 == 0
}
