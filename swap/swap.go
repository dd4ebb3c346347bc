// Package swap implements the multi-step swap loop of spec §4.6: repeated
// application of swapstep.Compute across tick boundaries, accumulating
// fee growth and crossing ticks (flipping their fee-growth-outside
// snapshot and applying their signed liquidity-net) until the requested
// amount is filled or a price limit is hit.
//
// The loop structure — walk the bitmap for the next initialized tick,
// clamp the step's target to min(next-tick price, price limit), cross
// when the step lands exactly on the tick — is grounded on
// original_source/programs/src/amm_core/instructions/swap.rs and
// programs/amm_core/src/instructions/swap_exact_input.rs, the two
// original_source swap entry points (the Q64.96 and Q64.64 halves of the
// source tree agree on this control flow; only the constants differ).
package swap

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/swapstep"
	"github.com/fluxa-labs/clmm-core/tick"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// MaxSteps bounds the tick-crossing loop. In the original Anchor program
// this bound falls naturally out of the caller supplying a fixed slice
// of remaining_accounts (InsufficientTickAccounts once exhausted); here,
// with no account-loading boundary, the same failure is modeled as a
// step budget so a pathological request (minimal liquidity, the
// smallest tick spacing of 1) still terminates instead of looping until the
// amount or price bound is satisfied tick-by-tick forever.
const MaxSteps = 500

// TickSource is the narrow read/write collaborator the swap loop
// consults for tick crossings, matching spec §2's "pool consults
// tick_state (reads and writes)" data-flow note. Get reports ok=false
// for a compressed tick index that was never loaded, which the loop
// surfaces as InsufficientTickAccounts rather than treating as
// "uninitialized" (those are different things: an uninitialized tick
// the bitmap marked absent is a legitimate no-op skip, a tick the
// bitmap marked present but the caller didn't load is a missing account).
type TickSource interface {
	Bitmap() *tickstate.Bitmap
	Get(compressedTick int32) (*tickstate.State, bool)
}

// Params is the input to a swap.
type Params struct {
	ZeroForOne      bool
	AmountSpecified *big.Int // sign selects exact-in (>=0) vs exact-out (<0)
	SqrtPriceLimit  fp.Q64x64
	FeeRateBps      uint32
	ProtocolFeeBps  uint32 // share of the LP fee diverted to the protocol, out of BPSDenominator
	TickSpacing     int32
}

// State is the subset of pool state the swap loop reads and mutates.
type State struct {
	SqrtPrice          fp.Q64x64
	Tick               int32
	Liquidity          uint128.Uint128
	FeeGrowthGlobal0   fp.Q64x64
	FeeGrowthGlobal1   fp.Q64x64
	ProtocolFeesOwed0  uint64
	ProtocolFeesOwed1  uint64
}

// Result summarizes the swap's net effect, for the caller to apply back
// onto its own Pool record (or to discard on a staged-write abort).
type Result struct {
	State         State
	AmountIn      uint64
	AmountOut     uint64
	StepsTaken    int
}

// Compress converts a tick index into its tick-spacing-compressed form
// (the bitmap's native indexing unit), floor-dividing toward negative
// infinity so spacing boundaries are consistent across the zero tick.
func Compress(t, spacing int32) int32 {
	q := t / spacing
	if t%spacing != 0 && t < 0 {
		q--
	}
	return q
}

// Decompress is Compress's inverse.
func Decompress(c, spacing int32) int32 { return c * spacing }

// Run executes the swap loop starting from `start`, returning the final
// state and filled amounts. It never mutates `start`; callers apply
// Result.State only after confirming success, matching the
// staged-write-abort-on-failure rule of spec §5. Ticks crossed during the
// swap are updated in place through the pointers src.Get returns, so a
// caller that aborts must discard those tick records as well.
func Run(start State, src TickSource, p Params) (Result, error) {
	if p.FeeRateBps >= tick.BPSDenominator {
		return Result{}, errors.New(errors.InvalidInitialPrice, "swap.Run")
	}
	if p.ProtocolFeeBps >= tick.BPSDenominator {
		return Result{}, errors.New(errors.InvalidInitialPrice, "swap.Run")
	}
	if p.AmountSpecified.Sign() == 0 {
		// A zero-amount swap is a no-op: every pool field is returned
		// unchanged rather than treated as a slippage failure.
		return Result{State: start}, nil
	}
	if p.ZeroForOne && p.SqrtPriceLimit.Cmp(start.SqrtPrice) > 0 {
		return Result{}, errors.New(errors.OutOfRange, "swap.Run")
	}
	if !p.ZeroForOne && p.SqrtPriceLimit.Cmp(start.SqrtPrice) < 0 {
		return Result{}, errors.New(errors.OutOfRange, "swap.Run")
	}

	state := start
	remaining := new(big.Int).Set(p.AmountSpecified)
	exactIn := remaining.Sign() >= 0

	var totalIn, totalOut uint64
	steps := 0

	for remaining.Sign() != 0 {
		if steps >= MaxSteps {
			return Result{}, errors.New(errors.InsufficientTickAccounts, "swap.Run")
		}
		steps++

		// A downward search includes the current compressed index (its
		// boundary is at or below the price); an upward search starts one
		// index above it.
		from := Compress(state.Tick, p.TickSpacing)
		if !p.ZeroForOne {
			from++
		}
		nextCompressed, hasNext := src.Bitmap().NextInitialized(from, p.ZeroForOne)

		var targetSqrtPrice fp.Q64x64
		var nextTick int32
		crossing := false

		if hasNext {
			nextTick = Decompress(nextCompressed, p.TickSpacing)
			if nextTick < tick.MinTick {
				nextTick = tick.MinTick
			}
			if nextTick > tick.MaxTick {
				nextTick = tick.MaxTick
			}
			boundaryPrice, err := tick.ToSqrtPrice(nextTick)
			if err != nil {
				return Result{}, err
			}
			targetSqrtPrice = clampTarget(boundaryPrice, p.SqrtPriceLimit, p.ZeroForOne)
			crossing = targetSqrtPrice.Cmp(boundaryPrice) == 0
		} else {
			targetSqrtPrice = p.SqrtPriceLimit
		}

		stepResult, err := swapstep.Compute(state.SqrtPrice, targetSqrtPrice, state.Liquidity, remaining, p.FeeRateBps, p.ZeroForOne)
		if err != nil {
			return Result{}, err
		}

		if exactIn {
			consumed := new(big.Int).SetUint64(stepResult.AmountIn)
			consumed.Add(consumed, new(big.Int).SetUint64(stepResult.FeeAmount))
			remaining.Sub(remaining, consumed)
		} else {
			remaining.Add(remaining, new(big.Int).SetUint64(stepResult.AmountOut))
		}

		totalIn += stepResult.AmountIn
		totalOut += stepResult.AmountOut

		protocolShare, lpShare := splitFee(stepResult.FeeAmount, p.ProtocolFeeBps)
		if p.ZeroForOne {
			state.ProtocolFeesOwed0 += protocolShare
		} else {
			state.ProtocolFeesOwed1 += protocolShare
		}

		if !state.Liquidity.IsZero() && lpShare > 0 {
			feeGrowthDelta, err := fp.Div(fp.FromRaw(uint128.From64(lpShare)), fp.FromRaw(state.Liquidity))
			if err != nil {
				return Result{}, err
			}
			if p.ZeroForOne {
				state.FeeGrowthGlobal0, err = fp.Add(state.FeeGrowthGlobal0, feeGrowthDelta)
			} else {
				state.FeeGrowthGlobal1, err = fp.Add(state.FeeGrowthGlobal1, feeGrowthDelta)
			}
			if err != nil {
				return Result{}, err
			}
		}

		state.SqrtPrice = stepResult.SqrtPriceNext

		if crossing {
			ts, ok := src.Get(nextCompressed)
			if !ok {
				return Result{}, errors.New(errors.InsufficientTickAccounts, "swap.Run")
			}
			ts.FeeGrowthOutside0 = fp.WrappingSub(state.FeeGrowthGlobal0, ts.FeeGrowthOutside0)
			ts.FeeGrowthOutside1 = fp.WrappingSub(state.FeeGrowthGlobal1, ts.FeeGrowthOutside1)

			netMag := ts.LiquidityNet.Magnitude()
			netNegative := ts.LiquidityNet.Sign() < 0
			if p.ZeroForOne {
				netNegative = !netNegative
			}
			if netNegative {
				if state.Liquidity.Cmp(netMag) < 0 {
					return Result{}, errors.New(errors.InsufficientLiquidity, "swap.Run")
				}
				state.Liquidity = state.Liquidity.Sub(netMag)
			} else {
				sum := state.Liquidity.Add(netMag)
				if sum.Cmp(state.Liquidity) < 0 {
					return Result{}, errors.New(errors.Overflow, "swap.Run")
				}
				state.Liquidity = sum
			}

			if p.ZeroForOne {
				state.Tick = nextTick - 1
			} else {
				state.Tick = nextTick
			}
		} else {
			state.Tick = tick.FromSqrtPrice(state.SqrtPrice)
		}

		if state.SqrtPrice.Cmp(p.SqrtPriceLimit) == 0 {
			break
		}
		if !hasNext {
			break
		}
	}

	return Result{
		State:      state,
		AmountIn:   totalIn,
		AmountOut:  totalOut,
		StepsTaken: steps,
	}, nil
}

// clampTarget picks whichever of the tick boundary and the caller's
// price limit is reached first in the swap's direction: price falling
// (zeroForOne) stops at the higher of the two, price rising stops at
// the lower.
func clampTarget(boundary, limit fp.Q64x64, zeroForOne bool) fp.Q64x64 {
	if zeroForOne {
		if boundary.Cmp(limit) >= 0 {
			return boundary
		}
		return limit
	}
	if boundary.Cmp(limit) <= 0 {
		return boundary
	}
	return limit
}

// splitFee divides a total fee into the protocol's bps share (floored)
// and the remainder owed to liquidity providers, per spec §4.6 and the
// Open Question decision recorded in DESIGN.md.
func splitFee(total uint64, protocolFeeBps uint32) (protocolShare, lpShare uint64) {
	if total == 0 || protocolFeeBps == 0 {
		return 0, total
	}
	p := new(big.Int).Mul(new(big.Int).SetUint64(total), new(big.Int).SetUint64(uint64(protocolFeeBps)))
	p.Quo(p, big.NewInt(tick.BPSDenominator))
	protocolShare = p.Uint64()
	return protocolShare, total - protocolShare
}
