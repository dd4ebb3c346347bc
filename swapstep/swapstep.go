// Package swapstep implements the single-tick swap step of spec §4.5:
// given the pool's current and target sqrt price, the active liquidity,
// the remaining amount (signed: positive exact-in, negative exact-out)
// and the fee rate, compute how far the price actually moves this step
// and the in/out/fee amounts that movement represents.
//
// The inverse "how far can this amount move the price" formulas mirror
// the teacher's approach to wide fixed-point math in
// pkg/pool/whirlpool/whirlpoolPool.go (big.Int widening around a
// uint128.Uint128-backed sqrt price) rather than Uniswap's Q96 source,
// since this core is Q64.64 throughout.
package swapstep

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/tick"
)

var twoPow64 = new(big.Int).Lsh(big.NewInt(1), 64)

// Result is the outcome of a single swap step.
type Result struct {
	SqrtPriceNext fp.Q64x64
	AmountIn      uint64
	AmountOut     uint64
	FeeAmount     uint64
}

func ceilDivBig(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// delta0 returns the amount of token0 represented by a price move
// between pLo and pHi (pLo <= pHi), rounded per roundUp.
func delta0(l uint128.Uint128, pLo, pHi *big.Int, roundUp bool) *big.Int {
	if pLo.Sign() == 0 {
		return big.NewInt(0)
	}
	diff := new(big.Int).Sub(pHi, pLo)
	numerator := new(big.Int).Mul(l.Big(), diff)
	numerator.Mul(numerator, twoPow64)
	denominator := new(big.Int).Mul(pLo, pHi)
	if roundUp {
		return ceilDivBig(numerator, denominator)
	}
	return new(big.Int).Quo(numerator, denominator)
}

// delta1 returns the amount of token1 represented by a price move
// between pLo and pHi (pLo <= pHi), rounded per roundUp.
func delta1(l uint128.Uint128, pLo, pHi *big.Int, roundUp bool) *big.Int {
	diff := new(big.Int).Sub(pHi, pLo)
	numerator := new(big.Int).Mul(l.Big(), diff)
	if roundUp {
		return ceilDivBig(numerator, twoPow64)
	}
	return new(big.Int).Quo(numerator, twoPow64)
}

// nextSqrtPriceFromAmount0 finds P' such that moving from sqrtPRaw to P'
// consumes exactly `amount` of token0, added to the pool if add is true
// (exact-in, zero_for_one) or removed if false (exact-out, !zero_for_one).
func nextSqrtPriceFromAmount0(sqrtPRaw *big.Int, l uint128.Uint128, amount uint64, add bool) (*big.Int, error) {
	if amount == 0 {
		return sqrtPRaw, nil
	}
	amt := new(big.Int).SetUint64(amount)
	numerator1 := new(big.Int).Lsh(l.Big(), 64)
	product := new(big.Int).Mul(amt, sqrtPRaw)

	var denominator *big.Int
	if add {
		denominator = new(big.Int).Add(numerator1, product)
	} else {
		if numerator1.Cmp(product) <= 0 {
			return nil, errors.New(errors.InsufficientLiquidity, "swapstep.nextSqrtPriceFromAmount0")
		}
		denominator = new(big.Int).Sub(numerator1, product)
	}
	num := new(big.Int).Mul(numerator1, sqrtPRaw)
	return ceilDivBig(num, denominator), nil
}

// nextSqrtPriceFromAmount1 is the token1 analogue of
// nextSqrtPriceFromAmount0: add moves price up by amount/L (floored),
// remove moves it down by amount/L (ceiled, and must not underflow).
func nextSqrtPriceFromAmount1(sqrtPRaw *big.Int, l uint128.Uint128, amount uint64, add bool) (*big.Int, error) {
	if amount == 0 {
		return sqrtPRaw, nil
	}
	amt := new(big.Int).SetUint64(amount)
	scaled := new(big.Int).Mul(amt, twoPow64)

	if add {
		quotient := new(big.Int).Quo(scaled, l.Big())
		return new(big.Int).Add(sqrtPRaw, quotient), nil
	}
	quotient := ceilDivBig(scaled, l.Big())
	if quotient.Cmp(sqrtPRaw) >= 0 {
		return nil, errors.New(errors.InsufficientLiquidity, "swapstep.nextSqrtPriceFromAmount1")
	}
	return new(big.Int).Sub(sqrtPRaw, quotient), nil
}

func toUint64(v *big.Int, op string) (uint64, error) {
	if v.Sign() < 0 {
		return 0, errors.New(errors.Underflow, op)
	}
	if v.BitLen() > 64 {
		return 0, errors.New(errors.Overflow, op)
	}
	return v.Uint64(), nil
}

// Compute runs one swap step. amountRemaining's sign selects the mode:
// non-negative is exact-in (amountRemaining is the input budget),
// negative is exact-out (|amountRemaining| is the desired output).
func Compute(
	sqrtPriceCurrent, sqrtPriceTarget fp.Q64x64,
	liquidity uint128.Uint128,
	amountRemaining *big.Int,
	feeRateBps uint32,
	zeroForOne bool,
) (Result, error) {
	if zeroForOne && sqrtPriceTarget.Cmp(sqrtPriceCurrent) > 0 {
		return Result{}, errors.New(errors.OutOfRange, "swapstep.Compute")
	}
	if !zeroForOne && sqrtPriceTarget.Cmp(sqrtPriceCurrent) < 0 {
		return Result{}, errors.New(errors.OutOfRange, "swapstep.Compute")
	}
	if feeRateBps >= tick.BPSDenominator {
		return Result{}, errors.New(errors.InvalidInitialPrice, "swapstep.Compute")
	}

	exactIn := amountRemaining.Sign() >= 0
	remainingAbs := new(big.Int).Abs(amountRemaining)

	curRaw, tgtRaw := sqrtPriceCurrent.Big(), sqrtPriceTarget.Big()
	var pLo, pHi *big.Int
	if zeroForOne {
		pLo, pHi = tgtRaw, curRaw
	} else {
		pLo, pHi = curRaw, tgtRaw
	}

	var amountInFull, amountOutFull *big.Int
	if zeroForOne {
		amountInFull = delta0(liquidity, pLo, pHi, true)
		amountOutFull = delta1(liquidity, pLo, pHi, false)
	} else {
		amountInFull = delta1(liquidity, pLo, pHi, true)
		amountOutFull = delta0(liquidity, pLo, pHi, false)
	}

	var sqrtPriceNextRaw *big.Int
	var amountIn, amountOut uint64
	var err error

	if exactIn {
		feeDenom := new(big.Int).SetInt64(int64(tick.BPSDenominator - feeRateBps))
		budget := new(big.Int).Mul(remainingAbs, feeDenom)
		budget.Quo(budget, big.NewInt(tick.BPSDenominator))

		if budget.Cmp(amountInFull) >= 0 {
			sqrtPriceNextRaw = tgtRaw
			amountIn, err = toUint64(amountInFull, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
			amountOut, err = toUint64(amountOutFull, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
		} else {
			amountIn, err = toUint64(budget, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
			if zeroForOne {
				sqrtPriceNextRaw, err = nextSqrtPriceFromAmount0(curRaw, liquidity, amountIn, true)
			} else {
				sqrtPriceNextRaw, err = nextSqrtPriceFromAmount1(curRaw, liquidity, amountIn, true)
			}
			if err != nil {
				return Result{}, err
			}
			var outBig *big.Int
			if zeroForOne {
				outBig = delta1(liquidity, sqrtPriceNextRaw, curRaw, false)
			} else {
				outBig = delta0(liquidity, curRaw, sqrtPriceNextRaw, false)
			}
			amountOut, err = toUint64(outBig, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
		}
	} else {
		if remainingAbs.Cmp(amountOutFull) >= 0 {
			sqrtPriceNextRaw = tgtRaw
			amountIn, err = toUint64(amountInFull, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
			amountOut, err = toUint64(amountOutFull, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
		} else {
			amountOut, err = toUint64(remainingAbs, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
			if zeroForOne {
				sqrtPriceNextRaw, err = nextSqrtPriceFromAmount1(curRaw, liquidity, amountOut, false)
			} else {
				sqrtPriceNextRaw, err = nextSqrtPriceFromAmount0(curRaw, liquidity, amountOut, false)
			}
			if err != nil {
				return Result{}, err
			}
			var inBig *big.Int
			if zeroForOne {
				inBig = delta0(liquidity, sqrtPriceNextRaw, curRaw, true)
			} else {
				inBig = delta1(liquidity, curRaw, sqrtPriceNextRaw, true)
			}
			amountIn, err = toUint64(inBig, "swapstep.Compute")
			if err != nil {
				return Result{}, err
			}
		}
	}

	var feeAmount uint64
	if exactIn {
		feeDenom := tick.BPSDenominator - feeRateBps
		feeBig := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), new(big.Int).SetInt64(int64(feeRateBps)))
		feeBig = ceilDivBig(feeBig, big.NewInt(int64(feeDenom)))
		feeAmount, err = toUint64(feeBig, "swapstep.Compute")
	} else {
		feeBig := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), new(big.Int).SetInt64(int64(feeRateBps)))
		feeBig = ceilDivBig(feeBig, big.NewInt(tick.BPSDenominator))
		feeAmount, err = toUint64(feeBig, "swapstep.Compute")
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		SqrtPriceNext: fp.FromRaw(uint128.FromBig(sqrtPriceNextRaw)),
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		FeeAmount:     feeAmount,
	}, nil
}
