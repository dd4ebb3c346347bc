// Package amounts implements the liquidity <-> token-amount formulas of
// spec §4.4: deriving how much of each token a concentrated position of
// liquidity L over [sqrtPa, sqrtPb] requires (or returns), and the
// reverse. Rounding direction is fixed and load-bearing: amounts owed to
// the pool round up, amounts paid by the pool round down.
package amounts

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
)

var twoPow64 = new(big.Int).Lsh(big.NewInt(1), 64)

func order(a, b fp.Q64x64) (lo, hi fp.Q64x64, err error) {
	if a.Cmp(b) > 0 {
		return fp.Q64x64{}, fp.Q64x64{}, errors.New(errors.InvalidTickRange, "amounts.order")
	}
	return a, b, nil
}

func toUint64Checked(v *big.Int, op string) (uint64, error) {
	if v.Sign() < 0 {
		return 0, errors.New(errors.Underflow, op)
	}
	if v.BitLen() > 64 {
		return 0, errors.New(errors.Overflow, op)
	}
	return v.Uint64(), nil
}

// Amount0FromLiquidity returns ceil(L*(B-A)*2^64 / (A*B)): the amount of
// token0 a position of liquidity L over [A,B] requires.
func Amount0FromLiquidity(l uint128.Uint128, sqrtPa, sqrtPb fp.Q64x64) (uint64, error) {
	a, b, err := order(sqrtPa, sqrtPb)
	if err != nil {
		return 0, err
	}
	if a.IsZero() {
		return 0, errors.New(errors.DivideByZero, "amounts.Amount0FromLiquidity")
	}
	diff := new(big.Int).Sub(b.Big(), a.Big())
	numerator := new(big.Int).Mul(l.Big(), diff)
	numerator.Mul(numerator, twoPow64)
	denominator := new(big.Int).Mul(a.Big(), b.Big())
	quotient, rem := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if rem.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return toUint64Checked(quotient, "amounts.Amount0FromLiquidity")
}

// Amount1FromLiquidity returns ceil(L*(B-A) / 2^64): the amount of
// token1 a position of liquidity L over [A,B] requires.
func Amount1FromLiquidity(l uint128.Uint128, sqrtPa, sqrtPb fp.Q64x64) (uint64, error) {
	a, b, err := order(sqrtPa, sqrtPb)
	if err != nil {
		return 0, err
	}
	diff := new(big.Int).Sub(b.Big(), a.Big())
	numerator := new(big.Int).Mul(l.Big(), diff)
	quotient, rem := new(big.Int).QuoRem(numerator, twoPow64, new(big.Int))
	if rem.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return toUint64Checked(quotient, "amounts.Amount1FromLiquidity")
}

// LiquidityFromAmount0 returns floor(amount*A*B / ((B-A)*2^64)).
func LiquidityFromAmount0(amount uint64, sqrtPa, sqrtPb fp.Q64x64) (uint128.Uint128, error) {
	a, b, err := order(sqrtPa, sqrtPb)
	if err != nil {
		return uint128.Zero, err
	}
	diff := new(big.Int).Sub(b.Big(), a.Big())
	if diff.Sign() == 0 {
		return uint128.Zero, errors.New(errors.DivideByZero, "amounts.LiquidityFromAmount0")
	}
	numerator := new(big.Int).Mul(new(big.Int).SetUint64(amount), a.Big())
	numerator.Mul(numerator, b.Big())
	denominator := new(big.Int).Mul(diff, twoPow64)
	quotient := new(big.Int).Quo(numerator, denominator)
	return toUint128Checked(quotient, "amounts.LiquidityFromAmount0")
}

// LiquidityFromAmount1 returns floor(amount*2^64 / (B-A)).
func LiquidityFromAmount1(amount uint64, sqrtPa, sqrtPb fp.Q64x64) (uint128.Uint128, error) {
	a, b, err := order(sqrtPa, sqrtPb)
	if err != nil {
		return uint128.Zero, err
	}
	diff := new(big.Int).Sub(b.Big(), a.Big())
	if diff.Sign() == 0 {
		return uint128.Zero, errors.New(errors.DivideByZero, "amounts.LiquidityFromAmount1")
	}
	numerator := new(big.Int).Mul(new(big.Int).SetUint64(amount), twoPow64)
	quotient := new(big.Int).Quo(numerator, diff)
	return toUint128Checked(quotient, "amounts.LiquidityFromAmount1")
}

func toUint128Checked(v *big.Int, op string) (uint128.Uint128, error) {
	if v.Sign() < 0 {
		return uint128.Zero, errors.New(errors.Underflow, op)
	}
	if v.BitLen() > 128 {
		return uint128.Zero, errors.New(errors.Overflow, op)
	}
	return uint128.FromBig(v), nil
}

// ForPosition splits liquidity L over [sqrtPa, sqrtPb] against the
// pool's current sqrt price, per spec §4.4's three cases: all-token0
// below the range, all-token1 above it, or a mix straddling it.
func ForPosition(l uint128.Uint128, sqrtPa, sqrtPb, sqrtPCurrent fp.Q64x64) (amount0, amount1 uint64, err error) {
	a, b, err := order(sqrtPa, sqrtPb)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case sqrtPCurrent.Cmp(a) <= 0:
		amount0, err = Amount0FromLiquidity(l, a, b)
		return amount0, 0, err
	case sqrtPCurrent.Cmp(b) >= 0:
		amount1, err = Amount1FromLiquidity(l, a, b)
		return 0, amount1, err
	default:
		amount0, err = Amount0FromLiquidity(l, sqrtPCurrent, b)
		if err != nil {
			return 0, 0, err
		}
		amount1, err = Amount1FromLiquidity(l, a, sqrtPCurrent)
		if err != nil {
			return 0, 0, err
		}
		return amount0, amount1, nil
	}
}
