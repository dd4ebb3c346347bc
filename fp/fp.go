// Package fp implements the 64.64 unsigned fixed-point type used
// throughout the CLMM core: a non-negative real number represented by an
// unsigned 128-bit raw value whose semantic value is raw / 2^64.
//
// Every operation is checked. On overflow, underflow, or divide-by-zero
// it returns a typed *errors.Error instead of wrapping silently, and
// every result is bit-exact regardless of platform: all intermediate
// products run through a math/big widening accumulator, the same trick
// the teacher's WhirlpoolPool.Quote uses to keep a sqrtPrice^2 / 2^128
// computation exact instead of reaching for float64.
package fp

import (
	"math/big"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
)

// Shift is the number of fractional bits: value = raw / 2^Shift.
const Shift = 64

// One is the fixed-point representation of 1.0.
var One = Q64x64{raw: uint128.From64(1).Lsh(Shift)}

// Zero is the fixed-point representation of 0.
var Zero = Q64x64{}

// maxUint128 bounds every result: the raw value must fit in 128 bits.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Q64x64 is a non-negative fixed-point number with 64 fractional bits.
type Q64x64 struct {
	raw uint128.Uint128
}

// FromRaw wraps an already-scaled raw value (value * 2^64) with no checks.
func FromRaw(raw uint128.Uint128) Q64x64 { return Q64x64{raw: raw} }

// FromUint64 builds the fixed-point representation of an integer.
func FromUint64(v uint64) Q64x64 {
	return Q64x64{raw: uint128.From64(v).Lsh(Shift)}
}

// Raw returns the underlying raw 128-bit value (value * 2^64).
func (a Q64x64) Raw() uint128.Uint128 { return a.raw }

// Big returns the raw value as a *big.Int, for interop with widening math.
func (a Q64x64) Big() *big.Int { return a.raw.Big() }

// IsZero reports whether a is exactly zero.
func (a Q64x64) IsZero() bool { return a.raw.IsZero() }

// Cmp compares a and b the way big.Int.Cmp does.
func (a Q64x64) Cmp(b Q64x64) int { return a.raw.Cmp(b.raw) }

func fromBigChecked(v *big.Int, op string) (Q64x64, error) {
	if v.Sign() < 0 {
		return Q64x64{}, errors.New(errors.Underflow, op)
	}
	if v.Cmp(maxUint128) > 0 {
		return Q64x64{}, errors.New(errors.Overflow, op)
	}
	return Q64x64{raw: uint128.FromBig(v)}, nil
}

// Add returns a+b, or Overflow if the sum does not fit in 128 bits.
func Add(a, b Q64x64) (Q64x64, error) {
	sum := new(big.Int).Add(a.Big(), b.Big())
	return fromBigChecked(sum, "fp.Add")
}

// Sub returns a-b, or Underflow if b > a.
func Sub(a, b Q64x64) (Q64x64, error) {
	if a.Cmp(b) < 0 {
		return Q64x64{}, errors.New(errors.Underflow, "fp.Sub")
	}
	diff := new(big.Int).Sub(a.Big(), b.Big())
	return fromBigChecked(diff, "fp.Sub")
}

// Mul returns floor(a*b / 2^64), widened through a 256-bit accumulator so
// the intermediate product never truncates before the shift.
func Mul(a, b Q64x64) (Q64x64, error) {
	product := new(big.Int).Mul(a.Big(), b.Big())
	product.Rsh(product, Shift)
	return fromBigChecked(product, "fp.Mul")
}

// Div returns floor((a<<64) / b), or DivideByZero if b is zero.
func Div(a, b Q64x64) (Q64x64, error) {
	if b.IsZero() {
		return Q64x64{}, errors.New(errors.DivideByZero, "fp.Div")
	}
	dividend := new(big.Int).Lsh(a.Big(), Shift)
	quotient := new(big.Int).Quo(dividend, b.Big())
	return fromBigChecked(quotient, "fp.Div")
}

// MulDivRaw returns floor(a*b/c) over raw u128 triples (no implicit
// fixed-point shift) — the primitive spec §4.1 calls mul_div. Fails with
// DivideByZero if c is zero or Overflow if the quotient exceeds 128 bits.
func MulDivRaw(a, b, c uint128.Uint128) (uint128.Uint128, error) {
	if c.IsZero() {
		return uint128.Zero, errors.New(errors.DivideByZero, "fp.MulDivRaw")
	}
	product := new(big.Int).Mul(a.Big(), b.Big())
	quotient := new(big.Int).Quo(product, c.Big())
	if quotient.Cmp(maxUint128) > 0 {
		return uint128.Zero, errors.New(errors.Overflow, "fp.MulDivRaw")
	}
	return uint128.FromBig(quotient), nil
}

// MulDivRawCeil returns ceil(a*b/c). For any valid inputs,
// MulDivRawCeil(a,b,c) - MulDivRaw(a,b,c) is 0 or 1.
func MulDivRawCeil(a, b, c uint128.Uint128) (uint128.Uint128, error) {
	if c.IsZero() {
		return uint128.Zero, errors.New(errors.DivideByZero, "fp.MulDivRawCeil")
	}
	product := new(big.Int).Mul(a.Big(), b.Big())
	quotient, rem := new(big.Int).QuoRem(product, c.Big(), new(big.Int))
	if rem.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	if quotient.Cmp(maxUint128) > 0 {
		return uint128.Zero, errors.New(errors.Overflow, "fp.MulDivRawCeil")
	}
	return uint128.FromBig(quotient), nil
}

// WrappingSub returns a-b mod 2^128, never erroring. Fee-growth
// accumulators are monotonically increasing but only ever observed as
// differences (outside vs below, inside-last vs inside-now); those
// differences are meaningful modulo 2^128 even when the subtrahend is
// numerically larger, the same unchecked-subtraction trick Uniswap V3's
// tick.getFeeGrowthInside relies on.
func WrappingSub(a, b Q64x64) Q64x64 {
	diff := new(big.Int).Sub(a.Big(), b.Big())
	diff.Mod(diff, new(big.Int).Lsh(big.NewInt(1), 128))
	return Q64x64{raw: uint128.FromBig(diff)}
}

// MulDiv is the Q64x64-typed convenience wrapper over MulDivRaw: it
// computes floor(a*b/c) treating all three as raw fixed-point values
// (the caller is responsible for the semantic meaning of the result).
func MulDiv(a, b, c Q64x64) (Q64x64, error) {
	raw, err := MulDivRaw(a.raw, b.raw, c.raw)
	if err != nil {
		return Q64x64{}, err
	}
	return Q64x64{raw: raw}, nil
}

// MulDivCeil is the ceiling counterpart of MulDiv.
func MulDivCeil(a, b, c Q64x64) (Q64x64, error) {
	raw, err := MulDivRawCeil(a.raw, b.raw, c.raw)
	if err != nil {
		return Q64x64{}, err
	}
	return Q64x64{raw: raw}, nil
}
