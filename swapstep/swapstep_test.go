package swapstep

import (
	"math/big"
	"testing"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/tick"
)

func mustSqrtPrice(t *testing.T, tk int32) fp.Q64x64 {
	t.Helper()
	v, err := tick.ToSqrtPrice(tk)
	if err != nil {
		t.Fatalf("ToSqrtPrice(%d): %v", tk, err)
	}
	return v
}

func TestComputeExactInFullStep(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, -60)
	l := uint128.From64(1_000_000_000)

	// A huge budget should consume the whole step and land exactly on target.
	budget := big.NewInt(1_000_000_000_000)
	res, err := Compute(cur, tgt, l, budget, 3000, true)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.SqrtPriceNext.Cmp(tgt) != 0 {
		t.Fatalf("full step should land on target price, got %s want %s", res.SqrtPriceNext.Raw(), tgt.Raw())
	}
	if res.AmountIn == 0 || res.AmountOut == 0 {
		t.Fatalf("full step should consume and return nonzero amounts")
	}
}

func TestComputeExactInPartialStep(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, -60)
	l := uint128.From64(1_000_000_000)

	res, err := Compute(cur, tgt, l, big.NewInt(10), 3000, true)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// A tiny budget should not reach the target price.
	if res.SqrtPriceNext.Cmp(tgt) == 0 {
		t.Fatalf("partial step should not reach target price")
	}
	if res.SqrtPriceNext.Cmp(cur) > 0 {
		t.Fatalf("zero_for_one step must not increase price")
	}
}

func TestComputeExactOutFullStep(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, 60)
	l := uint128.From64(1_000_000_000)

	res, err := Compute(cur, tgt, l, big.NewInt(-1_000_000_000_000), 3000, false)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.SqrtPriceNext.Cmp(tgt) != 0 {
		t.Fatalf("full exact-out step should land on target, got %s", res.SqrtPriceNext.Raw())
	}
}

func TestComputeExactOutPartialStep(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, 60)
	l := uint128.From64(1_000_000_000)

	res, err := Compute(cur, tgt, l, big.NewInt(-5), 3000, false)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.AmountOut != 5 {
		t.Fatalf("exact-out partial step should deliver exactly the requested output, got %d", res.AmountOut)
	}
	if res.SqrtPriceNext.Cmp(cur) < 0 {
		t.Fatalf("!zero_for_one step must not decrease price")
	}
}

// Fee is charged on top of amountIn in exact-in mode: the total consumed
// (in + fee) must not exceed the caller's offered budget.
func TestComputeFeeWithinBudget(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, -60)
	l := uint128.From64(1_000_000_000)

	budget := int64(1000)
	res, err := Compute(cur, tgt, l, big.NewInt(budget), 3000, true)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	total := int64(res.AmountIn) + int64(res.FeeAmount)
	if total > budget {
		t.Fatalf("amountIn+fee = %d exceeds budget %d", total, budget)
	}
}

func TestComputeZeroFeeRate(t *testing.T) {
	cur := mustSqrtPrice(t, 0)
	tgt := mustSqrtPrice(t, -60)
	l := uint128.From64(1_000_000_000)

	res, err := Compute(cur, tgt, l, big.NewInt(1000), 0, true)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.FeeAmount != 0 {
		t.Fatalf("zero fee rate should yield zero fee, got %d", res.FeeAmount)
	}
}
