package tick

import (
	"math/big"
	"testing"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
)

func TestToSqrtPriceZero(t *testing.T) {
	sp, err := ToSqrtPrice(0)
	if err != nil {
		t.Fatalf("ToSqrtPrice(0): %v", err)
	}
	if sp.Cmp(fp.One) != 0 {
		t.Fatalf("ToSqrtPrice(0) = %s, want 1.0", sp.Raw())
	}
}

func TestToSqrtPriceOutOfRange(t *testing.T) {
	if _, err := ToSqrtPrice(MaxTick + 1); errors.CodeOf(err) != errors.OutOfRange {
		t.Fatalf("ToSqrtPrice(MaxTick+1) should be OutOfRange, got %v", err)
	}
	if _, err := ToSqrtPrice(MinTick - 1); errors.CodeOf(err) != errors.OutOfRange {
		t.Fatalf("ToSqrtPrice(MinTick-1) should be OutOfRange, got %v", err)
	}
}

// ToSqrtPrice must be strictly increasing in t.
func TestToSqrtPriceMonotone(t *testing.T) {
	ticks := []int32{MinTick, -100000, -1, 0, 1, 100000, MaxTick}
	var prev fp.Q64x64
	for i, tk := range ticks {
		sp, err := ToSqrtPrice(tk)
		if err != nil {
			t.Fatalf("ToSqrtPrice(%d): %v", tk, err)
		}
		if i > 0 && sp.Cmp(prev) <= 0 {
			t.Fatalf("ToSqrtPrice(%d) = %s not greater than previous %s", tk, sp.Raw(), prev.Raw())
		}
		prev = sp
	}
}

// Negative and positive ticks of equal magnitude are reciprocal: their
// product is approximately 1 (within a handful of raw units of truncation).
func TestToSqrtPriceReciprocal(t *testing.T) {
	for _, tk := range []int32{1, 1000, 887271} {
		pos, err := ToSqrtPrice(tk)
		if err != nil {
			t.Fatalf("ToSqrtPrice(%d): %v", tk, err)
		}
		neg, err := ToSqrtPrice(-tk)
		if err != nil {
			t.Fatalf("ToSqrtPrice(%d): %v", -tk, err)
		}
		product := new(big.Int).Mul(pos.Big(), neg.Big())
		product.Rsh(product, fp.Shift)
		diff := new(big.Int).Sub(product, fp.One.Big())
		diff.Abs(diff)
		if diff.Cmp(big.NewInt(1<<10)) > 0 {
			t.Fatalf("tick %d: reciprocal product too far from 1: %s", tk, product)
		}
	}
}

// FromSqrtPrice must invert ToSqrtPrice: FromSqrtPrice(ToSqrtPrice(t)) == t.
func TestFromSqrtPriceRoundTrip(t *testing.T) {
	for _, tk := range []int32{MinTick, -500000, -1, 0, 1, 500000, MaxTick} {
		sp, err := ToSqrtPrice(tk)
		if err != nil {
			t.Fatalf("ToSqrtPrice(%d): %v", tk, err)
		}
		got := FromSqrtPrice(sp)
		if got != tk {
			t.Fatalf("FromSqrtPrice(ToSqrtPrice(%d)) = %d", tk, got)
		}
	}
}
