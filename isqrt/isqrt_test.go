package isqrt

import (
	"math/big"
	"testing"

	"lukechampine.com/uint128"
)

func TestSqrt128Exact(t *testing.T) {
	cases := []struct{ n, want uint64 }{
		{0, 0},
		{1, 1},
		{4, 2},
		{9, 3},
		{10, 3},
		{99, 9},
		{100, 10},
		{1 << 40, 1 << 20},
	}
	for _, c := range cases {
		got := Sqrt128(uint128.From64(c.n))
		if got.Cmp(uint128.From64(c.want)) != 0 {
			t.Errorf("Sqrt128(%d) = %s, want %d", c.n, got, c.want)
		}
	}
}

// Sqrt128(n)^2 <= n < (Sqrt128(n)+1)^2 for random-ish 128-bit values.
func TestSqrt128Contract(t *testing.T) {
	samples := []uint128.Uint128{
		uint128.Max,
		uint128.From64(1).Lsh(100),
		uint128.From64(12345678901234),
		uint128.From64(2).Mul(uint128.From64(3).Lsh(70)),
	}
	for _, n := range samples {
		root := Sqrt128(n)
		rootSquared := new(big.Int).Mul(root.Big(), root.Big())
		if rootSquared.Cmp(n.Big()) > 0 {
			t.Fatalf("Sqrt128(%s)^2 = %s > n", n, rootSquared)
		}
		successor := new(big.Int).Add(root.Big(), big.NewInt(1))
		successorSquared := new(big.Int).Mul(successor, successor)
		if successorSquared.Cmp(n.Big()) <= 0 {
			t.Fatalf("(Sqrt128(%s)+1)^2 = %s <= n", n, successorSquared)
		}
	}
}

func TestSqrt256(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 200)
	root := Sqrt256(n)
	want := new(big.Int).Lsh(big.NewInt(1), 100)
	if root.Cmp(want) != 0 {
		t.Fatalf("Sqrt256(2^200) = %s, want %s", root, want)
	}

	if Sqrt256(big.NewInt(0)).Sign() != 0 {
		t.Fatalf("Sqrt256(0) should be 0")
	}
	if Sqrt256(big.NewInt(-5)).Sign() != 0 {
		t.Fatalf("Sqrt256(negative) should be 0")
	}
}
