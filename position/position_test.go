package position

import (
	"testing"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

func TestFeeGrowthInsideCurrentWithinRange(t *testing.T) {
	lower := tickstate.New()
	upper := tickstate.New()
	lower.FeeGrowthOutside0 = fp.FromUint64(1)
	upper.FeeGrowthOutside0 = fp.FromUint64(1)

	global := fp.FromUint64(10)
	inside0, _ := FeeGrowthInside(lower, upper, -60, 60, 0, global, fp.Zero)

	// global(10) - below(1, since current>=lower) - above(1, since current<upper) = 8
	want := fp.FromUint64(8)
	if inside0.Cmp(want) != 0 {
		t.Fatalf("FeeGrowthInside = %s, want %s", inside0.Raw(), want.Raw())
	}
}

func TestAccrueAddsOwedTokens(t *testing.T) {
	p := New()
	p.Liquidity = uint128.From64(1_000_000)

	if err := p.Accrue(fp.Zero, fp.Zero); err != nil {
		t.Fatalf("initial Accrue: %v", err)
	}
	if p.TokensOwed0 != 0 {
		t.Fatalf("first Accrue from zero snapshot should owe nothing, got %d", p.TokensOwed0)
	}

	growth, err := fp.Div(fp.FromUint64(1), fp.FromUint64(1000))
	if err != nil {
		t.Fatalf("fp.Div: %v", err)
	}
	if err := p.Accrue(growth, fp.Zero); err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if p.TokensOwed0 == 0 {
		t.Fatalf("Accrue with positive fee growth delta should add owed tokens")
	}
}

func TestAccrueSkippedWhenNoLiquidity(t *testing.T) {
	p := New()
	if err := p.Accrue(fp.FromUint64(5), fp.FromUint64(5)); err != nil {
		t.Fatalf("Accrue: %v", err)
	}
	if p.TokensOwed0 != 0 || p.TokensOwed1 != 0 {
		t.Fatalf("a position with zero liquidity should never accrue fees")
	}
	if p.FeeGrowthInside0Last.Cmp(fp.FromUint64(5)) != 0 {
		t.Fatalf("snapshot should still advance even with no liquidity")
	}
}

func TestModifyLiquidityMintAndBurn(t *testing.T) {
	p := New()
	if err := p.ModifyLiquidity(uint128.From64(1000), false); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if p.Liquidity.Cmp(uint128.From64(1000)) != 0 {
		t.Fatalf("Liquidity = %s, want 1000", p.Liquidity)
	}

	if err := p.ModifyLiquidity(uint128.From64(400), true); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if p.Liquidity.Cmp(uint128.From64(600)) != 0 {
		t.Fatalf("Liquidity = %s, want 600", p.Liquidity)
	}

	if err := p.ModifyLiquidity(uint128.From64(1000), true); errors.CodeOf(err) != errors.InsufficientLiquidity {
		t.Fatalf("burning more than available should fail InsufficientLiquidity, got %v", err)
	}
}

func TestCollectPaysMinOfRequestedAndOwed(t *testing.T) {
	p := New()
	p.TokensOwed0 = 100
	p.TokensOwed1 = 5

	paid0, paid1 := p.Collect(40, 50)
	if paid0 != 40 || paid1 != 5 {
		t.Fatalf("Collect(40,50) = (%d,%d), want (40,5)", paid0, paid1)
	}
	if p.TokensOwed0 != 60 || p.TokensOwed1 != 0 {
		t.Fatalf("owed balances after collect: (%d,%d), want (60,0)", p.TokensOwed0, p.TokensOwed1)
	}
}

func TestIsClosable(t *testing.T) {
	p := New()
	if !p.IsClosable() {
		t.Fatalf("a fresh empty position should be closable")
	}
	p.Liquidity = uint128.From64(1)
	if p.IsClosable() {
		t.Fatalf("a position with liquidity should not be closable")
	}
	p.Liquidity = uint128.Zero
	p.TokensOwed0 = 1
	if p.IsClosable() {
		t.Fatalf("a position with owed tokens should not be closable")
	}
}
