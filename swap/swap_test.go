package swap

import (
	"math/big"
	"testing"

	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/tick"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// mapTickSource is a minimal in-memory TickSource for exercising Run
// without any storage layer.
type mapTickSource struct {
	bitmap *tickstate.Bitmap
	ticks  map[int32]*tickstate.State
}

func newMapTickSource() *mapTickSource {
	return &mapTickSource{bitmap: tickstate.NewBitmap(), ticks: make(map[int32]*tickstate.State)}
}

func (m *mapTickSource) Bitmap() *tickstate.Bitmap { return m.bitmap }

func (m *mapTickSource) Get(compressed int32) (*tickstate.State, bool) {
	s, ok := m.ticks[compressed]
	return s, ok
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := []struct{ tk, spacing int32 }{
		{0, 60}, {60, 60}, {-60, 60}, {-1, 60}, {1, 60}, {-61, 60}, {119, 60},
	}
	for _, c := range cases {
		compressed := Compress(c.tk, c.spacing)
		back := Decompress(compressed, c.spacing)
		if back > c.tk || c.tk-back >= c.spacing {
			t.Fatalf("Compress/Decompress(%d, %d) = %d -> %d not in [tk-spacing, tk]", c.tk, c.spacing, compressed, back)
		}
	}
}

func TestRunNoInitializedTicksStopsAtLimit(t *testing.T) {
	src := newMapTickSource()

	startPrice, err := tick.ToSqrtPrice(0)
	if err != nil {
		t.Fatalf("ToSqrtPrice: %v", err)
	}
	limit, err := tick.ToSqrtPrice(-6000)
	if err != nil {
		t.Fatalf("ToSqrtPrice: %v", err)
	}

	start := State{
		SqrtPrice: startPrice,
		Tick:      0,
		Liquidity: uint128.From64(1_000_000_000),
	}
	params := Params{
		ZeroForOne:      true,
		AmountSpecified: big.NewInt(1_000_000_000_000),
		SqrtPriceLimit:  limit,
		FeeRateBps:      3000,
		TickSpacing:     60,
	}

	result, err := Run(start, src, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.State.SqrtPrice.Cmp(limit) != 0 {
		t.Fatalf("with no initialized ticks, swap should run to the price limit: got %s want %s", result.State.SqrtPrice.Raw(), limit.Raw())
	}
	if result.AmountIn == 0 {
		t.Fatalf("swap should have consumed a nonzero input amount")
	}
}

func TestRunCrossesInitializedTick(t *testing.T) {
	src := newMapTickSource()

	spacing := int32(60)
	crossingTick := int32(-60)
	compressed := Compress(crossingTick, spacing)

	ts := tickstate.New()
	if err := ts.ApplyLiquidityDelta(uint128.From64(500_000_000), false, false); err != nil {
		t.Fatalf("ApplyLiquidityDelta: %v", err)
	}
	// This tick is the lower bound of a position (positive net) below the
	// current price, so a zero_for_one swap crossing it downward removes
	// that liquidity.
	src.ticks[compressed] = ts
	src.bitmap.Set(compressed, true)

	startPrice, err := tick.ToSqrtPrice(0)
	if err != nil {
		t.Fatalf("ToSqrtPrice: %v", err)
	}
	limit, err := tick.ToSqrtPrice(-6000)
	if err != nil {
		t.Fatalf("ToSqrtPrice: %v", err)
	}

	start := State{
		SqrtPrice: startPrice,
		Tick:      0,
		Liquidity: uint128.From64(1_000_000_000),
	}
	params := Params{
		ZeroForOne:      true,
		AmountSpecified: big.NewInt(1_000_000_000_000),
		SqrtPriceLimit:  limit,
		FeeRateBps:      3000,
		TickSpacing:     spacing,
	}

	result, err := Run(start, src, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StepsTaken < 2 {
		t.Fatalf("crossing a tick should take at least 2 steps, took %d", result.StepsTaken)
	}
	// Crossing a tick that was a lower-bound contribution (positive net)
	// during a zero_for_one swap subtracts its magnitude from liquidity.
	if result.State.Liquidity.Cmp(start.Liquidity) >= 0 {
		t.Fatalf("liquidity should have decreased after crossing, got %s", result.State.Liquidity)
	}
}

func TestRunZeroAmountIsNoOp(t *testing.T) {
	src := newMapTickSource()
	startPrice, _ := tick.ToSqrtPrice(0)
	limit, _ := tick.ToSqrtPrice(-100)

	start := State{SqrtPrice: startPrice, Tick: 0, Liquidity: uint128.From64(1000)}
	result, err := Run(start, src, Params{
		ZeroForOne:      true,
		AmountSpecified: big.NewInt(0),
		SqrtPriceLimit:  limit,
		FeeRateBps:      3000,
		TickSpacing:     60,
	})
	if err != nil {
		t.Fatalf("a zero-amount swap should be a no-op, not an error: %v", err)
	}
	if result.AmountIn != 0 || result.AmountOut != 0 {
		t.Fatalf("zero-amount swap should fill nothing, got in=%d out=%d", result.AmountIn, result.AmountOut)
	}
	if result.State.SqrtPrice.Cmp(start.SqrtPrice) != 0 || result.State.Liquidity.Cmp(start.Liquidity) != 0 {
		t.Fatalf("zero-amount swap should leave every pool field unchanged")
	}
}

func TestRunInvalidPriceLimitDirection(t *testing.T) {
	src := newMapTickSource()
	startPrice, _ := tick.ToSqrtPrice(0)
	badLimit, _ := tick.ToSqrtPrice(100) // above current price, invalid for zero_for_one

	_, err := Run(State{SqrtPrice: startPrice, Liquidity: uint128.From64(1000)}, src, Params{
		ZeroForOne:      true,
		AmountSpecified: big.NewInt(100),
		SqrtPriceLimit:  badLimit,
		FeeRateBps:      3000,
		TickSpacing:     60,
	})
	if errors.CodeOf(err) != errors.OutOfRange {
		t.Fatalf("price limit on the wrong side of current price should fail OutOfRange, got %v", err)
	}
}
