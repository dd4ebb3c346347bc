// Package poolstate implements the top-level per-pool state machine: the
// fields of spec §3.3 and the five entry points of spec §6
// (initialize_pool, mint, burn, collect, swap) plus the supplemented
// collect_protocol_fees operation (SPEC_FULL.md §5.1).
//
// Every entry point follows the staged-write discipline of spec §5: all
// checks and arithmetic run against local copies first; only once every
// step has succeeded does the function write back through the Store and
// emit an event. On any failure the pool, its ticks, and its positions
// are left exactly as they were before the call.
//
// Field naming follows the teacher's WhirlpoolPool
// (pkg/pool/whirlpool/whirlpoolPool.go): SqrtPrice, TickCurrentIndex (here
// CurrentTick), FeeGrowthGlobalA/B, ProtocolFeeOwedA/B -- generalized from
// a read-only RPC-decoded account into a live, mutated state machine.
package poolstate

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/amounts"
	"github.com/fluxa-labs/clmm-core/config"
	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/events"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/position"
	"github.com/fluxa-labs/clmm-core/store"
	"github.com/fluxa-labs/clmm-core/swap"
	"github.com/fluxa-labs/clmm-core/tick"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// Pool is the top-level pool account: spec §3.3.
type Pool struct {
	Id solana.PublicKey

	Token0Mint solana.PublicKey
	Token1Mint solana.PublicKey

	FeeRateBps          uint32
	ProtocolFeeShareBps uint32
	TickSpacing         int32

	SqrtPrice       fp.Q64x64
	CurrentTick     int32
	ActiveLiquidity uint128.Uint128

	FeeGrowthGlobal0 fp.Q64x64
	FeeGrowthGlobal1 fp.Q64x64

	ProtocolFeesOwed0 uint64
	ProtocolFeesOwed1 uint64

	Bitmap *tickstate.Bitmap
}

// InitializePool creates a pool at initialSqrtPrice, per spec §6.
// Constraints: token0 < token1 (canonical ordering), feeRateBps must map
// to a known tick spacing (config.DefaultFeeTiers), initialSqrtPrice in
// (0, MAX_SQRT_PRICE].
func InitializePool(id, token0, token1 solana.PublicKey, feeRateBps uint32, initialSqrtPrice fp.Q64x64, bus *events.Broadcaster) (*Pool, error) {
	if token0.Equals(token1) {
		return nil, errors.New(errors.MintsMustDiffer, "poolstate.InitializePool")
	}
	if bytesCompare(token0[:], token1[:]) >= 0 {
		return nil, errors.New(errors.MintsNotInCanonicalOrder, "poolstate.InitializePool")
	}
	tickSpacing, ok := config.TickSpacingFor(config.DefaultFeeTiers, feeRateBps)
	if !ok {
		return nil, errors.New(errors.InvalidTickSpacing, "poolstate.InitializePool")
	}
	if initialSqrtPrice.IsZero() || initialSqrtPrice.Cmp(tick.MaxSqrtPrice) > 0 {
		return nil, errors.New(errors.InvalidInitialPrice, "poolstate.InitializePool")
	}

	currentTick := tick.FromSqrtPrice(initialSqrtPrice)

	p := &Pool{
		Id:                  id,
		Token0Mint:          token0,
		Token1Mint:          token1,
		FeeRateBps:          feeRateBps,
		ProtocolFeeShareBps: config.ProtocolFeeShareBps(0),
		TickSpacing:         tickSpacing,
		SqrtPrice:           initialSqrtPrice,
		CurrentTick:         currentTick,
		ActiveLiquidity:     uint128.Zero,
		Bitmap:              tickstate.NewBitmap(),
	}

	if bus != nil {
		bus.Emit(events.Event{
			Kind:         events.KindPoolInitialized,
			Pool:         events.PoolKey(id),
			Tick:         currentTick,
			SqrtPriceRaw: initialSqrtPrice.Raw().String(),
		})
	}
	return p, nil
}

func bytesCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// validateTicks enforces spec §3.5: lower < upper, both aligned to
// tick_spacing, both within [MinTick, MaxTick].
func (p *Pool) validateTicks(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return errors.New(errors.InvalidTickRange, "poolstate.validateTicks")
	}
	if tickLower < tick.MinTick || tickUpper > tick.MaxTick {
		return errors.New(errors.OutOfRange, "poolstate.validateTicks")
	}
	if tickLower%p.TickSpacing != 0 || tickUpper%p.TickSpacing != 0 {
		return errors.New(errors.InvalidTickSpacing, "poolstate.validateTicks")
	}
	return nil
}

// loadOrNewTick fetches a tick account, returning a fresh zero-value
// State if one was never stored (spec §3.4: uninitialized ticks occupy
// no state until first referenced).
func loadOrNewTick(s store.Store, pool solana.PublicKey, compressed int32) (*tickstate.State, error) {
	ts, ok, err := s.LoadTick(pool, compressed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return tickstate.New(), nil
	}
	return ts, nil
}

// Mint increases a position's liquidity by liquidityDelta (>= MinLiquidity),
// per spec §6 and §4.7. Returns the token amounts the caller must deposit.
func (p *Pool) Mint(
	s store.Store,
	owner solana.PublicKey,
	tickLower, tickUpper int32,
	liquidityDelta uint128.Uint128,
	ledgerDeposit func(mint solana.PublicKey, amount cosmath.Int) error,
	bus *events.Broadcaster,
) (amount0, amount1 cosmath.Int, err error) {
	if liquidityDelta.Cmp(uint128.From64(tick.MinLiquidity)) < 0 {
		return cosmath.Int{}, cosmath.Int{}, errors.New(errors.InsufficientLiquidity, "poolstate.Mint")
	}
	return p.modifyLiquidity(s, owner, tickLower, tickUpper, liquidityDelta, false, ledgerDeposit, bus, events.KindMint)
}

// Burn decreases a position's liquidity by liquidityDelta, crediting the
// freed amounts to the position's owed-token counters (spec §6, §4.7).
func (p *Pool) Burn(
	s store.Store,
	owner solana.PublicKey,
	tickLower, tickUpper int32,
	liquidityDelta uint128.Uint128,
	bus *events.Broadcaster,
) (amount0Owed, amount1Owed cosmath.Int, err error) {
	return p.modifyLiquidity(s, owner, tickLower, tickUpper, liquidityDelta, true, nil, bus, events.KindBurn)
}

// modifyLiquidity implements spec §4.7 for both mint (negative=false) and
// burn (negative=true). On burn, the computed amounts are not paid out
// immediately: they are added to the position's owed-token counters,
// which Collect later pays from.
func (p *Pool) modifyLiquidity(
	s store.Store,
	owner solana.PublicKey,
	tickLower, tickUpper int32,
	deltaMag uint128.Uint128,
	negative bool,
	ledgerDeposit func(mint solana.PublicKey, amount cosmath.Int) error,
	bus *events.Broadcaster,
	kind events.Kind,
) (amount0, amount1 cosmath.Int, err error) {
	if err := p.validateTicks(tickLower, tickUpper); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	posKey := store.PositionKey{Owner: owner, Pool: p.Id, TickLower: tickLower, TickUpper: tickUpper}
	pos, ok, err := s.LoadPosition(posKey)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	if !ok {
		pos = position.New()
	}

	compLower := swap.Compress(tickLower, p.TickSpacing)
	compUpper := swap.Compress(tickUpper, p.TickSpacing)

	lowerTs, err := loadOrNewTick(s, p.Id, compLower)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	upperTs, err := loadOrNewTick(s, p.Id, compUpper)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	// Step 1 (spec §4.7): snapshot fee-growth-inside and accrue before
	// the liquidity or tick accounts change.
	inside0, inside1 := position.FeeGrowthInside(lowerTs, upperTs, tickLower, tickUpper, p.CurrentTick, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1)
	if err := pos.Accrue(inside0, inside1); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	// Step 2: apply the delta to both tick accounts.
	if err := lowerTs.ApplyLiquidityDelta(deltaMag, negative, false); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	if err := upperTs.ApplyLiquidityDelta(deltaMag, negative, true); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	// Step 3: apply to the position's own liquidity.
	if err := pos.ModifyLiquidity(deltaMag, negative); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	sqrtPa, err := tick.ToSqrtPrice(tickLower)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	sqrtPb, err := tick.ToSqrtPrice(tickUpper)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	amt0, amt1, err := amounts.ForPosition(deltaMag, sqrtPa, sqrtPb, p.SqrtPrice)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	// Step 4: fold into active liquidity if the range covers current tick.
	newActive := p.ActiveLiquidity
	if p.CurrentTick >= tickLower && p.CurrentTick < tickUpper {
		if negative {
			if newActive.Cmp(deltaMag) < 0 {
				return cosmath.Int{}, cosmath.Int{}, errors.New(errors.InsufficientLiquidity, "poolstate.modifyLiquidity")
			}
			newActive = newActive.Sub(deltaMag)
		} else {
			sum := newActive.Add(deltaMag)
			if sum.Cmp(newActive) < 0 {
				return cosmath.Int{}, cosmath.Int{}, errors.New(errors.Overflow, "poolstate.modifyLiquidity")
			}
			newActive = sum
		}
	}

	if negative {
		if amt0 > 0 {
			pos.TokensOwed0 = saturatingAddU64(pos.TokensOwed0, amt0)
		}
		if amt1 > 0 {
			pos.TokensOwed1 = saturatingAddU64(pos.TokensOwed1, amt1)
		}
	} else if ledgerDeposit != nil {
		if amt0 > 0 {
			if err := ledgerDeposit(p.Token0Mint, cosmath.NewIntFromUint64(amt0)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
		if amt1 > 0 {
			if err := ledgerDeposit(p.Token1Mint, cosmath.NewIntFromUint64(amt1)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
	}

	// Commit: every check above has passed, so now -- and only now --
	// the staged writes land.
	if err := s.StoreTick(p.Id, compLower, lowerTs); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	if err := s.StoreTick(p.Id, compUpper, upperTs); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	p.Bitmap.Set(compLower, lowerTs.Initialized)
	p.Bitmap.Set(compUpper, upperTs.Initialized)
	p.ActiveLiquidity = newActive

	if pos.IsClosable() {
		if err := s.DeletePosition(posKey); err != nil {
			return cosmath.Int{}, cosmath.Int{}, err
		}
	} else if err := s.StorePosition(posKey, pos); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	if bus != nil {
		bus.Emit(events.Event{
			Kind:         kind,
			Pool:         events.PoolKey(p.Id),
			Owner:        owner.String(),
			Tick:         p.CurrentTick,
			SqrtPriceRaw: p.SqrtPrice.Raw().String(),
			Amount0:      int64(amt0),
			Amount1:      int64(amt1),
		})
	}

	return cosmath.NewIntFromUint64(amt0), cosmath.NewIntFromUint64(amt1), nil
}

func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// Collect first accrues the fees the position earned since its last
// snapshot, then pays out up to (req0, req1) from its owed-token
// counters, per spec §4.9 and §6.
func (p *Pool) Collect(
	s store.Store,
	owner solana.PublicKey,
	tickLower, tickUpper int32,
	req0, req1 uint64,
	ledgerWithdraw func(mint solana.PublicKey, amount cosmath.Int) error,
	bus *events.Broadcaster,
) (paid0, paid1 cosmath.Int, err error) {
	posKey := store.PositionKey{Owner: owner, Pool: p.Id, TickLower: tickLower, TickUpper: tickUpper}
	pos, ok, err := s.LoadPosition(posKey)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	if !ok {
		return cosmath.Int{}, cosmath.Int{}, errors.New(errors.NoFeesToCollect, "poolstate.Collect")
	}

	lowerTs, err := loadOrNewTick(s, p.Id, swap.Compress(tickLower, p.TickSpacing))
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	upperTs, err := loadOrNewTick(s, p.Id, swap.Compress(tickUpper, p.TickSpacing))
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	inside0, inside1 := position.FeeGrowthInside(lowerTs, upperTs, tickLower, tickUpper, p.CurrentTick, p.FeeGrowthGlobal0, p.FeeGrowthGlobal1)
	if err := pos.Accrue(inside0, inside1); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	p0, p1 := pos.Collect(req0, req1)
	if p0 == 0 && p1 == 0 {
		return cosmath.Int{}, cosmath.Int{}, errors.New(errors.NoFeesToCollect, "poolstate.Collect")
	}

	if ledgerWithdraw != nil {
		if p0 > 0 {
			if err := ledgerWithdraw(p.Token0Mint, cosmath.NewIntFromUint64(p0)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
		if p1 > 0 {
			if err := ledgerWithdraw(p.Token1Mint, cosmath.NewIntFromUint64(p1)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
	}

	if pos.IsClosable() {
		if err := s.DeletePosition(posKey); err != nil {
			return cosmath.Int{}, cosmath.Int{}, err
		}
	} else if err := s.StorePosition(posKey, pos); err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	if bus != nil {
		bus.Emit(events.Event{
			Kind:    events.KindCollect,
			Pool:    events.PoolKey(p.Id),
			Owner:   owner.String(),
			Amount0: int64(p0),
			Amount1: int64(p1),
		})
	}

	return cosmath.NewIntFromUint64(p0), cosmath.NewIntFromUint64(p1), nil
}

// CollectProtocolFees drains up to (req0, req1) from the pool's
// protocol-fee counters, the supplemented operation of SPEC_FULL.md §5.1
// grounded on original_source's collect_protocol_fees.rs.
func (p *Pool) CollectProtocolFees(req0, req1 uint64, ledgerWithdraw func(mint solana.PublicKey, amount cosmath.Int) error, bus *events.Broadcaster) (paid0, paid1 cosmath.Int, err error) {
	p0 := min64(req0, p.ProtocolFeesOwed0)
	p1 := min64(req1, p.ProtocolFeesOwed1)
	if p0 == 0 && p1 == 0 {
		return cosmath.Int{}, cosmath.Int{}, errors.New(errors.NoFeesToCollect, "poolstate.CollectProtocolFees")
	}

	if ledgerWithdraw != nil {
		if p0 > 0 {
			if err := ledgerWithdraw(p.Token0Mint, cosmath.NewIntFromUint64(p0)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
		if p1 > 0 {
			if err := ledgerWithdraw(p.Token1Mint, cosmath.NewIntFromUint64(p1)); err != nil {
				return cosmath.Int{}, cosmath.Int{}, err
			}
		}
	}

	p.ProtocolFeesOwed0 -= p0
	p.ProtocolFeesOwed1 -= p1

	if bus != nil {
		bus.Emit(events.Event{
			Kind:    events.KindProtocolFeeCollect,
			Pool:    events.PoolKey(p.Id),
			Amount0: int64(p0),
			Amount1: int64(p1),
		})
	}
	return cosmath.NewIntFromUint64(p0), cosmath.NewIntFromUint64(p1), nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// poolTickSource adapts a store.Store plus the pool's own bitmap into
// swap.TickSource.
type poolTickSource struct {
	pool  *Pool
	s     store.Store
	cache map[int32]*tickstate.State
}

func (ts *poolTickSource) Bitmap() *tickstate.Bitmap { return ts.pool.Bitmap }

func (ts *poolTickSource) Get(compressedTick int32) (*tickstate.State, bool) {
	if s, ok := ts.cache[compressedTick]; ok {
		return s, true
	}
	s, ok, err := ts.s.LoadTick(ts.pool.Id, compressedTick)
	if err != nil || !ok {
		return nil, false
	}
	ts.cache[compressedTick] = s
	return s, true
}

// Swap executes a trade per spec §6 and §4.6: walks initialized ticks in
// the swap direction until amountSpecified is consumed or sqrtPriceLimit
// is reached, returning the signed token deltas.
func (p *Pool) Swap(
	s store.Store,
	zeroForOne bool,
	amountSpecified *big.Int,
	sqrtPriceLimit fp.Q64x64,
	bus *events.Broadcaster,
) (delta0, delta1 cosmath.Int, err error) {
	src := &poolTickSource{pool: p, s: s, cache: make(map[int32]*tickstate.State)}

	start := swap.State{
		SqrtPrice:         p.SqrtPrice,
		Tick:              p.CurrentTick,
		Liquidity:         p.ActiveLiquidity,
		FeeGrowthGlobal0:  p.FeeGrowthGlobal0,
		FeeGrowthGlobal1:  p.FeeGrowthGlobal1,
		ProtocolFeesOwed0: p.ProtocolFeesOwed0,
		ProtocolFeesOwed1: p.ProtocolFeesOwed1,
	}

	result, err := swap.Run(start, src, swap.Params{
		ZeroForOne:      zeroForOne,
		AmountSpecified: amountSpecified,
		SqrtPriceLimit:  sqrtPriceLimit,
		FeeRateBps:      p.FeeRateBps,
		ProtocolFeeBps:  p.ProtocolFeeShareBps,
		TickSpacing:     p.TickSpacing,
	})
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	// Commit: the swap loop mutated only copies (start, and the cached
	// tick states pulled through src.Get); write every touched tick back
	// and then the pool scalar fields, per spec §5's abort-on-failure
	// rule (no write above this point, now that Run has already
	// succeeded).
	for compressed, ts := range src.cache {
		if err := s.StoreTick(p.Id, compressed, ts); err != nil {
			return cosmath.Int{}, cosmath.Int{}, err
		}
	}

	p.SqrtPrice = result.State.SqrtPrice
	p.CurrentTick = result.State.Tick
	p.ActiveLiquidity = result.State.Liquidity
	p.FeeGrowthGlobal0 = result.State.FeeGrowthGlobal0
	p.FeeGrowthGlobal1 = result.State.FeeGrowthGlobal1
	p.ProtocolFeesOwed0 = result.State.ProtocolFeesOwed0
	p.ProtocolFeesOwed1 = result.State.ProtocolFeesOwed1

	var d0, d1 int64
	if zeroForOne {
		d0, d1 = int64(result.AmountIn), -int64(result.AmountOut)
	} else {
		d0, d1 = -int64(result.AmountOut), int64(result.AmountIn)
	}

	if bus != nil {
		bus.Emit(events.Event{
			Kind:         events.KindSwap,
			Pool:         events.PoolKey(p.Id),
			Tick:         p.CurrentTick,
			SqrtPriceRaw: p.SqrtPrice.Raw().String(),
			Amount0:      d0,
			Amount1:      d1,
		})
	}

	return cosmath.NewInt(d0), cosmath.NewInt(d1), nil
}

// IsPositionClosable reports whether a stored position has zero
// liquidity and zero owed tokens and may be reclaimed (spec §3.6,
// SPEC_FULL.md §5.3).
func IsPositionClosable(p *position.Position) bool { return p.IsClosable() }
