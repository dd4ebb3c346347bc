// Package tickstate implements the per-tick accounting of spec §3.4: the
// gross/net liquidity a tick carries and its fee-growth-outside
// snapshots, plus the initialized-tick bitmap a swap walks to find the
// next crossing.
//
// State itself is ported from original_source's zero-copy Anchor
// account (programs/amm_core/src/tick.rs TickData), generalized from a
// u8 "initialized" flag and raw liquidity_net to a plain Go struct with
// the fee-growth-outside fields the spec adds back in (the original
// explicitly scopes those out for its MVP).
package tickstate

import (
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/fp"
)

// State is the per-tick account: spec §3.4.
type State struct {
	LiquidityGross     uint128.Uint128
	LiquidityNet       int128
	FeeGrowthOutside0  fp.Q64x64
	FeeGrowthOutside1  fp.Q64x64
	Initialized        bool
}

// int128 is a minimal signed 128-bit integer: liquidity_net never
// exceeds what a u128 liquidity_gross can represent in magnitude, so a
// sign flag plus a uint128 magnitude is sufficient and keeps the checked
// add/sub arithmetic simple (no two's-complement wraparound to reason
// about, matching the explicit overflow checks original_source's
// update_on_liquidity_change performs with checked_add/checked_sub).
type int128 struct {
	neg bool
	mag uint128.Uint128
}

// ZeroI128 is the additive identity.
var ZeroI128 = int128{}

// I128FromLiquidityDelta builds a signed int128 from a liquidity delta
// (positive = add, negative = remove) expressed as a magnitude + sign.
func I128FromLiquidityDelta(mag uint128.Uint128, negative bool) int128 {
	if mag.IsZero() {
		return int128{}
	}
	return int128{neg: negative, mag: mag}
}

// Add returns a+b, checked: fails only if the pack exceeds the module's
// representable liquidity magnitude (u128), which in practice means
// never, short of protocol-breaking input.
func (a int128) Add(b int128) (int128, error) {
	if a.neg == b.neg {
		sum := a.mag.Add(b.mag)
		if sum.Cmp(a.mag) < 0 {
			return int128{}, errors.New(errors.Overflow, "tickstate.int128.Add")
		}
		return int128{neg: a.neg, mag: sum}, nil
	}
	if a.mag.Cmp(b.mag) >= 0 {
		return int128{neg: a.neg, mag: a.mag.Sub(b.mag)}, nil
	}
	return int128{neg: b.neg, mag: b.mag.Sub(a.mag)}, nil
}

// Neg returns -a.
func (a int128) Neg() int128 {
	if a.mag.IsZero() {
		return a
	}
	return int128{neg: !a.neg, mag: a.mag}
}

// IsZero reports whether a is exactly zero.
func (a int128) IsZero() bool { return a.mag.IsZero() }

// Sign returns -1, 0 or 1.
func (a int128) Sign() int {
	if a.mag.IsZero() {
		return 0
	}
	if a.neg {
		return -1
	}
	return 1
}

// Magnitude returns |a| as a uint128.
func (a int128) Magnitude() uint128.Uint128 { return a.mag }

// Int128 is the exported alias used by callers outside this package.
type Int128 = int128

// New creates a tick state record with zeroed accounting, matching
// TickData::initialize in original_source/programs/amm_core/src/tick.rs.
func New() *State {
	return &State{}
}

// ApplyLiquidityDelta applies a signed liquidity delta to this tick on
// behalf of a position referencing it, updating liquidity_gross (an
// absolute-value accumulator) and liquidity_net (sign depends on
// whether this tick is the position's lower or upper bound), per spec
// §3.4 and §4.7 and original_source's update_on_liquidity_change.
func (s *State) ApplyLiquidityDelta(deltaMag uint128.Uint128, deltaNegative bool, isUpperTick bool) error {
	if deltaMag.IsZero() {
		return nil
	}

	if deltaNegative {
		if s.LiquidityGross.Cmp(deltaMag) < 0 {
			return errors.New(errors.InsufficientLiquidity, "tickstate.ApplyLiquidityDelta")
		}
		s.LiquidityGross = s.LiquidityGross.Sub(deltaMag)
	} else {
		sum := s.LiquidityGross.Add(deltaMag)
		if sum.Cmp(s.LiquidityGross) < 0 {
			return errors.New(errors.Overflow, "tickstate.ApplyLiquidityDelta")
		}
		s.LiquidityGross = sum
	}

	// +delta at the lower tick, -delta at the upper tick (spec §3.4,
	// §4.7): net liquidity applied when price crosses this tick moving
	// up equals the sum of signed contributions.
	signedDelta := I128FromLiquidityDelta(deltaMag, deltaNegative)
	if isUpperTick {
		signedDelta = signedDelta.Neg()
	}
	next, err := s.LiquidityNet.Add(signedDelta)
	if err != nil {
		return err
	}
	s.LiquidityNet = next

	s.Initialized = !s.LiquidityGross.IsZero()
	return nil
}

// Bitmap is a logical set of initialized ticks, stored as one bit per
// tick index (spacing-compressed: callers index by tick/spacing) across
// 64-bit words. NextInitialized probes one compressed index at a time.
type Bitmap struct {
	words map[int32]uint64
}

// NewBitmap returns an empty bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{words: make(map[int32]uint64)}
}

func wordIndex(compressed int32) (word int32, bit uint) {
	w := compressed >> 6
	b := uint(uint32(compressed) & 63)
	return w, b
}

// Set marks the compressed tick index as initialized (gross > 0) or
// clears it.
func (b *Bitmap) Set(compressed int32, initialized bool) {
	w, bit := wordIndex(compressed)
	if initialized {
		b.words[w] |= 1 << bit
	} else {
		b.words[w] &^= 1 << bit
		if b.words[w] == 0 {
			delete(b.words, w)
		}
	}
}

// IsInitialized reports whether the compressed tick index is set.
func (b *Bitmap) IsInitialized(compressed int32) bool {
	w, bit := wordIndex(compressed)
	return b.words[w]&(1<<bit) != 0
}

// NextInitialized finds the nearest initialized compressed tick starting
// at `from` itself: at or below it when lte is true, at or above it
// otherwise. ok is false if none exists between `from` and
// compressedMin/compressedMax; swap.Run then targets the price limit
// and ends the loop after that step.
func (b *Bitmap) NextInitialized(from int32, lte bool) (next int32, ok bool) {
	if lte {
		for c := from; c >= compressedMin; c-- {
			if b.IsInitialized(c) {
				return c, true
			}
		}
		return 0, false
	}
	for c := from; c <= compressedMax; c++ {
		if b.IsInitialized(c) {
			return c, true
		}
	}
	return 0, false
}

// compressedMin/Max bound the search: MinTick/MaxTick divided by the
// smallest supported spacing (1), which is also a safe bound for any
// larger spacing since compressed indices only shrink in magnitude.
const (
	compressedMin = -887272
	compressedMax = 887272
)
