package store

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/position"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

func TestCodecTickRoundTrip(t *testing.T) {
	var codec Codec

	s := tickstate.New()
	if err := s.ApplyLiquidityDelta(uint128.From64(12345), false, false); err != nil {
		t.Fatalf("ApplyLiquidityDelta: %v", err)
	}
	s.FeeGrowthOutside0 = fp.FromUint64(7)
	s.FeeGrowthOutside1 = fp.FromUint64(3)

	raw, err := codec.EncodeTick(s)
	if err != nil {
		t.Fatalf("EncodeTick: %v", err)
	}
	back, err := codec.DecodeTick(raw)
	if err != nil {
		t.Fatalf("DecodeTick: %v", err)
	}

	if back.Initialized != s.Initialized {
		t.Fatalf("Initialized: got %v, want %v", back.Initialized, s.Initialized)
	}
	if back.LiquidityGross.Cmp(s.LiquidityGross) != 0 {
		t.Fatalf("LiquidityGross: got %s, want %s", back.LiquidityGross, s.LiquidityGross)
	}
	if back.LiquidityNet.Sign() != s.LiquidityNet.Sign() || back.LiquidityNet.Magnitude().Cmp(s.LiquidityNet.Magnitude()) != 0 {
		t.Fatalf("LiquidityNet mismatch")
	}
	if back.FeeGrowthOutside0.Cmp(s.FeeGrowthOutside0) != 0 || back.FeeGrowthOutside1.Cmp(s.FeeGrowthOutside1) != 0 {
		t.Fatalf("FeeGrowthOutside mismatch")
	}
}

func TestCodecPositionRoundTrip(t *testing.T) {
	var codec Codec

	p := position.New()
	p.Liquidity = uint128.From64(999)
	p.FeeGrowthInside0Last = fp.FromUint64(1)
	p.FeeGrowthInside1Last = fp.FromUint64(2)
	p.TokensOwed0 = 100
	p.TokensOwed1 = 200

	raw, err := codec.EncodePosition(p)
	if err != nil {
		t.Fatalf("EncodePosition: %v", err)
	}
	back, err := codec.DecodePosition(raw)
	if err != nil {
		t.Fatalf("DecodePosition: %v", err)
	}

	if back.Liquidity.Cmp(p.Liquidity) != 0 {
		t.Fatalf("Liquidity: got %s, want %s", back.Liquidity, p.Liquidity)
	}
	if back.TokensOwed0 != p.TokensOwed0 || back.TokensOwed1 != p.TokensOwed1 {
		t.Fatalf("TokensOwed mismatch: got (%d,%d), want (%d,%d)", back.TokensOwed0, back.TokensOwed1, p.TokensOwed0, p.TokensOwed1)
	}
}

func TestMemStoreTickLifecycle(t *testing.T) {
	m := NewMemStore()
	pool := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

	if _, ok, err := m.LoadTick(pool, 5); err != nil || ok {
		t.Fatalf("LoadTick on empty store: ok=%v err=%v", ok, err)
	}

	s := tickstate.New()
	if err := m.StoreTick(pool, 5, s); err != nil {
		t.Fatalf("StoreTick: %v", err)
	}
	loaded, ok, err := m.LoadTick(pool, 5)
	if err != nil || !ok {
		t.Fatalf("LoadTick after store: ok=%v err=%v", ok, err)
	}
	if loaded.Initialized != s.Initialized {
		t.Fatalf("loaded tick state mismatch")
	}

	if err := m.DeleteTick(pool, 5); err != nil {
		t.Fatalf("DeleteTick: %v", err)
	}
	if _, ok, _ := m.LoadTick(pool, 5); ok {
		t.Fatalf("tick should be gone after delete")
	}
}

func TestMemStorePositionLifecycle(t *testing.T) {
	m := NewMemStore()
	key := PositionKey{
		Owner:     solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"),
		Pool:      solana.MustPublicKeyFromBase58("11111111111111111111111111111112"),
		TickLower: -60,
		TickUpper: 60,
	}

	p := position.New()
	p.Liquidity = uint128.From64(42)
	if err := m.StorePosition(key, p); err != nil {
		t.Fatalf("StorePosition: %v", err)
	}
	loaded, ok, err := m.LoadPosition(key)
	if err != nil || !ok {
		t.Fatalf("LoadPosition: ok=%v err=%v", ok, err)
	}
	if loaded.Liquidity.Cmp(p.Liquidity) != 0 {
		t.Fatalf("loaded position liquidity mismatch")
	}

	if err := m.DeletePosition(key); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	if _, ok, _ := m.LoadPosition(key); ok {
		t.Fatalf("position should be gone after delete")
	}
}
