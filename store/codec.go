package store

import (
	"bytes"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/position"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// Codec (de)serializes tick and position accounts to the raw byte layout
// the store persists, field by field through bin.NewBinEncoder/
// NewBinDecoder exactly the way the teacher's WhirlpoolPool.Decode reads
// each field off a fixed byte range, generalized from "decode one known
// Solana account layout" to "encode/decode our own account layouts".
type Codec struct{}

func putU128(buf *bytes.Buffer, v uint128.Uint128) {
	b := v.Big().FillBytes(make([]byte, 16))
	buf.Write(b)
}

func getU128(b []byte) uint128.Uint128 {
	return uint128.FromBig(new(big.Int).SetBytes(b))
}

// EncodeTick writes a tickstate.State as: bool initialized (1),
// liquidity_gross (16), liquidity_net sign (1) + magnitude (16),
// fee_growth_outside_0 (16), fee_growth_outside_1 (16).
func (Codec) EncodeTick(s *tickstate.State) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.Encode(s.Initialized); err != nil {
		return nil, err
	}
	putU128(buf, s.LiquidityGross)

	neg := s.LiquidityNet.Sign() < 0
	if err := enc.Encode(neg); err != nil {
		return nil, err
	}
	putU128(buf, s.LiquidityNet.Magnitude())

	putU128(buf, s.FeeGrowthOutside0.Raw())
	putU128(buf, s.FeeGrowthOutside1.Raw())
	return buf.Bytes(), nil
}

// DecodeTick is EncodeTick's inverse.
func (Codec) DecodeTick(data []byte) (*tickstate.State, error) {
	decoder := bin.NewBinDecoder(data[0:1])
	var initialized bool
	if err := decoder.Decode(&initialized); err != nil {
		return nil, err
	}
	gross := getU128(data[1:17])

	decoder = bin.NewBinDecoder(data[17:18])
	var netNegative bool
	if err := decoder.Decode(&netNegative); err != nil {
		return nil, err
	}
	netMag := getU128(data[18:34])

	out0 := getU128(data[34:50])
	out1 := getU128(data[50:66])

	s := &tickstate.State{
		LiquidityGross:    gross,
		LiquidityNet:      tickstate.I128FromLiquidityDelta(netMag, netNegative),
		FeeGrowthOutside0: fp.FromRaw(out0),
		FeeGrowthOutside1: fp.FromRaw(out1),
		Initialized:       initialized,
	}
	return s, nil
}

// EncodePosition writes a position.Position as: liquidity (16),
// fee_growth_inside_0_last (16), fee_growth_inside_1_last (16),
// tokens_owed_0 (8), tokens_owed_1 (8).
func (Codec) EncodePosition(p *position.Position) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	putU128(buf, p.Liquidity)
	putU128(buf, p.FeeGrowthInside0Last.Raw())
	putU128(buf, p.FeeGrowthInside1Last.Raw())
	if err := enc.Encode(p.TokensOwed0); err != nil {
		return nil, err
	}
	if err := enc.Encode(p.TokensOwed1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePosition is EncodePosition's inverse.
func (Codec) DecodePosition(data []byte) (*position.Position, error) {
	liquidity := getU128(data[0:16])
	inside0 := getU128(data[16:32])
	inside1 := getU128(data[32:48])

	decoder := bin.NewBinDecoder(data[48:56])
	var owed0 uint64
	if err := decoder.Decode(&owed0); err != nil {
		return nil, err
	}
	decoder = bin.NewBinDecoder(data[56:64])
	var owed1 uint64
	if err := decoder.Decode(&owed1); err != nil {
		return nil, err
	}

	return &position.Position{
		Liquidity:            liquidity,
		FeeGrowthInside0Last: fp.FromRaw(inside0),
		FeeGrowthInside1Last: fp.FromRaw(inside1),
		TokensOwed0:          owed0,
		TokensOwed1:          owed1,
	}, nil
}
