// Package store defines the narrow key/value account abstraction the core
// consults for tick and position accounts (spec §9, "host-specific account
// model -> store abstraction"). The core never knows whether the host
// persists these as Solana accounts, rows in a database, or entries in a
// process-local map; it only ever calls Load/Store/Delete by key.
//
// Accounts round-trip through Codec as raw byte slices, the same
// Decode(data []byte) error shape every pool adapter in the teacher
// implements (pkg/pool/whirlpool/whirlpoolPool.go's Decode), so a host can
// slot in any backing store that can hand the core a []byte.
package store

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/fluxa-labs/clmm-core/errors"
	"github.com/fluxa-labs/clmm-core/position"
	"github.com/fluxa-labs/clmm-core/tickstate"
)

// PositionKey identifies a position account: spec §3.5.
type PositionKey struct {
	Owner      solana.PublicKey
	Pool       solana.PublicKey
	TickLower  int32
	TickUpper  int32
}

func (k PositionKey) String() string {
	return fmt.Sprintf("%s/%s/%d/%d", k.Pool, k.Owner, k.TickLower, k.TickUpper)
}

// Store is the account persistence collaborator. Implementations must
// treat each method as a single-key operation; the core composes them
// into the staged-write-then-commit discipline spec §5 requires.
type Store interface {
	LoadTick(pool solana.PublicKey, compressedTick int32) (*tickstate.State, bool, error)
	StoreTick(pool solana.PublicKey, compressedTick int32, s *tickstate.State) error
	DeleteTick(pool solana.PublicKey, compressedTick int32) error

	LoadPosition(key PositionKey) (*position.Position, bool, error)
	StorePosition(key PositionKey, p *position.Position) error
	DeletePosition(key PositionKey) error
}

// MemStore is an in-process, map-backed Store, sufficient for the demo CLI
// and for tests: it round-trips every value through Codec so the encoding
// layer is exercised the same way a real account store would exercise it,
// without requiring an actual RPC or database dependency.
type MemStore struct {
	codec     Codec
	ticks     map[string][]byte
	positions map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		codec:     Codec{},
		ticks:     make(map[string][]byte),
		positions: make(map[string][]byte),
	}
}

func tickKey(pool solana.PublicKey, compressedTick int32) string {
	return fmt.Sprintf("%s/%d", pool, compressedTick)
}

func (m *MemStore) LoadTick(pool solana.PublicKey, compressedTick int32) (*tickstate.State, bool, error) {
	raw, ok := m.ticks[tickKey(pool, compressedTick)]
	if !ok {
		return nil, false, nil
	}
	s, err := m.codec.DecodeTick(raw)
	if err != nil {
		return nil, false, errors.Wrap(errors.OutOfRange, "store.LoadTick", err)
	}
	return s, true, nil
}

func (m *MemStore) StoreTick(pool solana.PublicKey, compressedTick int32, s *tickstate.State) error {
	raw, err := m.codec.EncodeTick(s)
	if err != nil {
		return errors.Wrap(errors.OutOfRange, "store.StoreTick", err)
	}
	m.ticks[tickKey(pool, compressedTick)] = raw
	return nil
}

func (m *MemStore) DeleteTick(pool solana.PublicKey, compressedTick int32) error {
	delete(m.ticks, tickKey(pool, compressedTick))
	return nil
}

func (m *MemStore) LoadPosition(key PositionKey) (*position.Position, bool, error) {
	raw, ok := m.positions[key.String()]
	if !ok {
		return nil, false, nil
	}
	p, err := m.codec.DecodePosition(raw)
	if err != nil {
		return nil, false, errors.Wrap(errors.OutOfRange, "store.LoadPosition", err)
	}
	return p, true, nil
}

func (m *MemStore) StorePosition(key PositionKey, p *position.Position) error {
	raw, err := m.codec.EncodePosition(p)
	if err != nil {
		return errors.Wrap(errors.OutOfRange, "store.StorePosition", err)
	}
	m.positions[key.String()] = raw
	return nil
}

func (m *MemStore) DeletePosition(key PositionKey) error {
	delete(m.positions, key.String())
	return nil
}
