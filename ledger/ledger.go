// Package ledger defines the narrow token-custody collaborator the core
// calls before or after a state transition, never interleaved with it
// (spec §1 "assumed: a ledger that moves token units on behalf of the
// pool"; spec §5 "external interactions ... occur before or after the
// core state transition -- never interleaved").
//
// No teacher file implements real on-chain token transfer for a CLMM pool
// (WhirlpoolPool's own instruction-building path is an explicit
// "coming soon" stub), so this stays an interface-only external
// collaborator here too, keyed the same way the teacher keys every
// account: a solana.PublicKey.
package ledger

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Ledger moves token units on behalf of a pool. Deposit is called before
// a mint commits so the pool can require the caller already holds
// sufficient balance; Withdraw is called by collect and protocol-fee
// collection to pay the amount out, before their state writes are
// committed. Burn and swap do not call the ledger. Implementations must not partially
// apply a call: either the full amount moves or an error is returned and
// no core state is committed.
type Ledger interface {
	Deposit(owner, mint solana.PublicKey, amount cosmath.Int) error
	Withdraw(owner, mint solana.PublicKey, amount cosmath.Int) error
}

// NopLedger is a Ledger that never moves tokens, for tests and the demo
// CLI where no real custody backend is wired.
type NopLedger struct{}

func (NopLedger) Deposit(owner, mint solana.PublicKey, amount cosmath.Int) error  { return nil }
func (NopLedger) Withdraw(owner, mint solana.PublicKey, amount cosmath.Int) error { return nil }
