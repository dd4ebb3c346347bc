// Command clmmctl is a demo CLI that exercises the full pool lifecycle
// against an in-memory store: initialize a pool, mint a full-range and a
// narrow position, swap token0 for token1 (crossing initialized ticks
// when -swap-amount is large enough), collect LP and protocol fees, and
// print a trace of every step.
//
// Its flag-parsing and sequential stdout trace are grounded on
// cmd/quote/main.go's shape (flag.String/Int vars, a single linear run
// printing each step's result), adapted from "quote a swap over RPC" to
// "run a swap against the in-memory core".
package main

import (
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/fluxa-labs/clmm-core/config"
	"github.com/fluxa-labs/clmm-core/events"
	"github.com/fluxa-labs/clmm-core/fp"
	"github.com/fluxa-labs/clmm-core/ledger"
	"github.com/fluxa-labs/clmm-core/poolstate"
	"github.com/fluxa-labs/clmm-core/store"
	"github.com/fluxa-labs/clmm-core/tick"
)

var (
	feeRateBps   = flag.Uint("fee-bps", 3000, "pool fee rate in basis points (100, 500, or 3000)")
	swapAmount   = flag.Uint64("swap-amount", 500, "token0 amount to swap in, exact-in")
	verboseEvent = flag.Bool("events", true, "print emitted pool events")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}
	flag.Parse()

	poolID := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")
	token0 := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	token1 := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	owner := solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	bus := events.NewBroadcaster()
	if *verboseEvent {
		bus.Subscribe(func(e events.Event) {
			fmt.Printf("event: %+v\n", e)
		})
	}

	s := store.NewMemStore()
	custody := ledger.NopLedger{}
	deposit := func(mint solana.PublicKey, amount cosmath.Int) error {
		return custody.Deposit(owner, mint, amount)
	}
	withdraw := func(mint solana.PublicKey, amount cosmath.Int) error {
		return custody.Withdraw(owner, mint, amount)
	}

	pool, err := poolstate.InitializePool(poolID, token0, token1, uint32(*feeRateBps), fp.One, bus)
	must(err)
	fmt.Printf("initialized pool at tick %d, sqrt_price=%s\n", pool.CurrentTick, pool.SqrtPrice.Raw().String())

	amt0, amt1, err := pool.Mint(s, owner, -600, 600, uint128.From64(1_000_000), deposit, bus)
	must(err)
	fmt.Printf("minted full-range position: amount0=%s amount1=%s\n", amt0.String(), amt1.String())

	amt0, amt1, err = pool.Mint(s, owner, -300, 300, uint128.From64(2_000_000), deposit, bus)
	must(err)
	fmt.Printf("minted narrow position: amount0=%s amount1=%s\n", amt0.String(), amt1.String())

	limit, err := tick.ToSqrtPrice(tick.MinTick + 1)
	must(err)
	d0, d1, err := pool.Swap(s, true, new(big.Int).SetUint64(*swapAmount), limit, bus)
	must(err)
	fmt.Printf("swap 0->1 amount=%d: delta0=%s delta1=%s, new tick=%d\n", *swapAmount, d0.String(), d1.String(), pool.CurrentTick)

	paid0, paid1, err := pool.Collect(s, owner, -600, 600, ^uint64(0), ^uint64(0), withdraw, bus)
	must(err)
	fmt.Printf("collected fees on full-range position: paid0=%s paid1=%s\n", paid0.String(), paid1.String())

	if pool.ProtocolFeesOwed0 > 0 || pool.ProtocolFeesOwed1 > 0 {
		pf0, pf1, err := pool.CollectProtocolFees(^uint64(0), ^uint64(0), withdraw, bus)
		must(err)
		fmt.Printf("collected protocol fees: paid0=%s paid1=%s\n", pf0.String(), pf1.String())
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "clmmctl:", err)
		os.Exit(1)
	}
}
