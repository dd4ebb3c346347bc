// Package events implements the pool's optional observer hook (spec §6,
// §9 "event emission via host macro -> observer hook"): the pool accepts
// a sink and pushes a structured record to it at the end of every
// committed operation, instead of emitting through a host-specific
// logging macro the way the original Anchor programs' msg!/event! calls
// do.
//
// The fan-out shape -- a registry of handlers plus a broadcast loop -- is
// grounded on pkg/subscription/manager.go's SubscriptionManager, turned
// inside-out: the teacher subscribes outward to Solana account updates
// and replays them to local handlers, this package accepts pool-side
// events and replays them to local handler functions and, for remote observers, a
// WebSocket server (events/server.go).
package events

import (
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Kind identifies the event taxonomy of spec §6.
type Kind string

const (
	KindPoolInitialized    Kind = "PoolInitialized"
	KindMint               Kind = "Mint"
	KindBurn               Kind = "Burn"
	KindCollect            Kind = "Collect"
	KindSwap               Kind = "Swap"
	KindProtocolFeeCollect Kind = "ProtocolFeeCollected"
)

// Event is the structured record every committed core operation emits:
// pool id, principal(s), a tick/sqrt-price snapshot, and amounts, per
// spec §6's event list.
type Event struct {
	Kind         Kind   `json:"kind"`
	Pool         string `json:"pool"`
	Owner        string `json:"owner,omitempty"`
	Tick         int32  `json:"tick"`
	SqrtPriceRaw string `json:"sqrtPriceRaw"`
	Amount0      int64  `json:"amount0"`
	Amount1      int64  `json:"amount1"`
}

// KeyString renders a position or tick-array key to base58 the same way
// solana-go's own PublicKey.String() does under the hood, without
// requiring a full solana.PublicKey value when only a raw key is on hand
// (e.g. a derived position key that never round-trips through an actual
// account address).
func KeyString(raw []byte) string {
	return base58.Encode(raw)
}

// Handler receives events pushed to a local (in-process) observer.
type Handler func(Event)

// Broadcaster fans committed events out to every registered observer: a
// set of local handlers and, optionally, connected WebSocket clients
// (see Server in server.go).
type Broadcaster struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	server   *Server
}

// NewBroadcaster returns a Broadcaster with no observers registered.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{handlers: make(map[int]Handler)}
}

// Subscribe registers a local handler and returns an id for Unsubscribe.
func (b *Broadcaster) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return id
}

// Unsubscribe removes a previously registered handler.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// AttachServer wires a WebSocket server so remote observers receive the
// same events local handlers do.
func (b *Broadcaster) AttachServer(s *Server) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.server = s
}

// Emit fans e out to every local handler and, if attached, the WebSocket
// server. Called at commit time by poolstate, after every pool field
// mutation has already been applied -- never before, so an observer
// never sees a partially-applied operation (spec §5).
func (b *Broadcaster) Emit(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	server := b.server
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("events: handler panicked: %v", r)
				}
			}()
			h(e)
		}()
	}

	if server != nil {
		server.Broadcast(e)
	}
}

// PoolKey renders a solana.PublicKey pool id as the Event.Pool string.
func PoolKey(id solana.PublicKey) string { return id.String() }
