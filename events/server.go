package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Server is a WebSocket server remote observers connect to for a live
// feed of pool events. Its connection bookkeeping and broadcast loop are
// grounded on pkg/subscription/websocket.go's WebSocketClient -- the
// teacher dials out to a Solana RPC node's WebSocket endpoint and reads
// account-update notifications; this is the same read/write/reconnect
// shape run as a server instead of a client, since here the core is the
// publisher and external processes are the subscribers.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	ratePerSecond int
}

type client struct {
	conn    *websocket.Conn
	send    chan Event
	limiter *rate.Limiter
}

// NewServer returns a Server. ratePerSecond bounds how many event frames
// are written to any one connection per second -- the same
// "requests-per-second budget" shape the teacher's sol.NewClient
// constructor accepts for outbound RPC calls, applied here to outbound
// event frames instead.
func NewServer(ratePerSecond int) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:       make(map[*client]struct{}),
		ratePerSecond: ratePerSecond,
	}
}

// ServeHTTP upgrades the connection and starts a per-client write pump.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan Event, 64),
		limiter: rate.NewLimiter(rate.Limit(s.ratePerSecond), s.ratePerSecond),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for e := range c.send {
		if err := c.limiter.Wait(context.Background()); err != nil {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

// Broadcast pushes e to every connected client's send queue, dropping the
// frame for any client whose queue is full rather than blocking the
// publisher on a slow reader.
func (s *Server) Broadcast(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- e:
		default:
			log.Printf("events: dropping frame for slow client")
		}
	}
}
