package rpc

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gbmlabs/gbmd/internal/core/auction"
)

const sendBuffer = 256

// Subscription filter for one connection. Empty sets subscribe to everything.
type subscription struct {
	types    map[auction.EventType]struct{}
	auctions map[uint64]struct{}
}

func (s *subscription) matches(ev auction.Event) bool {
	if len(s.types) > 0 {
		if _, ok := s.types[ev.Type]; !ok {
			return false
		}
	}
	if len(s.auctions) > 0 {
		if _, ok := s.auctions[ev.AuctionID]; !ok {
			return false
		}
	}
	return true
}

// wsConn is one live WebSocket subscriber.
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu  sync.RWMutex
	sub subscription
}

// EventStream upgrades HTTP connections to WebSocket and fans auction events
// out to subscribers. It implements the ledger's event hook.
type EventStream struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*wsConn
}

// NewEventStream creates an event stream server.
func NewEventStream(log zerolog.Logger) *EventStream {
	return &EventStream{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   log.With().Str("component", "events").Logger(),
		conns: make(map[string]*wsConn),
	}
}

// Hooks returns ledger hooks that publish into this stream.
func (s *EventStream) Hooks() auction.Hooks {
	return auction.Hooks{OnEvent: s.Publish}
}

// Publish fans an event out to every matching subscriber. Slow consumers are
// dropped rather than allowed to block the engine.
func (s *EventStream) Publish(ev auction.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conns {
		c.mu.RLock()
		match := c.sub.matches(ev)
		c.mu.RUnlock()
		if !match {
			continue
		}
		select {
		case c.send <- data:
		default:
			s.log.Warn().Str("conn", c.id).Msg("subscriber too slow, dropping event")
		}
	}
}

// SubscriberCount returns the number of live connections.
func (s *EventStream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ServeHTTP handles WebSocket upgrade requests.
func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.log.Debug().Str("conn", c.id).Msg("subscriber connected")

	go s.writeLoop(c)
	go s.readLoop(c)
}

// subscribeMsg is the only client-to-server message: replaces the
// connection's filter.
type subscribeMsg struct {
	Types    []auction.EventType `json:"types,omitempty"`
	Auctions []uint64            `json:"auctions,omitempty"`
}

func (s *EventStream) readLoop(c *wsConn) {
	defer s.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug().Str("conn", c.id).Err(err).Msg("bad subscribe message")
			continue
		}
		sub := subscription{
			types:    make(map[auction.EventType]struct{}, len(msg.Types)),
			auctions: make(map[uint64]struct{}, len(msg.Auctions)),
		}
		for _, t := range msg.Types {
			sub.types[t] = struct{}{}
		}
		for _, id := range msg.Auctions {
			sub.auctions[id] = struct{}{}
		}
		c.mu.Lock()
		c.sub = sub
		c.mu.Unlock()
	}
}

func (s *EventStream) writeLoop(c *wsConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case data, open := <-c.send:
			if !open {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.drop(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.drop(c)
				return
			}
		}
	}
}

func (s *EventStream) drop(c *wsConn) {
	s.mu.Lock()
	_, live := s.conns[c.id]
	delete(s.conns, c.id)
	s.mu.Unlock()
	if live {
		c.conn.Close()
		s.log.Debug().Str("conn", c.id).Msg("subscriber disconnected")
	}
}
