// Package stream pushes engine events to WebSocket subscribers:
// evaluations as they complete, recommendations as they are sized, and
// closing lines and settlements as bets resolve.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType labels a streamed engine event.
type EventType string

const (
	EventEvaluation     EventType = "evaluation"
	EventRecommendation EventType = "recommendation"
	EventClosingLine    EventType = "closing_line"
	EventMarketLine     EventType = "market_line"
	EventSettlement     EventType = "settlement"
	EventRating         EventType = "rating"
	EventError          EventType = "error"
	EventHeartbeat      EventType = "heartbeat"
)

var allEventTypes = []EventType{
	EventEvaluation, EventRecommendation, EventClosingLine, EventMarketLine,
	EventSettlement, EventRating, EventError, EventHeartbeat,
}

// Event is one message on the wire.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub fans engine events out to connected clients. Clients start
// subscribed to everything and can narrow with subscribe/unsubscribe
// messages.
type Hub struct {
	log        zerolog.Logger
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex

	upgrader websocket.Upgrader
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subs  map[EventType]bool
	subMu sync.RWMutex
}

// NewHub creates a hub; call Run to start delivery.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "stream").Logger(),
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run delivers events until the done channel closes.
func (h *Hub) Run(done <-chan struct{}) {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", n).Msg("client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", n).Msg("client disconnected")

		case ev := <-h.broadcast:
			h.deliver(ev)

		case <-heartbeat.C:
			h.Broadcast(Event{
				Type: EventHeartbeat,
				Data: map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

func (h *Hub) deliver(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(ev.Type)).Msg("marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.subscribed(ev.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer, drop it.
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Broadcast queues an event for all subscribers. A full queue drops the
// event rather than blocking the engine.
func (h *Hub) Broadcast(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn().Str("type", string(ev.Type)).Msg("broadcast queue full, event dropped")
	}
}

// BroadcastEvaluation streams a completed evaluation.
func (h *Hub) BroadcastEvaluation(ev interface{}) {
	h.Broadcast(Event{Type: EventEvaluation, Data: ev})
}

// BroadcastRecommendation streams a sized recommendation.
func (h *Hub) BroadcastRecommendation(rec interface{}) {
	h.Broadcast(Event{Type: EventRecommendation, Data: rec})
}

// BroadcastClosingLine streams a captured closing line with its CLV.
func (h *Hub) BroadcastClosingLine(betID string, closingLine, clv float64) {
	h.Broadcast(Event{Type: EventClosingLine, Data: map[string]interface{}{
		"bet_id":       betID,
		"closing_line": closingLine,
		"clv_points":   clv,
	}})
}

// BroadcastSettlement streams a graded bet.
func (h *Hub) BroadcastSettlement(bet interface{}) {
	h.Broadcast(Event{Type: EventSettlement, Data: bet})
}

// BroadcastRating streams a power rating snapshot.
func (h *Hub) BroadcastRating(snap interface{}) {
	h.Broadcast(Event{Type: EventRating, Data: snap})
}

// BroadcastError streams an engine error to observers.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{Type: EventError, Data: map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		subs: make(map[EventType]bool, len(allEventTypes)),
	}
	for _, et := range allEventTypes {
		c.subs[et] = true
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) subscribed(et EventType) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subs[et]
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *client) handleMessage(message []byte) {
	var msg struct {
		Type   string   `json:"type"`
		Events []string `json:"events"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subMu.Lock()
		for _, ev := range msg.Events {
			c.subs[EventType(ev)] = true
		}
		c.subMu.Unlock()
	case "unsubscribe":
		c.subMu.Lock()
		for _, ev := range msg.Events {
			delete(c.subs, EventType(ev))
		}
		c.subMu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
