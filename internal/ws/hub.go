// Package ws pushes game events over WebSocket and accepts the small set of
// client signals the table listens for (speech playback start and finish,
// chat lines from seated players).
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aaronzipp/avalon-alone/internal/observer"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Inbound message types
const (
	TypeSpeechStarted  = "speech_started"
	TypeSpeechComplete = "speech_complete"
	TypeChat           = "chat"
)

// ErrClosed is returned by Serve after Close.
var ErrClosed = errors.New("websocket hub closed")

// Controller receives client signals.
type Controller interface {
	Acknowledge(seat string) bool
	SpeechStarted(seat string)
	Chat(ctx context.Context, player, text string) error
}

// ClientMessage is what browsers send us.
type ClientMessage struct {
	Type string `json:"type"`
	Seat string `json:"seat,omitempty"`
	Text string `json:"text,omitempty"`
}

// Frame is what we send to browsers.
type Frame struct {
	Seq   uint64          `json:"seq"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type client struct {
	conn   *websocket.Conn
	player string
	send   chan []byte
}

// Hub holds the WebSocket connections of one game.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	closed     bool
	upgrader   websocket.Upgrader
	controller Controller
	logger     *slog.Logger
}

// NewHub builds a hub that forwards client signals to controller.
func NewHub(controller Controller, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		controller: controller,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and blocks until the connection ends. player
// is the seat the connection is bound to, empty for spectators. initial
// frames are queued before any live event.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, player string, initial ...observer.Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return err
	}

	c := &client{conn: conn, player: player, send: make(chan []byte, sendBuffer)}
	for _, ev := range initial {
		if msg, err := encode(ev); err == nil {
			c.send <- msg
		}
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "game closed"), time.Now().Add(writeWait))
		conn.Close()
		return ErrClosed
	}
	h.logger.Debug("websocket client connected", "player", player, "clients", h.ClientCount())

	go h.writePump(c)
	h.readPump(r.Context(), c)
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Notify queues event for every client allowed to see it. A client whose
// queue is full is disconnected.
func (h *Hub) Notify(_ context.Context, event observer.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var msg []byte
	for c := range h.clients {
		if !event.VisibleTo(c.player) {
			continue
		}
		if msg == nil {
			var err error
			if msg, err = encode(event); err != nil {
				return err
			}
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client", "player", c.player, "event", event.Name)
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "player", c.player, "error", err)
			}
			return
		}
		h.handle(ctx, c, raw)
	}
}

func (h *Hub) handle(ctx context.Context, c *client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debug("ignoring malformed websocket message", "player", c.player, "error", err)
		return
	}
	if h.controller == nil {
		return
	}

	switch msg.Type {
	case TypeSpeechStarted:
		h.controller.SpeechStarted(msg.Seat)
	case TypeSpeechComplete:
		if !h.controller.Acknowledge(msg.Seat) {
			h.logger.Debug("stale speech acknowledgement", "seat", msg.Seat)
		}
	case TypeChat:
		if c.player == "" {
			return
		}
		if err := h.controller.Chat(ctx, c.player, msg.Text); err != nil {
			h.logger.Debug("chat rejected", "player", c.player, "error", err)
		}
	default:
		h.logger.Debug("unknown websocket message", "type", msg.Type)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(event observer.Event) ([]byte, error) {
	data, err := event.DataJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Seq: event.Seq, Event: string(event.Name), Data: data})
}
