package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aaronzipp/avalon-alone/internal/observer"
)

// Message is a single Server-Sent Event frame
type Message struct {
	ID    string
	Event string // Event type (e.g., "team_selected", "secret_info")
	Data  string // JSON payload, single line
}

// Hub tracks the SSE clients of one game and implements observer.Sink
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Message]string // channel -> player name ("" for spectators)
	closed  bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[chan Message]string), done: make(chan struct{}), logger: logger}
}

// AddClient registers a client channel bound to player. It reports false
// when the hub is already closed.
func (h *Hub) AddClient(client chan Message, player string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	// Warn if the same player has multiple SSE connections
	if player != "" {
		dup := 0
		for _, p := range h.clients {
			if p == player {
				dup++
			}
		}
		if dup > 0 {
			h.logger.Warn("player opened additional SSE connection", "player", player, "existing", dup)
		}
	}
	h.clients[client] = player
	return true
}

// RemoveClient removes an SSE client from the hub
func (h *Hub) RemoveClient(client chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	h.logger.Debug("sse client removed", "clients", len(h.clients))
}

// ClientCount returns the number of connected SSE clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify queues event for every client allowed to see it without blocking.
// A client whose buffer is full is disconnected; its stream ends and the
// browser reconnects to a fresh current_state.
func (h *Hub) Notify(_ context.Context, event observer.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var msg *Message
	for client, player := range h.clients {
		if !event.VisibleTo(player) {
			continue
		}
		if msg == nil {
			m, err := NewMessage(event)
			if err != nil {
				return err
			}
			msg = &m
		}
		select {
		case client <- *msg:
		default:
			h.logger.Warn("dropping slow sse client", "player", player, "event", event.Name)
			delete(h.clients, client)
			close(client)
		}
	}
	return nil
}

// Close disconnects every client once its queued frames are written.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

// NewMessage renders an observer event as an SSE frame.
func NewMessage(event observer.Event) (Message, error) {
	data, err := event.DataJSON()
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", event.Name, err)
	}
	return Message{ID: strconv.FormatUint(event.Seq, 10), Event: string(event.Name), Data: string(data)}, nil
}

// WriteMessage writes msg in text/event-stream framing.
func WriteMessage(w io.Writer, msg Message) error {
	var b strings.Builder
	if msg.ID != "" {
		b.WriteString("id: ")
		b.WriteString(msg.ID)
		b.WriteString("\n")
	}
	b.WriteString("event: ")
	b.WriteString(msg.Event)
	b.WriteString("\n")
	for _, line := range strings.Split(msg.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Serve streams hub events to w until the client disconnects or the hub
// closes. initial frames are written first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, player string, initial ...Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering in nginx/proxies

	client := make(chan Message, BufferSize)
	if !h.AddClient(client, player) {
		_ = WriteMessage(w, Message{Event: string(observer.EventGameClosed), Data: "null"})
		flusher.Flush()
		return
	}
	defer h.RemoveClient(client)

	for _, msg := range initial {
		if err := WriteMessage(w, msg); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	// Listen for updates
	reqCtx := r.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("sse client disconnected", "player", player)
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-h.done:
			// Flush whatever was already queued
			for {
				select {
				case msg, ok := <-client:
					if !ok {
						break
					}
					if err := WriteMessage(w, msg); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			flusher.Flush()
			return
		case msg, ok := <-client:
			if !ok {
				// Dropped by Notify for falling behind
				flusher.Flush()
				return
			}
			if err := WriteMessage(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
