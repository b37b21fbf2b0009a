// Package ws provides real-time delivery of notifications over WebSockets.
// Each authenticated identity holds at most one live connection; a newer
// connection for the same identity replaces the older one.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is the payload pushed to a connected client.
type Event struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors gorilla/websocket.TextMessage without importing it here.
const textMessage = 1

// client pairs a connection with a write mutex. Gorilla connections allow at
// most one concurrent writer, so every write must hold the mutex.
type client struct {
	mu   sync.Mutex
	conn Conn
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Registry maps user IDs to their single live connection. All operations are
// thread-safe via sync.RWMutex.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*client
	logger zerolog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*client),
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// Register binds a connection to a user ID. If the user already has a live
// connection it is closed and replaced.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	old, had := r.conns[userID]
	r.conns[userID] = &client{conn: conn}
	r.mu.Unlock()

	if had {
		old.conn.Close()
	}
}

// Unregister removes the connection for a user ID, but only if it is still
// the one provided. A stale pump shutting down must not evict a newer
// connection for the same user.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current.conn == conn {
		delete(r.conns, userID)
	}
}

// Send pushes an event to the user's connection if one exists. Delivery is
// best effort: offline users and write failures are not reported to callers,
// and a failed write evicts the connection. Sends for the same user may
// overlap; the client's write mutex serializes them.
func (r *Registry) Send(userID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	r.mu.RLock()
	cl, ok := r.conns[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	if err := cl.write(textMessage, data); err != nil {
		r.logger.Debug().Str("user_id", userID).Err(err).Msg("dropping dead connection")
		r.Unregister(userID, cl.conn)
		cl.conn.Close()
	}
}

// Connected reports whether the user currently has a live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
