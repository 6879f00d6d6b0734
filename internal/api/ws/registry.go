package ws

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Elijah-cyy/mishi-server/internal/protocol"
)

var ErrNotConnected = errors.New("no live connection for user")

// Transport is the minimal write surface the registry needs from a
// socket. *websocket.Conn satisfies it; tests inject fakes.
type Transport interface {
	WriteJSON(v any) error
	Close() error
}

// Connection binds one user identity to one live transport.
type Connection struct {
	UserID string

	mu         sync.Mutex
	transport  Transport
	alive      bool
	lastActive time.Time
	roomID     string
}

// write serializes concurrent writers onto the underlying socket.
func (c *Connection) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.WriteJSON(v)
}

func (c *Connection) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.lastActive = time.Now()
	c.mu.Unlock()
}

// markSuspect flips the liveness flag off and reports its old value.
func (c *Connection) markSuspect() (wasAlive bool) {
	c.mu.Lock()
	wasAlive = c.alive
	c.alive = false
	c.mu.Unlock()
	return wasAlive
}

// RoomID returns the room this connection is associated with, if any.
func (c *Connection) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Registry maps each user identity to at most one live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	sendFailures atomic.Int64
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

func NewRegistry(interval, grace time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		conns:    make(map[string]*Connection),
		interval: interval,
		grace:    grace,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Register admits a transport for an identity. If the identity already
// has a live connection, the old one is dropped from the registry
// first, told it is being superseded, and force-closed after a short
// grace period. The new connection is only admitted after the old one
// is out of the table, so the one-connection-per-user invariant never
// races the old connection's own close handling. Admission is
// deliberately not delayed until the old transport closes: the grace
// period only buys the doomed connection time to flush the notice, and
// once it is out of the table no delivery can reach it anyway.
func (r *Registry) Register(userID string, t Transport) *Connection {
	conn := &Connection{
		UserID:     userID,
		transport:  t,
		alive:      true,
		lastActive: time.Now(),
	}

	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if old != nil {
		r.logger.Info("superseding existing connection", "user_id", userID)
		if err := old.write(protocol.NewMessage(protocol.TypeSuperseded, map[string]any{
			"reason": "connected elsewhere",
		})); err != nil {
			r.logger.Warn("supersede notice failed", "user_id", userID, "error", err)
		}
		time.AfterFunc(r.grace, func() {
			_ = old.transport.Close()
		})
	}
	return conn
}

// Lookup returns the live connection for an identity.
func (r *Registry) Lookup(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Unregister removes the entry only if t is still the current transport
// for the identity, so a superseded reader exiting late cannot evict
// its replacement. Reports whether it removed anything.
func (r *Registry) Unregister(userID string, t Transport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[userID]
	if !ok || c.transport != t {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Close terminates an identity's connection with a reason.
func (r *Registry) Close(userID, reason string) {
	r.mu.Lock()
	c, ok := r.conns[userID]
	if ok {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	_ = c.transport.Close()
	r.logger.Info("connection closed", "user_id", userID, "reason", reason)
}

// Touch marks a connection alive; called for every inbound message,
// including heartbeat responses.
func (r *Registry) Touch(userID string) {
	if c, ok := r.Lookup(userID); ok {
		c.markAlive()
	}
}

// BindRoom associates a connection with a room for bookkeeping.
func (r *Registry) BindRoom(userID, roomID string) {
	if c, ok := r.Lookup(userID); ok {
		c.mu.Lock()
		c.roomID = roomID
		c.mu.Unlock()
	}
}

// Send delivers one message. A write failure closes the connection and
// is counted, never panicking up the stack.
func (r *Registry) Send(userID string, msg protocol.Message) error {
	c, ok := r.Lookup(userID)
	if !ok {
		return ErrNotConnected
	}
	if err := c.write(msg); err != nil {
		r.sendFailures.Add(1)
		r.logger.Warn("send failed, dropping connection", "user_id", userID, "error", err)
		if r.Unregister(userID, c.transport) {
			_ = c.transport.Close()
		}
		return err
	}
	return nil
}

// Broadcast fans a message out to every listed identity except those
// excluded. One broken peer never aborts delivery to the rest; the
// delivered count is returned.
func (r *Registry) Broadcast(userIDs []string, msg protocol.Message, excluding ...string) int {
	skip := make(map[string]bool, len(excluding))
	for _, id := range excluding {
		skip[id] = true
	}
	delivered := 0
	for _, id := range userIDs {
		if skip[id] {
			continue
		}
		if err := r.Send(id, msg); err == nil {
			delivered++
		}
	}
	return delivered
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SendFailures reports the running count of failed deliveries.
func (r *Registry) SendFailures() int64 {
	return r.sendFailures.Load()
}

// Start launches the liveness sweeper.
func (r *Registry) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper and closes every connection.
func (r *Registry) Stop() {
	close(r.stopCh)
	r.wg.Wait()

	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.transport.Close()
	}
}

// Sweep runs one liveness pass. Each connection is marked "possibly
// dead" and probed; any inbound traffic before the next pass clears the
// mark. A connection still unmarked on the following pass is
// terminated. Two phases mean one slow interval never kills a live but
// quiet client.
func (r *Registry) Sweep() {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	probe := protocol.NewMessage(protocol.TypeHeartbeat, nil)
	for _, c := range conns {
		if !c.markSuspect() {
			r.logger.Info("terminating unresponsive connection", "user_id", c.UserID)
			if r.Unregister(c.UserID, c.transport) {
				_ = c.transport.Close()
			}
			continue
		}
		if err := c.write(probe); err != nil {
			r.sendFailures.Add(1)
			if r.Unregister(c.UserID, c.transport) {
				_ = c.transport.Close()
			}
		}
	}
}
