package realtime

import (
	"sync"
)

// Registry tracks live websocket sessions. A user may be connected from
// several devices at once, so sessions are kept per connection. All
// fan-out is topic-based in the push broker; the registry only owns the
// write-loop lifecycle and shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Connection // sessionID -> connection
}

// NewRegistry constructs an initialized Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Connection)}
}

// Attach registers a connection and starts its write loop.
func (r *Registry) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.ID] = conn
	r.mu.Unlock()

	conn.Start()
}

// Detach removes a connection if it is still tracked.
func (r *Registry) Detach(conn *Connection) {
	r.mu.Lock()
	delete(r.sessions, conn.ID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "registry shutdown")
	}
}
