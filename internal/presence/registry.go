package presence

import (
	"sync"

	"github.com/alumnet/server/internal/types"
)

// Conn is a live, authenticated realtime connection able to receive server
// events. Implemented by gateway.Client.
type Conn interface {
	UserId() int
	Send(event *types.ServerEvent) bool
}

// Registry maps user ids to their active connection. It is process-local and
// rebuilt from nothing on restart; clients re-authenticate on reconnect.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int]Conn),
	}
}

// Register maps userId to conn, replacing any previous connection for the
// same user. The replaced connection is not notified.
func (r *Registry) Register(userId int, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[userId] = conn
}

// Unregister removes the mapping for userId only if conn is the connection
// currently registered, so a stale disconnect from a superseded connection
// cannot evict a newer one. It reports whether an entry was removed.
func (r *Registry) Unregister(userId int, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[userId]; ok && cur == conn {
		delete(r.conns, userId)
		return true
	}

	return false
}

// Lookup returns the active connection for userId, if any.
func (r *Registry) Lookup(userId int) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userId]
	return conn, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
