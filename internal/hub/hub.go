// Package hub tracks live socket sessions per account and fans events out
// to them. One account may hold several sessions at once (multi-device);
// the hub is the authority the notification dispatcher consults to decide
// whether a recipient is reachable live.
package hub

import (
	"sync"

	socketio "github.com/googollee/go-socket.io"
)

// Hub is created once at process start and handed by reference to every
// component that broadcasts. It keeps no durable state: a restart simply
// drops all sessions and clients reconnect.
type Hub struct {
	mu sync.RWMutex

	// accountID -> socketID -> connection
	sessions map[string]map[string]socketio.Conn
	// socketID -> accountID, for disconnect cleanup
	owners map[string]string
}

func New() *Hub {
	return &Hub{
		sessions: make(map[string]map[string]socketio.Conn),
		owners:   make(map[string]string),
	}
}

// Register binds an authenticated connection to its account's broadcast
// group.
func (h *Hub) Register(accountID string, conn socketio.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[accountID] == nil {
		h.sessions[accountID] = make(map[string]socketio.Conn)
	}
	h.sessions[accountID][conn.ID()] = conn
	h.owners[conn.ID()] = accountID
}

// Unregister drops a connection and returns the account it belonged to,
// with true when that was the account's last live session.
func (h *Hub) Unregister(socketID string) (accountID string, wasLast bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	accountID, ok := h.owners[socketID]
	if !ok {
		return "", false
	}
	delete(h.owners, socketID)
	delete(h.sessions[accountID], socketID)
	if len(h.sessions[accountID]) == 0 {
		delete(h.sessions, accountID)
		return accountID, true
	}
	return accountID, false
}

// HasLiveSession reports whether any session of the account is connected.
func (h *Hub) HasLiveSession(accountID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[accountID]) > 0
}

// OnlineAccounts lists accounts with at least one live session.
func (h *Hub) OnlineAccounts() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	accounts := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		accounts = append(accounts, id)
	}
	return accounts
}

// EmitToAccount delivers an event to every live session of the account.
func (h *Hub) EmitToAccount(accountID, event string, payload interface{}) {
	for _, conn := range h.conns(accountID) {
		conn.Emit(event, payload)
	}
}

// EmitToOtherSessions delivers an event to every session of the account
// except the originating one. Used for the multi-device echo, where the
// acting session gets a direct acknowledgment instead.
func (h *Hub) EmitToOtherSessions(accountID, exceptSocketID, event string, payload interface{}) {
	for _, conn := range h.conns(accountID) {
		if conn.ID() != exceptSocketID {
			conn.Emit(event, payload)
		}
	}
}

// EmitToAll delivers an event to every live session of every account.
func (h *Hub) EmitToAll(event string, payload interface{}) {
	h.mu.RLock()
	all := make([]socketio.Conn, 0, len(h.owners))
	for _, group := range h.sessions {
		for _, conn := range group {
			all = append(all, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range all {
		conn.Emit(event, payload)
	}
}

// conns snapshots the account's connections so emits run outside the lock.
func (h *Hub) conns(accountID string) []socketio.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.sessions[accountID]
	out := make([]socketio.Conn, 0, len(group))
	for _, conn := range group {
		out = append(out, conn)
	}
	return out
}
