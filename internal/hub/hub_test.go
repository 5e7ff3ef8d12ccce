package hub

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubConn records emitted events; only the parts of socketio.Conn the hub
// touches do anything.
type stubConn struct {
	id string

	mu     sync.Mutex
	events []emitted
}

type emitted struct {
	event   string
	payload interface{}
}

func newStubConn(id string) *stubConn {
	return &stubConn{id: id}
}

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Emit(event string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var payload interface{}
	if len(v) > 0 {
		payload = v[0]
	}
	c.events = append(c.events, emitted{event: event, payload: payload})
}

func (c *stubConn) emitted() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]emitted, len(c.events))
	copy(out, c.events)
	return out
}

func (c *stubConn) Close() error { return nil }
func (c *stubConn) URL() url.URL { return url.URL{} }
func (c *stubConn) LocalAddr() net.Addr { return nil }
func (c *stubConn) RemoteAddr() net.Addr { return nil }
func (c *stubConn) RemoteHeader() http.Header { return nil }
func (c *stubConn) Context() interface{} { return nil }
func (c *stubConn) SetContext(ctx interface{}) {}
func (c *stubConn) Namespace() string { return "/" }
func (c *stubConn) Join(room string) {}
func (c *stubConn) Leave(room string) {}
func (c *stubConn) LeaveAll() {}
func (c *stubConn) Rooms() []string { return nil }

func TestRegisterUnregisterLifecycle(t *testing.T) {
	h := New()
	c1 := newStubConn("s1")
	c2 := newStubConn("s2")

	assert.False(t, h.HasLiveSession("acct_a"))

	h.Register("acct_a", c1)
	h.Register("acct_a", c2)
	assert.True(t, h.HasLiveSession("acct_a"))
	assert.Equal(t, []string{"acct_a"}, h.OnlineAccounts())

	account, wasLast := h.Unregister("s1")
	assert.Equal(t, "acct_a", account)
	assert.False(t, wasLast, "a second device is still connected")
	assert.True(t, h.HasLiveSession("acct_a"))

	account, wasLast = h.Unregister("s2")
	assert.Equal(t, "acct_a", account)
	assert.True(t, wasLast)
	assert.False(t, h.HasLiveSession("acct_a"))

	account, wasLast = h.Unregister("unknown")
	assert.Equal(t, "", account)
	assert.False(t, wasLast)
}

func TestEmitToAccount_AllSessions(t *testing.T) {
	h := New()
	c1 := newStubConn("s1")
	c2 := newStubConn("s2")
	other := newStubConn("s3")

	h.Register("acct_a", c1)
	h.Register("acct_a", c2)
	h.Register("acct_b", other)

	h.EmitToAccount("acct_a", "secure:receive", "payload")

	assert.Len(t, c1.emitted(), 1)
	assert.Len(t, c2.emitted(), 1)
	assert.Len(t, other.emitted(), 0)
	assert.Equal(t, "secure:receive", c1.emitted()[0].event)
}

func TestEmitToOtherSessions_SkipsOriginator(t *testing.T) {
	h := New()
	origin := newStubConn("s1")
	echo := newStubConn("s2")

	h.Register("acct_a", origin)
	h.Register("acct_a", echo)

	h.EmitToOtherSessions("acct_a", "s1", "secure:receive", "payload")

	assert.Len(t, origin.emitted(), 0, "the acting session gets an ack, not the echo")
	assert.Len(t, echo.emitted(), 1)
}

func TestEmitToAll(t *testing.T) {
	h := New()
	c1 := newStubConn("s1")
	c2 := newStubConn("s2")

	h.Register("acct_a", c1)
	h.Register("acct_b", c2)

	h.EmitToAll("presence_update", map[string]interface{}{"accountId": "acct_a"})

	assert.Len(t, c1.emitted(), 1)
	assert.Len(t, c2.emitted(), 1)
}
