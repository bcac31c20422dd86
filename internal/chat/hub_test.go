package chat

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/auth"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	connected    atomic.Int32
	disconnected atomic.Int32
}

func (h *countingHandler) Connected(*Client)                         { h.connected.Add(1) }
func (h *countingHandler) Disconnected(*Client)                      { h.disconnected.Add(1) }
func (h *countingHandler) Handle(context.Context, *Client, Envelope) {}

func runHub(t *testing.T, handler Handler) (*Hub, *metrics.Collectors) {
	t.Helper()
	m := metrics.NewUnregistered()
	hub := NewHub(logger.NewNopLogger(), m)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx, handler)
	t.Cleanup(cancel)
	return hub, m
}

func attach(t *testing.T, hub *Hub, userID int64) *Client {
	t.Helper()
	c := NewClient(hub, nil, nil)
	c.Authenticate(auth.Identity{UserID: userID})
	require.True(t, hub.Attach(c))
	return c
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func next(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame for %s", c.ID)
	}
	return frame{}
}

// expect reads the next frame, checks its type and decodes its data into out.
func expect(t *testing.T, c *Client, event string, out any) {
	t.Helper()
	f := next(t, c)
	require.Equal(t, event, f.Type, "payload: %s", f.Data)
	if out != nil {
		require.NoError(t, json.Unmarshal(f.Data, out))
	}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		if ok {
			t.Fatalf("unexpected frame for %s: %s", c.ID, raw)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubLifecycle(t *testing.T) {
	h := &countingHandler{}
	hub, _ := runHub(t, h)

	c := attach(t, hub, 1)
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, int32(1), h.connected.Load())

	hub.Join("conversation_1", c.ID)
	assert.True(t, hub.InRoom("conversation_1", c.ID))

	hub.Detach(c)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, int32(1), h.disconnected.Load())
	assert.Empty(t, hub.Members("conversation_1"))
	_, ok := <-c.Send
	assert.False(t, ok)

	// second detach and detach of a stranger are no-ops
	hub.Detach(c)
	hub.Detach(NewClient(hub, nil, nil))
	assert.Equal(t, int32(1), h.disconnected.Load())
}

func TestHubJoinIgnoresUnknownConnections(t *testing.T) {
	hub, _ := runHub(t, &countingHandler{})
	hub.Join("conversation_1", "ghost")
	assert.Empty(t, hub.Members("conversation_1"))
}

func TestHubMembersSorted(t *testing.T) {
	hub, _ := runHub(t, &countingHandler{})
	a, b, c := attach(t, hub, 1), attach(t, hub, 2), attach(t, hub, 3)
	for _, cl := range []*Client{c, a, b} {
		hub.Join("r", cl.ID)
	}
	members := hub.Members("r")
	assert.Len(t, members, 3)
	assert.IsNonDecreasing(t, members)

	hub.Leave("r", b.ID)
	assert.NotContains(t, hub.Members("r"), b.ID)
	assert.False(t, hub.InRoom("r", b.ID))
}

func TestHubEmitRoomDeduplicates(t *testing.T) {
	hub, _ := runHub(t, &countingHandler{})
	a, b, out := attach(t, hub, 1), attach(t, hub, 2), attach(t, hub, 3)
	hub.Join("r", a.ID)
	hub.Join("r", b.ID)

	hub.EmitRoom("r", "ping", map[string]int{"n": 1}, a.ID)
	expect(t, a, "ping", nil)
	expect(t, b, "ping", nil)
	assertQuiet(t, a)
	assertQuiet(t, out)

	hub.EmitRoomExcept("r", a.ID, "pong", nil)
	expect(t, b, "pong", nil)
	assertQuiet(t, a)
}

func TestHubEvictsSlowConsumer(t *testing.T) {
	h := &countingHandler{}
	hub, m := runHub(t, h)
	c := attach(t, hub, 1)

	for i := 0; i < sendBuffer+5; i++ {
		hub.Emit(c.ID, "flood", i)
	}

	assert.Eventually(t, func() bool { return h.disconnected.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateDisconnected, c.State())
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.DroppedDeliveries), 1.0)
}

func TestHubStoppedRejectsAttach(t *testing.T) {
	hub := NewHub(logger.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx, &countingHandler{})
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Attach(NewClient(hub, nil, nil)))
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := &countingHandler{}
	hub := NewHub(logger.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx, h)

	a, b := attach(t, hub, 1), attach(t, hub, 2)
	hub.Join("conversation_1", a.ID)
	hub.Join("conversation_1", b.ID)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	for _, c := range []*Client{a, b} {
		_, ok := <-c.Send
		assert.False(t, ok, "send channel of %s still open", c.ID)
		assert.Equal(t, StateDisconnected, c.State())
	}
	assert.Equal(t, int32(2), h.disconnected.Load())
	assert.Empty(t, hub.Members("conversation_1"))

	// late detaches from read pumps return instead of blocking
	hub.Detach(a)
}
