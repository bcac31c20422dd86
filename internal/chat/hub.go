package chat

import (
	"context"
	"slices"
	"sync"

	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/metrics"
)

// Handler reacts to connection lifecycle transitions and inbound frames.
type Handler interface {
	Connected(c *Client)
	Disconnected(c *Client)
	Handle(ctx context.Context, c *Client, env Envelope)
}

type hubRequest struct {
	client *Client
	done   chan struct{}
}

// Hub owns live connections and their rooms. Connect and disconnect
// transitions are serialized through Run; deliveries and room changes are
// safe from any goroutine.
type Hub struct {
	register   chan hubRequest
	unregister chan hubRequest
	stopped    chan struct{}

	mu      sync.RWMutex
	clients map[string]*Client
	// room name -> connection ids; the only membership index
	rooms map[string]map[string]struct{}

	handler Handler
	log     logger.ILogger
	metrics *metrics.Collectors
}

func NewHub(log logger.ILogger, m *metrics.Collectors) *Hub {
	return &Hub{
		register:   make(chan hubRequest),
		unregister: make(chan hubRequest),
		stopped:    make(chan struct{}),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		log:        log,
		metrics:    m,
	}
}

// Run processes connect/disconnect transitions until ctx is done, then
// disconnects every remaining client.
func (h *Hub) Run(ctx context.Context, handler Handler) {
	h.handler = handler
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case req := <-h.register:
			h.add(req.client)
			close(req.done)
		case req := <-h.unregister:
			h.remove(req.client)
			close(req.done)
		}
	}
}

// Attach registers an authenticated client and returns once its connect
// transition (welcome, presence broadcast) has been processed.
func (h *Hub) Attach(c *Client) bool {
	return h.send(h.register, c)
}

// Detach removes a client, leaves all its rooms and closes its Send channel.
// Detaching an unknown client is a no-op.
func (h *Hub) Detach(c *Client) {
	h.send(h.unregister, c)
}

func (h *Hub) send(ch chan hubRequest, c *Client) bool {
	req := hubRequest{client: c, done: make(chan struct{})}
	select {
	case ch <- req:
	case <-h.stopped:
		return false
	}
	select {
	case <-req.done:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	c.setState(StateActive)
	h.handler.Connected(c)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for name, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	close(c.Send)
	h.mu.Unlock()

	c.setState(StateDisconnected)
	h.handler.Disconnected(c)
}

// shutdown closes every Send channel, which makes each write pump send a close
// frame and drop its socket.
func (h *Hub) shutdown() {
	h.mu.Lock()
	gone := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.Send)
		gone = append(gone, c)
	}
	clear(h.rooms)
	h.mu.Unlock()

	for _, c := range gone {
		c.setState(StateDisconnected)
		h.handler.Disconnected(c)
	}
	h.log.Info("Hub", "hub stopped", map[string]interface{}{"closed_clients": len(gone)})
}

// Done is closed once Run has returned and every client has been let go.
func (h *Hub) Done() <-chan struct{} {
	return h.stopped
}

// Join adds a live connection to a room. Unknown connections are ignored.
func (h *Hub) Join(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Leave(room, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Members returns the room's connection ids in sorted order.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (h *Hub) InRoom(room, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][connID]
	return ok
}

// Emit delivers one event to one connection. Deliveries to connections that
// are gone are dropped silently.
func (h *Hub) Emit(connID, event string, data any) {
	h.EmitMany([]string{connID}, event, data)
}

func (h *Hub) EmitMany(connIDs []string, event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]struct{}, len(connIDs))
	for _, id := range connIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := h.clients[id]; ok {
			h.deliver(c, frame)
		}
	}
}

// EmitAll delivers to every live connection.
func (h *Hub) EmitAll(event string, data any) {
	frame, ok := h.encode(event, data)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, frame)
	}
}

// EmitRoom delivers to every member of room plus the extra connections.
func (h *Hub) EmitRoom(room, event string, data any, also ...string) {
	h.EmitMany(append(h.Members(room), also...), event, data)
}

// EmitRoomExcept delivers to every member of room other than except.
func (h *Hub) EmitRoomExcept(room, except, event string, data any) {
	members := slices.DeleteFunc(h.Members(room), func(id string) bool { return id == except })
	h.EmitMany(members, event, data)
}

func (h *Hub) encode(event string, data any) ([]byte, bool) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.log.Error("Hub", "failed to encode frame", map[string]interface{}{"event": event, "error": err})
		return nil, false
	}
	return frame, true
}

// caller holds h.mu for reading
func (h *Hub) deliver(c *Client, frame []byte) {
	select {
	case c.Send <- frame:
	default:
		// slow or broken client: drop the frame and evict it once
		if h.metrics != nil {
			h.metrics.DroppedDeliveries.Inc()
		}
		if c.evicting.CompareAndSwap(false, true) {
			h.log.Warn("Hub", "client send buffer full, disconnecting", map[string]interface{}{
				"conn_id": c.ID, "user_id": c.Identity.UserID,
			})
			go h.Detach(c)
		}
	}
}
