package chat

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/bridge"
	"github.com/ageniuscoder/mmchat/gateway/internal/conversations"
	"github.com/ageniuscoder/mmchat/gateway/internal/events"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/metrics"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/ageniuscoder/mmchat/gateway/internal/presence"
	"github.com/ageniuscoder/mmchat/gateway/internal/utils"

	"github.com/go-playground/validator/v10"
)

const publishTimeout = 2 * time.Second

// Store is the slice of the persistence bridge the router calls directly.
type Store interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	ConversationMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
	UserConversations(ctx context.Context, userID int64) ([]models.Conversation, error)
	UpdateMessage(ctx context.Context, upd models.MessageUpdate) (models.Message, error)
	DeleteMessage(ctx context.Context, del models.MessageDelete) error
}

type Deps struct {
	Hub       *Hub
	Registry  *presence.Registry
	Broker    *conversations.Broker
	Store     Store
	Publisher events.Publisher
	Metrics   *metrics.Collectors
	Log       logger.ILogger
}

type handlerFunc func(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error

// Router dispatches inbound frames by event name and drives the presence
// side of connect and disconnect.
type Router struct {
	Deps
	validate *validator.Validate
	handlers map[string]handlerFunc
}

var _ Handler = (*Router)(nil)

func NewRouter(d Deps) *Router {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	r := &Router{Deps: d, validate: v}
	r.handlers = map[string]handlerFunc{
		EventCreateRoom:         r.createRoom,
		EventJoinRoom:           r.joinRoom,
		EventLeaveRoom:          r.leaveRoom,
		EventRoomMessage:        r.roomMessage,
		EventUpdateMessage:      r.updateMessage,
		EventDeleteMessage:      r.deleteMessage,
		EventFetchMessages:      r.fetchMessages,
		EventFetchConversations: r.fetchConversations,
		EventTypingStart:        r.typing(EventTypingStart),
		EventTypingStop:         r.typing(EventTypingStop),
	}
	return r
}

// payloadError is a client mistake; its text is sent back as is.
type payloadError struct {
	msg string
}

func (e payloadError) Error() string {
	return e.msg
}

// Connected registers the session, greets the connection and tells everyone
// the new online set.
func (r *Router) Connected(c *Client) {
	s := r.Registry.Register(c.ID, c.Identity.UserID, c.Identity.Email, c.Identity.DisplayName)
	r.Hub.Emit(c.ID, EventWelcome, welcomePayload{
		SocketID: s.ConnectionID,
		UserID:   s.UserID,
		Email:    s.Email,
		Username: s.DisplayName,
	})
	r.broadcastOnline()

	r.Log.Info("Router", "client connected", map[string]interface{}{"conn_id": c.ID, "user_id": s.UserID})
	r.publish(events.New(events.PresenceOnline, map[string]interface{}{
		"userId": s.UserID, "connectionId": s.ConnectionID,
	}))
}

// Disconnected drops the session. Connections that never registered leave no
// trace and trigger no broadcast.
func (r *Router) Disconnected(c *Client) {
	s, ok := r.Registry.Unregister(c.ID)
	if !ok {
		return
	}
	r.broadcastOnline()

	r.Log.Info("Router", "client disconnected", map[string]interface{}{"conn_id": c.ID, "user_id": s.UserID})
	r.publish(events.New(events.PresenceOffline, map[string]interface{}{
		"userId": s.UserID, "connectionId": s.ConnectionID,
	}))
}

func (r *Router) broadcastOnline() {
	ids := r.Registry.OnlineUserIDs()
	if r.Metrics != nil {
		r.Metrics.OnlineConnections.Set(float64(r.Registry.Len()))
		r.Metrics.OnlineUsers.Set(float64(len(ids)))
	}
	r.Hub.EmitAll(EventOnlineUsers, ids)
}

// Handle runs one inbound frame to completion. Failures are reported to the
// sender only.
func (r *Router) Handle(ctx context.Context, c *Client, env Envelope) {
	if c.State() != StateActive {
		return
	}
	if c.limiter != nil && !c.limiter.Allow() {
		r.count(env.Type, "rate_limited")
		r.Hub.Emit(c.ID, EventError, errorPayload{Message: "rate limit exceeded"})
		return
	}

	h, ok := r.handlers[env.Type]
	if !ok {
		r.count("unknown", "rejected")
		r.Hub.Emit(c.ID, EventError, errorPayload{Message: "unknown event"})
		return
	}
	s, ok := r.Registry.LookupBySession(c.ID)
	if !ok {
		r.count(env.Type, "rejected")
		r.Hub.Emit(c.ID, EventError, errorPayload{Message: "session not registered"})
		return
	}

	if err := h(ctx, c, s, env.Data); err != nil {
		r.fail(c, env.Type, err)
		return
	}
	r.count(env.Type, "ok")
}

func (r *Router) fail(c *Client, event string, err error) {
	var pe payloadError
	outcome := "error"
	if errors.As(err, &pe) {
		outcome = "rejected"
	}
	r.count(event, outcome)

	r.Log.Error("Router", "event failed", map[string]interface{}{
		"event":   event,
		"conn_id": c.ID,
		"user_id": c.Identity.UserID,
		"error":   err,
	})
	r.Hub.Emit(c.ID, EventError, errorPayload{Message: clientMessage(err)})
}

// clientMessage turns an internal failure into the short text a client sees.
func clientMessage(err error) string {
	var pe payloadError
	if errors.As(err, &pe) {
		return pe.msg
	}
	var be *bridge.Error
	if errors.As(err, &be) {
		if errors.Is(be, bridge.ErrUpstreamUnavailable) {
			return "service unavailable, try again"
		}
		if be.Message != "" {
			return be.Message
		}
		return be.Kind.Error()
	}
	return "internal error"
}

func (r *Router) count(event, outcome string) {
	if r.Metrics != nil {
		r.Metrics.Events.WithLabelValues(event, outcome).Inc()
	}
}

// decode fills req from the frame payload and validates it.
func (r *Router) decode(data json.RawMessage, req any) error {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return payloadError{msg: "malformed payload"}
	}
	if err := r.validate.Struct(req); err != nil {
		return payloadError{msg: utils.Summary(err)}
	}
	return nil
}

// publish is best effort; a lost domain event never fails the client request.
func (r *Router) publish(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.Publisher.Publish(ctx, ev); err != nil {
		r.Log.Warn("Router", "failed to publish domain event", map[string]interface{}{
			"type": ev.EventType(), "error": err.Error(),
		})
	}
}
