package chat

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/ageniuscoder/mmchat/gateway/internal/conversations"
	"github.com/ageniuscoder/mmchat/gateway/internal/events"
	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/ageniuscoder/mmchat/gateway/internal/presence"
)

func (r *Router) createRoom(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error {
	var req createRoomReq
	if err := r.decode(data, &req); err != nil {
		return err
	}
	if req.TargetUserID == s.UserID {
		return payloadError{msg: "cannot start a conversation with yourself"}
	}

	room, err := r.Broker.OpenRoom(ctx, s, req.TargetUserID)
	if err != nil {
		return err
	}
	r.Hub.EmitMany(room.Notify, EventRoomCreated, roomCreatedPayload{
		ConversationID: room.Conversation.ID,
		Conversation:   room.Conversation,
	})

	r.publish(events.New(events.ConversationOpened, map[string]interface{}{
		"conversationId": room.Conversation.ID,
		"requesterId":    s.UserID,
		"targetUserId":   req.TargetUserID,
	}))
	return nil
}

func (r *Router) joinRoom(_ context.Context, c *Client, _ presence.Session, data json.RawMessage) error {
	var req roomReq
	if err := r.decode(data, &req); err != nil {
		return err
	}
	r.Broker.JoinGroup(req.ConversationID, c.ID)
	r.Hub.Emit(c.ID, EventJoinedRoom, roomPayload{ConversationID: req.ConversationID})
	return nil
}

func (r *Router) leaveRoom(_ context.Context, c *Client, _ presence.Session, data json.RawMessage) error {
	var req roomReq
	if err := r.decode(data, &req); err != nil {
		return err
	}
	r.Broker.LeaveGroup(req.ConversationID, c.ID)
	r.Hub.Emit(c.ID, EventLeftRoom, roomPayload{ConversationID: req.ConversationID})
	return nil
}

// roomMessage persists first and only then fans out, sender included.
func (r *Router) roomMessage(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error {
	var req roomMessageReq
	if err := r.decode(data, &req); err != nil {
		return err
	}
	typ := req.Type
	if typ == "" {
		typ = models.MessageText
	}

	msg, err := r.Store.CreateMessage(ctx, models.NewMessage{
		ConversationID: req.ConversationID,
		SenderID:       s.UserID,
		Content:        req.Message,
		Type:           typ,
		FileURL:        req.FileURL,
	})
	if err != nil {
		return err
	}
	r.Hub.EmitRoom(conversations.RoomName(msg.ConversationID), EventRoomMessage, msg, c.ID)

	r.publish(events.New(events.MessageCreated, map[string]interface{}{
		"messageId":      msg.ID,
		"conversationId": msg.ConversationID,
		"senderId":       msg.SenderID,
		"type":           string(msg.Type),
	}))
	return nil
}

func (r *Router) updateMessage(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error {
	var req updateMessageReq
	if err := r.decode(data, &req); err != nil {
		return err
	}

	msg, err := r.Store.UpdateMessage(ctx, models.MessageUpdate{
		MessageID:      req.MessageID,
		ConversationID: req.ConversationID,
		UserID:         s.UserID,
		Content:        req.Content,
	})
	if err != nil {
		return err
	}
	r.Hub.EmitRoom(conversations.RoomName(msg.ConversationID), EventMessageUpdated, msg, c.ID)

	r.publish(events.New(events.MessageUpdated, map[string]interface{}{
		"messageId":      msg.ID,
		"conversationId": msg.ConversationID,
		"userId":         s.UserID,
	}))
	return nil
}

// deleteMessage defaults to hiding the message for the requester only.
func (r *Router) deleteMessage(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error {
	var req deleteMessageReq
	if err := r.decode(data, &req); err != nil {
		return err
	}
	scope := req.DeleteType
	if scope == "" {
		scope = models.DeleteForMe
	}

	// the store rejects a messageId outside conversationId, so the room below is the message's own
	err := r.Store.DeleteMessage(ctx, models.MessageDelete{
		MessageID:      req.MessageID,
		ConversationID: req.ConversationID,
		UserID:         s.UserID,
		DeleteType:     scope,
	})
	if err != nil {
		return err
	}

	payload := messageDeletedPayload{
		MessageID:      req.MessageID,
		ConversationID: req.ConversationID,
		DeleteType:     scope,
	}
	if scope == models.DeleteForAll {
		r.Hub.EmitRoom(conversations.RoomName(req.ConversationID), EventMessageDeleted, payload, c.ID)
	} else {
		r.Hub.Emit(c.ID, EventMessageDeleted, payload)
	}

	r.publish(events.New(events.MessageDeleted, map[string]interface{}{
		"messageId":      req.MessageID,
		"conversationId": req.ConversationID,
		"userId":         s.UserID,
		"deleteType":     string(scope),
	}))
	return nil
}

// fetchMessages returns the history the requester is allowed to see.
func (r *Router) fetchMessages(ctx context.Context, c *Client, s presence.Session, data json.RawMessage) error {
	var req roomReq
	if err := r.decode(data, &req); err != nil {
		return err
	}

	convs, err := r.Store.UserConversations(ctx, s.UserID)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(convs, func(conv models.Conversation) bool { return conv.ID == req.ConversationID }) {
		return payloadError{msg: "not a member of this conversation"}
	}

	msgs, err := r.Store.ConversationMessages(ctx, req.ConversationID)
	if err != nil {
		return err
	}
	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.HiddenFor(s.UserID) {
			visible = append(visible, m)
		}
	}
	r.Hub.Emit(c.ID, EventConversationMessages, conversationMessagesPayload{
		ConversationID: req.ConversationID,
		Messages:       visible,
	})
	return nil
}

func (r *Router) fetchConversations(ctx context.Context, c *Client, s presence.Session, _ json.RawMessage) error {
	convs, err := r.Store.UserConversations(ctx, s.UserID)
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	r.Hub.Emit(c.ID, EventConversations, conversationsPayload{Conversations: convs})
	return nil
}

// typing relays typing indicators to the rest of a room the sender is in.
func (r *Router) typing(event string) handlerFunc {
	return func(_ context.Context, c *Client, s presence.Session, data json.RawMessage) error {
		var req roomReq
		if err := r.decode(data, &req); err != nil {
			return err
		}
		room := conversations.RoomName(req.ConversationID)
		if !r.Hub.InRoom(room, c.ID) {
			return nil
		}
		r.Hub.EmitRoomExcept(room, c.ID, event, typingPayload{
			ConversationID: req.ConversationID,
			UserID:         s.UserID,
		})
		return nil
	}
}
