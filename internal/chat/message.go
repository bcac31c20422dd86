package chat

import (
	"encoding/json"

	"github.com/ageniuscoder/mmchat/gateway/internal/models"
)

// Inbound event names.
const (
	EventCreateRoom         = "create_room"
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventRoomMessage        = "room_message"
	EventUpdateMessage      = "update_message"
	EventDeleteMessage      = "delete_message"
	EventFetchMessages      = "fetch_messages"
	EventFetchConversations = "fetch_conversations"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
)

// Outbound event names. room_message and the typing events are reused as is.
const (
	EventWelcome              = "welcome"
	EventOnlineUsers          = "online_users"
	EventRoomCreated          = "room_created"
	EventJoinedRoom           = "joined_room"
	EventLeftRoom             = "left_room"
	EventMessageUpdated       = "message_updated"
	EventMessageDeleted       = "message_deleted"
	EventConversationMessages = "conversation_messages"
	EventConversations        = "conversations"
	EventError                = "error"
)

// Envelope is one frame on the socket in either direction.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Type: event, Data: data})
}

// Inbound payloads.

type createRoomReq struct {
	TargetUserID int64 `json:"targetUserId" validate:"required,gt=0"`
}

type roomReq struct {
	ConversationID int64 `json:"conversationId" validate:"required,gt=0"`
}

type roomMessageReq struct {
	ConversationID int64              `json:"conversationId" validate:"required,gt=0"`
	Message        string             `json:"message" validate:"required_without=FileURL,max=4000"`
	Type           models.MessageType `json:"type" validate:"omitempty,oneof=TEXT IMAGE VIDEO VOICE FILE"`
	FileURL        string             `json:"fileUrl" validate:"omitempty,url"`
}

type updateMessageReq struct {
	ConversationID int64  `json:"conversationId" validate:"required,gt=0"`
	MessageID      int64  `json:"messageId" validate:"required,gt=0"`
	Content        string `json:"content" validate:"required,max=4000"`
}

type deleteMessageReq struct {
	ConversationID int64              `json:"conversationId" validate:"required,gt=0"`
	MessageID      int64              `json:"messageId" validate:"required,gt=0"`
	DeleteType     models.DeleteScope `json:"deleteType" validate:"omitempty,oneof=FOR_ALL FOR_ME"`
}

// Outbound payloads.

type welcomePayload struct {
	SocketID string `json:"socketId"`
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type roomCreatedPayload struct {
	ConversationID int64               `json:"conversationId"`
	Conversation   models.Conversation `json:"conversation"`
}

type roomPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type messageDeletedPayload struct {
	MessageID      int64              `json:"messageId"`
	ConversationID int64              `json:"conversationId"`
	DeleteType     models.DeleteScope `json:"deleteType"`
}

type conversationMessagesPayload struct {
	ConversationID int64            `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

type conversationsPayload struct {
	Conversations []models.Conversation `json:"conversations"`
}

type typingPayload struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
}

type errorPayload struct {
	Message string `json:"message"`
}
