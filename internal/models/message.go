package models

import (
	"slices"
	"time"
)

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageVideo MessageType = "VIDEO"
	MessageVoice MessageType = "VOICE"
	MessageFile  MessageType = "FILE"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageVoice, MessageFile:
		return true
	}
	return false
}

// DeleteScope selects between removing a message for every participant and
// hiding it only from the acting user.
type DeleteScope string

const (
	DeleteForAll DeleteScope = "FOR_ALL"
	DeleteForMe  DeleteScope = "FOR_ME"
)

func (s DeleteScope) Valid() bool {
	return s == DeleteForAll || s == DeleteForMe
}

type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	SenderID       int64       `json:"senderId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	FileURL        string      `json:"fileUrl,omitempty"`
	DeletedFor     []int64     `json:"deletedFor"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// HiddenFor reports whether userID has hidden this message from their own view.
func (m Message) HiddenFor(userID int64) bool {
	return slices.Contains(m.DeletedFor, userID)
}

// InConversation reports whether the message lives in conversationID. Zero matches any.
func (m Message) InConversation(conversationID int64) bool {
	return conversationID == 0 || m.ConversationID == conversationID
}

// Request bodies of the persistence REST surface.

type NewMessage struct {
	ConversationID int64       `json:"conversationId" binding:"required,gt=0"`
	SenderID       int64       `json:"senderId" binding:"required,gt=0"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type" binding:"required"`
	FileURL        string      `json:"fileUrl,omitempty"`
}

// ConversationID, when set, must be the conversation the message belongs to;
// the same holds for MessageDelete.
type MessageUpdate struct {
	MessageID      int64       `json:"messageId" binding:"required,gt=0"`
	ConversationID int64       `json:"conversationId,omitempty"`
	UserID         int64       `json:"userId" binding:"required,gt=0"`
	Content        string      `json:"content" binding:"required"`
	Type           MessageType `json:"type,omitempty"`
}

type MessageDelete struct {
	MessageID      int64       `json:"messageId" binding:"required,gt=0"`
	ConversationID int64       `json:"conversationId,omitempty"`
	UserID         int64       `json:"userId" binding:"required,gt=0"`
	DeleteType     DeleteScope `json:"deleteType" binding:"required"`
}

