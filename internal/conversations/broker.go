// Package conversations resolves two-party conversations and drives their
// live broadcast groups.
package conversations

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/models"
	"github.com/ageniuscoder/mmchat/gateway/internal/presence"

	"github.com/patrickmn/go-cache"
)

// Store is the slice of the persistence bridge the broker needs.
type Store interface {
	FindOrCreateConversation(ctx context.Context, userID1, userID2 int64) (models.Conversation, error)
}

// Rooms is the transport's group primitive; it owns membership.
type Rooms interface {
	Join(room, connID string)
	Leave(room, connID string)
	Members(room string) []string
}

// Presence answers which connections a user currently holds.
type Presence interface {
	ConnectionsForUser(userID int64) []string
}

// Room is the outcome of opening a conversation: Notify lists every connection
// that was joined and should hear about it, requester first.
type Room struct {
	Conversation models.Conversation
	Notify       []string
}

type Broker struct {
	store    Store
	rooms    Rooms
	presence Presence
	cache    *cache.Cache
}

func NewBroker(store Store, rooms Rooms, p Presence) *Broker {
	return &Broker{
		store:    store,
		rooms:    rooms,
		presence: p,
		cache:    cache.New(10*time.Minute, 20*time.Minute),
	}
}

// RoomName is the broadcast group key of a conversation.
func RoomName(conversationID int64) string {
	return "conversation_" + strconv.FormatInt(conversationID, 10)
}

// FindOrCreateConversation is idempotent for the unordered pair.
func (b *Broker) FindOrCreateConversation(ctx context.Context, userA, userB int64) (models.Conversation, error) {
	lo, hi := models.OrderedPair(userA, userB)
	key := fmt.Sprintf("%d:%d", lo, hi)
	if v, ok := b.cache.Get(key); ok {
		return v.(models.Conversation), nil
	}
	conv, err := b.store.FindOrCreateConversation(ctx, userA, userB)
	if err != nil {
		return models.Conversation{}, err
	}
	b.cache.Set(key, conv, cache.DefaultExpiration)
	return conv, nil
}

// OpenRoom resolves the conversation between the requester and target, joins
// the requester's connection and auto-joins every live connection of the target.
func (b *Broker) OpenRoom(ctx context.Context, requester presence.Session, targetUserID int64) (Room, error) {
	conv, err := b.FindOrCreateConversation(ctx, requester.UserID, targetUserID)
	if err != nil {
		return Room{}, err
	}

	notify := []string{requester.ConnectionID}
	b.JoinGroup(conv.ID, requester.ConnectionID)
	for _, connID := range b.presence.ConnectionsForUser(targetUserID) {
		if connID == requester.ConnectionID {
			continue
		}
		b.JoinGroup(conv.ID, connID)
		notify = append(notify, connID)
	}
	return Room{Conversation: conv, Notify: notify}, nil
}

func (b *Broker) JoinGroup(conversationID int64, connID string) {
	b.rooms.Join(RoomName(conversationID), connID)
}

func (b *Broker) LeaveGroup(conversationID int64, connID string) {
	b.rooms.Leave(RoomName(conversationID), connID)
}

func (b *Broker) ResolveGroupMembers(conversationID int64) []string {
	return b.rooms.Members(RoomName(conversationID))
}
