package models

import "time"

// Conversation is a two-party thread. User1ID is always the smaller id.
type Conversation struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1Id"`
	User2ID   int64     `json:"user2Id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c Conversation) HasMember(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

type FindOrCreateConversation struct {
	UserID1 int64 `json:"userId1" binding:"required,gt=0"`
	UserID2 int64 `json:"userId2" binding:"required,gt=0"`
}

// OrderedPair returns the two ids smallest first.
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
