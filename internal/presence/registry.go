// Package presence tracks which users are connected and through which connections.
package presence

import (
	"slices"
	"sync"
	"time"
)

// Session is one live connection of an authenticated user.
type Session struct {
	ConnectionID string
	UserID       int64
	Email        string
	DisplayName  string
	ConnectedAt  time.Time
}

// Registry is the source of truth for who is online. A user may hold several
// connections; they are kept in registration order so the newest is last.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	byUser   map[int64][]string
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		byUser:   make(map[int64][]string),
		now:      time.Now,
	}
}

// Register inserts or overwrites the session for connectionID.
func (r *Registry) Register(connectionID string, userID int64, email, displayName string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.sessions[connectionID]; ok {
		r.detach(prev.UserID, connectionID)
	}
	s := Session{
		ConnectionID: connectionID,
		UserID:       userID,
		Email:        email,
		DisplayName:  displayName,
		ConnectedAt:  r.now(),
	}
	r.sessions[connectionID] = s
	r.byUser[userID] = append(r.byUser[userID], connectionID)
	return s
}

// Unregister removes and returns the session, reporting whether one existed.
func (r *Registry) Unregister(connectionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return Session{}, false
	}
	delete(r.sessions, connectionID)
	r.detach(s.UserID, connectionID)
	return s, true
}

func (r *Registry) LookupBySession(connectionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	return s, ok
}

// LookupConnectionForUser returns the most recently registered connection of the user.
func (r *Registry) LookupConnectionForUser(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userID]
	if len(conns) == 0 {
		return "", false
	}
	return conns[len(conns)-1], true
}

// ConnectionsForUser returns every live connection of the user, oldest first.
func (r *Registry) ConnectionsForUser(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byUser[userID])
}

// OnlineUserIDs returns the deduplicated set of online users in ascending order.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.byUser))
	for uid := range r.byUser {
		ids = append(ids, uid)
	}
	slices.Sort(ids)
	return ids
}

// Len is the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// caller holds r.mu
func (r *Registry) detach(userID int64, connectionID string) {
	conns := slices.DeleteFunc(r.byUser[userID], func(c string) bool { return c == connectionID })
	if len(conns) == 0 {
		delete(r.byUser, userID)
		return
	}
	r.byUser[userID] = conns
}
