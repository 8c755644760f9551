// Package session keeps per-session conversation history in memory.
//
// A Store is safe for concurrent use by many in-flight pipeline runs. All
// mutations are serialized by a single lock; reads return copies so callers
// never observe a half-applied append.
//
// Sessions live for the lifetime of the process. They are created implicitly
// on the first Append for an unknown id and removed only by Clear.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRecent is the window used by Recent when n <= 0.
const DefaultRecent = 10

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Errors returned by Append.
var (
	ErrEmptyContent = errors.New("session: message content is empty")
	ErrInvalidRole  = errors.New("session: invalid role")
	ErrEmptyID      = errors.New("session: session id is empty")
)

// Message is one utterance in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a snapshot of a conversation.
type Session struct {
	ID           string    `json:"session_id"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// MessageCount returns the number of messages in the snapshot.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// Info summarizes a session without its messages.
type Info struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Stats summarizes the whole store.
type Stats struct {
	TotalSessions    int      `json:"total_sessions"`
	TotalMessages    int      `json:"total_messages"`
	ActiveSessionIDs []string `json:"active_sessions"`
}

// Store is an in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new empty session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createLocked(id)
	return id
}

func (s *Store) createLocked(id string) *Session {
	now := s.now()
	sess := &Session{ID: id, CreatedAt: now, LastActivity: now}
	s.sessions[id] = sess
	return sess
}

// Append adds a message to session id, creating the session if needed.
func (s *Store) Append(id string, role Role, content string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = s.createLocked(id)
	}
	now := s.now()
	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: now})
	sess.LastActivity = now
	return nil
}

// History returns every message of session id in arrival order. Unknown ids
// yield an empty slice and are not created.
func (s *Store) History(id string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return []Message{}
	}
	return copyMessages(sess.Messages)
}

// Recent returns the last n messages of session id in arrival order.
func (s *Store) Recent(id string, n int) []Message {
	if n <= 0 {
		n = DefaultRecent
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return []Message{}
	}
	msgs := sess.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return copyMessages(msgs)
}

// Get returns a snapshot of session id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	snap := *sess
	snap.Messages = copyMessages(sess.Messages)
	return snap, true
}

// Info returns metadata for session id.
func (s *Store) Info(id string) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Info{}, false
	}
	return Info{
		ID:           sess.ID,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
		MessageCount: len(sess.Messages),
	}, true
}

// Clear removes session id. It reports whether the session existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Stats returns totals across all sessions. Ids are sorted.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalSessions:    len(s.sessions),
		ActiveSessionIDs: make([]string, 0, len(s.sessions)),
	}
	for id, sess := range s.sessions {
		st.TotalMessages += len(sess.Messages)
		st.ActiveSessionIDs = append(st.ActiveSessionIDs, id)
	}
	sort.Strings(st.ActiveSessionIDs)
	return st
}

func copyMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
