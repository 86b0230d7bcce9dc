package ai

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxSessionMessages bounds how much history is carried into each prompt.
const maxSessionMessages = 20

// ConversationStore tracks per-user rolling conversation history so delegated
// answers can reference earlier turns. Sessions live in memory only.
type ConversationStore struct {
	sessions map[uuid.UUID]*ConversationSession
	mu       sync.Mutex
}

// ConversationSession is one user's active conversation
type ConversationSession struct {
	UserID       uuid.UUID
	Messages     []ChatMessage
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewConversationStore creates a new conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		sessions: make(map[uuid.UUID]*ConversationSession),
	}
}

// Append records one turn of the conversation for the user.
func (s *ConversationStore) Append(userID uuid.UUID, role string, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[userID]
	if !exists {
		session = &ConversationSession{
			UserID:    userID,
			Messages:  make([]ChatMessage, 0, maxSessionMessages),
			CreatedAt: time.Now(),
		}
		s.sessions[userID] = session
	}

	session.Messages = append(session.Messages, ChatMessage{Role: role, Content: content})
	if len(session.Messages) > maxSessionMessages {
		session.Messages = session.Messages[len(session.Messages)-maxSessionMessages:]
	}
	session.LastActivity = time.Now()
}

// History returns a copy of the user's conversation, oldest first.
func (s *ConversationStore) History(userID uuid.UUID) []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[userID]
	if !exists {
		return nil
	}
	history := make([]ChatMessage, len(session.Messages))
	copy(history, session.Messages)
	return history
}

// Close drops a user's session
func (s *ConversationStore) Close(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// PruneIdle removes sessions with no activity since the cutoff and reports
// how many were dropped.
func (s *ConversationStore) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	pruned := 0
	for userID, session := range s.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(s.sessions, userID)
			pruned++
		}
	}
	return pruned
}
