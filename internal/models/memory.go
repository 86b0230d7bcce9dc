package models

import (
	"time"

	"github.com/google/uuid"
)

// ContextType categorizes a contextual memory entry.
type ContextType string

const (
	ContextPreference ContextType = "preference"
	ContextMetric     ContextType = "metric"
	ContextFeedback   ContextType = "feedback"
	ContextOther      ContextType = "other"
)

// Importance bounds for contextual memories.
const (
	MinImportance = 1
	MaxImportance = 5
)

// ContextualMemory is a timestamped, typed, expirable fact about a user.
// Expired entries are excluded from context but retained for audit (soft expiry).
type ContextualMemory struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Content     string      `json:"content"`
	ContextType ContextType `json:"context_type"`
	Importance  int         `json:"importance"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

// Active reports whether the memory is usable as context at the given instant.
func (m *ContextualMemory) Active(now time.Time) bool {
	return m.ExpiresAt == nil || m.ExpiresAt.After(now)
}

// LanguagePattern records one user's repeated use of a surface term for a concept.
type LanguagePattern struct {
	UserID    uuid.UUID `json:"user_id"`
	Term      string    `json:"term"`
	Concept   Concept   `json:"concept"`
	Frequency int       `json:"frequency"`
	LastUsed  time.Time `json:"last_used"`
}

// ProblemContext is a resolved (or pending) issue: the triggering question,
// what answered it, and how it played out.
type ProblemContext struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ProblemType   string    `json:"problem_type"`
	Question      string    `json:"question"`
	Resolution    string    `json:"resolution"`
	QueryPattern  string    `json:"query_pattern,omitempty"`
	SuccessRating int       `json:"success_rating"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

// Interaction is one recorded question/answer exchange.
type Interaction struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Feedback       string    `json:"feedback,omitempty"`
	Sentiment      float64   `json:"sentiment"`
	Intent         Intent    `json:"intent,omitempty"`
	CandidateQuery string    `json:"candidate_query,omitempty"`
	Repeated       bool      `json:"repeated"`
	CreatedAt      time.Time `json:"created_at"`
}

// MemoryContext is the bounded context bundle handed to prompt enrichment.
type MemoryContext struct {
	ProfileSummary string             `json:"profile_summary"`
	Profile        *UserProfile       `json:"profile,omitempty"`
	TopMemories    []ContextualMemory `json:"top_memories"`
	RecentProblems []ProblemContext   `json:"recent_problems"`
}
