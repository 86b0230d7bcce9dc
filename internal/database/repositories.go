package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// ProfileRepositoryInterface defines the interface for profile repository operations
// This interface enables better testability by allowing mock implementations
type ProfileRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

// MemoryRepositoryInterface defines the interface for contextual memory repository operations
type MemoryRepositoryInterface interface {
	Create(ctx context.Context, memory *models.ContextualMemory) error
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.ContextualMemory, error)
	Update(ctx context.Context, memory *models.ContextualMemory) error
	Expire(ctx context.Context, id uuid.UUID, at time.Time) error
}

// InteractionRepositoryInterface defines the interface for interaction repository operations
type InteractionRepositoryInterface interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error)
	RecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ProblemRepositoryInterface defines the interface for problem context repository operations
type ProblemRepositoryInterface interface {
	Create(ctx context.Context, problem *models.ProblemContext) error
	RecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]models.ProblemContext, error)
	MarkResolved(ctx context.Context, id uuid.UUID, resolution string) error
	DecayRatings(ctx context.Context, userID uuid.UUID, createdAfter time.Time) (int64, error)
}

// LanguagePatternRepositoryInterface defines the interface for language pattern repository operations
type LanguagePatternRepositoryInterface interface {
	Observe(ctx context.Context, userID uuid.UUID, term string, concept models.Concept) error
	ByUserID(ctx context.Context, userID uuid.UUID) ([]models.LanguagePattern, error)
}

// LexiconRepositoryInterface defines the interface for lexicon persistence operations
type LexiconRepositoryInterface interface {
	ObserveTerm(ctx context.Context, entry lexicon.Entry) (int, error)
	ObserveCorrection(ctx context.Context, typo, correct string) (int, error)
	LoadLearned(ctx context.Context, lex *lexicon.Lexicon, promotionFloor int) (int, error)
}

// Ensure concrete types implement the interfaces
var (
	_ ProfileRepositoryInterface         = (*ProfileRepository)(nil)
	_ MemoryRepositoryInterface          = (*MemoryRepository)(nil)
	_ InteractionRepositoryInterface     = (*InteractionRepository)(nil)
	_ ProblemRepositoryInterface         = (*ProblemRepository)(nil)
	_ LanguagePatternRepositoryInterface = (*LanguagePatternRepository)(nil)
	_ LexiconRepositoryInterface         = (*LexiconRepository)(nil)
)
