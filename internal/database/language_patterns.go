package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// LanguagePatternRepository handles language pattern database operations
type LanguagePatternRepository struct {
	db *DB
}

// NewLanguagePatternRepository creates a new language pattern repository
func NewLanguagePatternRepository(db *DB) *LanguagePatternRepository {
	return &LanguagePatternRepository{db: db}
}

// Observe records one use of a term for a concept, incrementing the frequency
// when the pair is already known.
func (r *LanguagePatternRepository) Observe(ctx context.Context, userID uuid.UUID, term string, concept models.Concept) error {
	query := `
		INSERT INTO language_patterns (user_id, term, concept, frequency, last_used)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (user_id, term) DO UPDATE SET
			frequency = language_patterns.frequency + 1,
			concept = EXCLUDED.concept,
			last_used = EXCLUDED.last_used
	`
	if _, err := r.db.ExecContext(ctx, query, userID, term, concept, time.Now()); err != nil {
		return fmt.Errorf("failed to observe language pattern: %w", err)
	}
	return nil
}

// ByUserID retrieves a user's language patterns, most frequent first
func (r *LanguagePatternRepository) ByUserID(ctx context.Context, userID uuid.UUID) ([]models.LanguagePattern, error) {
	query := `
		SELECT user_id, term, concept, frequency, last_used
		FROM language_patterns
		WHERE user_id = $1
		ORDER BY frequency DESC, term
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list language patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []models.LanguagePattern
	for rows.Next() {
		var p models.LanguagePattern
		if err := rows.Scan(&p.UserID, &p.Term, &p.Concept, &p.Frequency, &p.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan language pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate language patterns: %w", err)
	}
	return patterns, nil
}
