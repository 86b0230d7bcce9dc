package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// InteractionRepository handles interaction history database operations
type InteractionRepository struct {
	db *DB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Create stores one question/answer exchange
func (r *InteractionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO interactions (id, user_id, question, answer, feedback, sentiment,
		                          intent, candidate_query, repeated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		interaction.ID,
		interaction.UserID,
		interaction.Question,
		interaction.Answer,
		interaction.Feedback,
		interaction.Sentiment,
		interaction.Intent,
		interaction.CandidateQuery,
		interaction.Repeated,
		interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}
	return nil
}

// GetByID retrieves a single interaction; nil when it does not exist
func (r *InteractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	query := `
		SELECT id, user_id, question, answer, feedback, sentiment,
		       intent, candidate_query, repeated, created_at
		FROM interactions
		WHERE id = $1
	`
	var i models.Interaction
	err := r.db.QueryRowContext(ctx, query, id).Scan(&i.ID, &i.UserID, &i.Question,
		&i.Answer, &i.Feedback, &i.Sentiment, &i.Intent, &i.CandidateQuery, &i.Repeated, &i.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return &i, nil
}

// RecentByUserID retrieves the newest interactions for a user, newest first
func (r *InteractionRepository) RecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]models.Interaction, error) {
	query := `
		SELECT id, user_id, question, answer, feedback, sentiment,
		       intent, candidate_query, repeated, created_at
		FROM interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var interactions []models.Interaction
	for rows.Next() {
		var i models.Interaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Question, &i.Answer, &i.Feedback,
			&i.Sentiment, &i.Intent, &i.CandidateQuery, &i.Repeated, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return interactions, nil
}

// CountByUserID returns the total interactions recorded for a user
func (r *InteractionRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM interactions WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}
