package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// ProfileRepository handles user profile database operations
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves a profile, or nil when the user has none yet
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	var formatScores, favoriteMetrics []byte
	query := `
		SELECT user_id, response_format, format_scores, interaction_style,
		       favorite_metrics, interaction_count, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.ResponseFormat,
		&formatScores,
		&profile.InteractionStyle,
		&favoriteMetrics,
		&profile.InteractionCount,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal(formatScores, &profile.FormatScores); err != nil {
		return nil, fmt.Errorf("failed to decode format scores: %w", err)
	}
	if err := json.Unmarshal(favoriteMetrics, &profile.FavoriteMetrics); err != nil {
		return nil, fmt.Errorf("failed to decode favorite metrics: %w", err)
	}
	return profile, nil
}

// Upsert inserts or replaces the stored profile
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	formatScores, err := json.Marshal(profile.FormatScores)
	if err != nil {
		return fmt.Errorf("failed to encode format scores: %w", err)
	}
	favoriteMetrics, err := json.Marshal(profile.FavoriteMetrics)
	if err != nil {
		return fmt.Errorf("failed to encode favorite metrics: %w", err)
	}

	query := `
		INSERT INTO user_profiles (user_id, response_format, format_scores, interaction_style,
		                           favorite_metrics, interaction_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			response_format = EXCLUDED.response_format,
			format_scores = EXCLUDED.format_scores,
			interaction_style = EXCLUDED.interaction_style,
			favorite_metrics = EXCLUDED.favorite_metrics,
			interaction_count = EXCLUDED.interaction_count,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, query,
		profile.UserID,
		profile.ResponseFormat,
		formatScores,
		profile.InteractionStyle,
		favoriteMetrics,
		profile.InteractionCount,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
