package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// ProblemRepository handles problem context database operations
type ProblemRepository struct {
	db *DB
}

// NewProblemRepository creates a new problem repository
func NewProblemRepository(db *DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// Create stores a new problem context
func (r *ProblemRepository) Create(ctx context.Context, problem *models.ProblemContext) error {
	if problem.ID == uuid.Nil {
		problem.ID = uuid.New()
	}
	if problem.CreatedAt.IsZero() {
		problem.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO problem_contexts (id, user_id, problem_type, question, resolution,
		                              query_pattern, success_rating, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		problem.ID,
		problem.UserID,
		problem.ProblemType,
		problem.Question,
		problem.Resolution,
		problem.QueryPattern,
		problem.SuccessRating,
		problem.Resolved,
		problem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create problem context: %w", err)
	}
	return nil
}

// RecentByUserID retrieves the newest problem contexts for a user
func (r *ProblemRepository) RecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]models.ProblemContext, error) {
	query := `
		SELECT id, user_id, problem_type, question, resolution,
		       query_pattern, success_rating, resolved, created_at
		FROM problem_contexts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list problem contexts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var problems []models.ProblemContext
	for rows.Next() {
		var p models.ProblemContext
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProblemType, &p.Question, &p.Resolution,
			&p.QueryPattern, &p.SuccessRating, &p.Resolved, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan problem context: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate problem contexts: %w", err)
	}
	return problems, nil
}

// MarkResolved flags a problem as resolved with its resolution text and bumps
// the success rating by one, capped at 5.
func (r *ProblemRepository) MarkResolved(ctx context.Context, id uuid.UUID, resolution string) error {
	query := `
		UPDATE problem_contexts
		SET resolved = true,
		    resolution = $2,
		    success_rating = LEAST(success_rating + 1, 5)
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, resolution); err != nil {
		return fmt.Errorf("failed to mark problem resolved: %w", err)
	}
	return nil
}

// DecayRatings lowers the success rating of every problem created after the
// cutoff, floored at 1. Used when recent feedback turned negative.
func (r *ProblemRepository) DecayRatings(ctx context.Context, userID uuid.UUID, createdAfter time.Time) (int64, error) {
	query := `
		UPDATE problem_contexts
		SET success_rating = GREATEST(success_rating - 1, 1)
		WHERE user_id = $1 AND created_at > $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, createdAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to decay problem ratings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}
