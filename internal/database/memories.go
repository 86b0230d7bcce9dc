package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// MemoryRepository handles contextual memory database operations
type MemoryRepository struct {
	db *DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// Create stores a new contextual memory
func (r *MemoryRepository) Create(ctx context.Context, memory *models.ContextualMemory) error {
	if memory.ID == uuid.Nil {
		memory.ID = uuid.New()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO contextual_memories (id, user_id, content, context_type, importance, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		memory.ID,
		memory.UserID,
		memory.Content,
		memory.ContextType,
		memory.Importance,
		memory.CreatedAt,
		memory.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// GetActiveByUserID retrieves unexpired memories for a user, most important
// first. Expired rows stay in the table but never show up here.
func (r *MemoryRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.ContextualMemory, error) {
	query := `
		SELECT id, user_id, content, context_type, importance, created_at, expires_at
		FROM contextual_memories
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())
		ORDER BY importance DESC, created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []models.ContextualMemory
	for rows.Next() {
		var m models.ContextualMemory
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.ContextType, &m.Importance, &m.CreatedAt, &m.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return memories, nil
}

// Update rewrites the mutable fields of a memory
func (r *MemoryRepository) Update(ctx context.Context, memory *models.ContextualMemory) error {
	query := `
		UPDATE contextual_memories
		SET content = $2, context_type = $3, importance = $4, expires_at = $5
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		memory.ID,
		memory.Content,
		memory.ContextType,
		memory.Importance,
		memory.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	return nil
}

// Expire soft-deletes a memory by moving its expiry into the past; the row is
// kept for audit.
func (r *MemoryRepository) Expire(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE contextual_memories SET expires_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to expire memory: %w", err)
	}
	return nil
}
