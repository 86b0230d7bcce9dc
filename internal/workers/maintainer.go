package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/queue"
)

// MaintenanceEngine is the slice of the memory engine the worker drives.
type MaintenanceEngine interface {
	Consolidate(ctx context.Context, userID uuid.UUID) (memory.ConsolidationResult, error)
	RefreshProfile(ctx context.Context, userID uuid.UUID) error
	LearnInteraction(ctx context.Context, userID, interactionID uuid.UUID) error
}

// MemoryMaintainer processes background memory jobs: per-user consolidation
// passes and profile refreshes.
type MemoryMaintainer struct {
	engine MaintenanceEngine
	logger *zap.Logger
}

// NewMemoryMaintainer creates a new memory maintainer
func NewMemoryMaintainer(engine MaintenanceEngine, logger *zap.Logger) *MemoryMaintainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryMaintainer{
		engine: engine,
		logger: logger,
	}
}

// ProcessConsolidateJob runs a consolidation pass for the job's user
func (m *MemoryMaintainer) ProcessConsolidateJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required for consolidation job")
	}

	result, err := m.engine.Consolidate(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to consolidate memories: %w", err)
	}

	m.logger.Info("consolidation job done",
		zap.String("user_id", job.UserID.String()),
		zap.Int("merged", result.Merged),
		zap.Int("removed", result.Removed),
	)
	return nil
}

// ProcessAnalyzePatternsJob refreshes the job's user profile
func (m *MemoryMaintainer) ProcessAnalyzePatternsJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required for pattern analysis job")
	}

	if err := m.engine.RefreshProfile(ctx, job.UserID); err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}

	m.logger.Info("pattern analysis job done", zap.String("user_id", job.UserID.String()))
	return nil
}

// ProcessLearnInteractionJob extracts language patterns from the stored
// interaction named in the job metadata
func (m *MemoryMaintainer) ProcessLearnInteractionJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required for learn interaction job")
	}
	raw, ok := job.Metadata["interaction_id"].(string)
	if !ok {
		return fmt.Errorf("interaction_id is required for learn interaction job")
	}
	interactionID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid interaction_id: %w", err)
	}

	if err := m.engine.LearnInteraction(ctx, job.UserID, interactionID); err != nil {
		return fmt.Errorf("failed to learn from interaction: %w", err)
	}

	m.logger.Info("learn interaction job done",
		zap.String("user_id", job.UserID.String()),
		zap.String("interaction_id", interactionID.String()),
	)
	return nil
}

// ProcessJob processes a job based on its type
func (m *MemoryMaintainer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.IsExpired() {
		if nackErr := msg.Nack(false); nackErr != nil {
			m.logger.Warn("failed to drop expired job", zap.Error(nackErr))
		}
		return nil
	}
	if !job.ShouldProcess() {
		// Not ready yet; put it back and move on.
		if nackErr := msg.Nack(true); nackErr != nil {
			m.logger.Warn("failed to requeue early job", zap.Error(nackErr))
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeConsolidateUser:
		err = m.ProcessConsolidateJob(ctx, job)
	case queue.JobTypeAnalyzePatterns:
		err = m.ProcessAnalyzePatternsJob(ctx, job)
	case queue.JobTypeLearnInteraction:
		err = m.ProcessLearnInteractionJob(ctx, job)
	default:
		// Unknown job type, dead-letter it.
		if nackErr := msg.Nack(false); nackErr != nil {
			m.logger.Warn("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return m.handleJobError(msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries a failed job until its retry budget runs out, then
// dead-letters it.
func (m *MemoryMaintainer) handleJobError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		m.logger.Warn("job failed, will retry",
			zap.String("job_id", job.ID.String()),
			zap.String("type", string(job.Type)),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			m.logger.Warn("failed to nack job for retry", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	m.logger.Error("job failed after max retries, dead-lettering",
		zap.String("job_id", job.ID.String()),
		zap.String("type", string(job.Type)),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		m.logger.Warn("failed to nack job to DLQ", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
