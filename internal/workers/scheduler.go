package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/queue"
)

// QueueScheduler defers memory maintenance to the job queue instead of
// running it inline on the request path.
type QueueScheduler struct {
	jobQueue queue.JobQueue
}

var _ memory.Scheduler = (*QueueScheduler)(nil)

// NewQueueScheduler creates a scheduler backed by the given queue.
func NewQueueScheduler(jobQueue queue.JobQueue) *QueueScheduler {
	return &QueueScheduler{jobQueue: jobQueue}
}

// ScheduleConsolidation enqueues a consolidation job for the user.
func (s *QueueScheduler) ScheduleConsolidation(ctx context.Context, userID uuid.UUID) error {
	if err := s.jobQueue.Enqueue(ctx, queue.NewJob(queue.JobTypeConsolidateUser, userID)); err != nil {
		return fmt.Errorf("failed to enqueue consolidation job: %w", err)
	}
	return nil
}

// SchedulePatternAnalysis enqueues a profile refresh job for the user.
func (s *QueueScheduler) SchedulePatternAnalysis(ctx context.Context, userID uuid.UUID) error {
	if err := s.jobQueue.Enqueue(ctx, queue.NewJob(queue.JobTypeAnalyzePatterns, userID)); err != nil {
		return fmt.Errorf("failed to enqueue pattern analysis job: %w", err)
	}
	return nil
}

// ScheduleLearnInteraction enqueues language-pattern extraction for one
// stored interaction.
func (s *QueueScheduler) ScheduleLearnInteraction(ctx context.Context, userID, interactionID uuid.UUID) error {
	job := queue.NewJob(queue.JobTypeLearnInteraction, userID)
	job.Metadata["interaction_id"] = interactionID.String()
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue learn interaction job: %w", err)
	}
	return nil
}
