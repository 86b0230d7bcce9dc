package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	job := NewJob(JobTypeConsolidateUser, userID)

	if job.ID == uuid.Nil {
		t.Error("expected job ID to be set")
	}
	if job.Type != JobTypeConsolidateUser {
		t.Errorf("expected type %s, got %s", JobTypeConsolidateUser, job.Type)
	}
	if job.UserID != userID {
		t.Errorf("expected user ID %s, got %s", userID, job.UserID)
	}
	if job.Metadata == nil {
		t.Error("expected metadata map to be initialized")
	}
	if job.RetryCount != 0 || job.MaxRetries != 3 {
		t.Errorf("expected fresh retry state 0/3, got %d/%d", job.RetryCount, job.MaxRetries)
	}
}

func TestJobTimeWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name        string
		notBefore   *time.Time
		notAfter    *time.Time
		wantProcess bool
		wantExpired bool
	}{
		{name: "unconstrained", wantProcess: true},
		{name: "window open", notBefore: timePtr(now.Add(-time.Hour)), wantProcess: true},
		{name: "window not yet open", notBefore: timePtr(now.Add(time.Hour)), wantProcess: false},
		{name: "deadline ahead", notAfter: timePtr(now.Add(time.Hour)), wantProcess: true},
		{name: "deadline passed", notAfter: timePtr(now.Add(-time.Hour)), wantProcess: false, wantExpired: true},
		{
			name:        "inside window",
			notBefore:   timePtr(now.Add(-time.Hour)),
			notAfter:    timePtr(now.Add(time.Hour)),
			wantProcess: true,
		},
		{
			name:        "window entirely in past",
			notBefore:   timePtr(now.Add(-2 * time.Hour)),
			notAfter:    timePtr(now.Add(-time.Hour)),
			wantProcess: false,
			wantExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{
				ID:        uuid.New(),
				Type:      JobTypeAnalyzePatterns,
				UserID:    uuid.New(),
				NotBefore: tt.notBefore,
				NotAfter:  tt.notAfter,
			}
			if got := job.ShouldProcess(); got != tt.wantProcess {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.wantProcess)
			}
			if got := job.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
		})
	}
}

func TestJobRetryBudget(t *testing.T) {
	t.Parallel()

	job := &Job{
		ID:         uuid.New(),
		Type:       JobTypeConsolidateUser,
		UserID:     uuid.New(),
		MaxRetries: 3,
	}

	for i := 0; i < 3; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected CanRetry() true at retry count %d", job.RetryCount)
		}
		job.IncrementRetry()
	}

	if job.RetryCount != 3 {
		t.Errorf("expected retry count 3, got %d", job.RetryCount)
	}
	if job.CanRetry() {
		t.Error("expected CanRetry() false once the budget is spent")
	}
}
