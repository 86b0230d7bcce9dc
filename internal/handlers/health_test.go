package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealthCheckBasicMode(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("basic mode should not run checks, got %v", resp.Checks)
	}
}

func TestHealthCheckExtendedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		queue      DependencyChecker
		cache      DependencyChecker
		wantCode   int
		wantStatus string
		wantQueue  string
		wantCache  string
	}{
		{
			name:       "all healthy",
			queue:      &stubChecker{},
			cache:      &stubChecker{},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantQueue:  "healthy",
			wantCache:  "healthy",
		},
		{
			name:       "queue down",
			queue:      &stubChecker{err: errors.New("connection refused")},
			cache:      &stubChecker{},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantQueue:  "unhealthy: connection refused",
			wantCache:  "healthy",
		},
		{
			name:       "nothing configured",
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantQueue:  "not configured",
			wantCache:  "not configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(nil, tt.queue, tt.cache)
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest("GET", "/health?mode=extended", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Checks["database"] != "not configured" {
				t.Errorf("database check = %q, want not configured", resp.Checks["database"])
			}
			if resp.Checks["queue"] != tt.wantQueue {
				t.Errorf("queue check = %q, want %q", resp.Checks["queue"], tt.wantQueue)
			}
			if resp.Checks["cache"] != tt.wantCache {
				t.Errorf("cache check = %q, want %q", resp.Checks["cache"], tt.wantCache)
			}
		})
	}
}
