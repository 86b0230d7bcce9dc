package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oraculo-ai/oraculo/internal/database"
)

// DependencyChecker reports whether a dependency is reachable. Both the job
// queue and the interpretation cache satisfy it.
type DependencyChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	db    *database.DB
	queue DependencyChecker
	cache DependencyChecker
}

// NewHealthChecker creates a new health checker. Queue and cache are optional.
func NewHealthChecker(db *database.DB, queue, cache DependencyChecker) *HealthChecker {
	return &HealthChecker{db: db, queue: queue, cache: cache}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /health endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		checks := make(map[string]string)

		if h.db == nil {
			checks["database"] = "not configured"
		} else if err := h.checkDatabase(r.Context()); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.queue == nil {
			checks["queue"] = "not configured"
		} else if err := h.checkDependency(r.Context(), h.queue); err != nil {
			response.Status = "unhealthy"
			checks["queue"] = "unhealthy: " + err.Error()
		} else {
			checks["queue"] = "healthy"
		}

		if h.cache == nil {
			checks["cache"] = "not configured"
		} else if err := h.checkDependency(r.Context(), h.cache); err != nil {
			response.Status = "unhealthy"
			checks["cache"] = "unhealthy: " + err.Error()
		} else {
			checks["cache"] = "healthy"
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Basic mode - just return that the server is running
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkDatabase verifies the database connection
func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return h.db.PingContext(ctx)
}

func (h *HealthChecker) checkDependency(ctx context.Context, dep DependencyChecker) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return dep.HealthCheck(ctx)
}
