package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/models"
	"github.com/oraculo-ai/oraculo/internal/validation"
)

const (
	// MaxMemoryContentLength bounds a learned fact's content
	MaxMemoryContentLength = 1000
	// MaxFeedbackLength bounds feedback text on an interaction
	MaxFeedbackLength = 1000
)

// MemoryEngine is the slice of the memory engine the HTTP surface needs.
// *memory.Engine satisfies it.
type MemoryEngine interface {
	RecordInteraction(ctx context.Context, req memory.RecordRequest) (*models.Interaction, error)
	GetContext(ctx context.Context, userID uuid.UUID) (*models.MemoryContext, error)
	LearnFact(ctx context.Context, userID uuid.UUID, content string, contextType models.ContextType, importance int, expiresInDays int) (uuid.UUID, error)
	Consolidate(ctx context.Context, userID uuid.UUID) (memory.ConsolidationResult, error)
	AnalyzePatterns(ctx context.Context, userID uuid.UUID) (*memory.PatternReport, error)
}

// MemoryHandler handles interaction recording and memory requests
type MemoryHandler struct {
	engine MemoryEngine
	logger *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(engine MemoryEngine, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers memory routes on the given router
func (h *MemoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/interactions", h.RecordInteraction).Methods("POST")
	r.HandleFunc("/users/{id}/context", h.GetContext).Methods("GET")
	r.HandleFunc("/users/{id}/memories", h.LearnFact).Methods("POST")
	r.HandleFunc("/users/{id}/consolidate", h.Consolidate).Methods("POST")
	r.HandleFunc("/users/{id}/patterns", h.AnalyzePatterns).Methods("GET")
}

// RecordInteractionRequest represents a record interaction request
type RecordInteractionRequest struct {
	UserID         string                 `json:"user_id" validate:"required,uuid"`
	Question       string                 `json:"question" validate:"required,min=1,max=2000"`
	Answer         string                 `json:"answer,omitempty" validate:"max=10000"`
	Feedback       string                 `json:"feedback,omitempty" validate:"max=1000"`
	Interpretation *models.Interpretation `json:"interpretation,omitempty"`
}

// LearnFactRequest represents an explicit learn request
type LearnFactRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=1000"`
	ContextType   string `json:"context_type" validate:"required,context_type"`
	Importance    int    `json:"importance" validate:"min=0,max=5"`
	ExpiresInDays int    `json:"expires_in_days,omitempty" validate:"min=0,max=3650"`
}

// LearnFactResponse carries the id of the stored memory
type LearnFactResponse struct {
	MemoryID uuid.UUID `json:"memory_id"`
}

// RecordInteraction handles POST /interactions
func (h *MemoryHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req RecordInteractionRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid user ID")
		return
	}

	req.Question = validation.SanitizeText(req.Question)
	if req.Question == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Question is required and cannot be empty after sanitization")
		return
	}

	interaction, err := h.engine.RecordInteraction(r.Context(), memory.RecordRequest{
		UserID:         userID,
		Question:       req.Question,
		Answer:         validation.SanitizeText(req.Answer),
		Feedback:       validation.SanitizeText(req.Feedback),
		Interpretation: req.Interpretation,
	})
	if err != nil {
		h.logger.Error("record_interaction_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record interaction")
		return
	}

	respondJSON(w, http.StatusCreated, interaction)
}

// GetContext handles GET /users/{id}/context
func (h *MemoryHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	memCtx, err := h.engine.GetContext(r.Context(), userID)
	if err != nil {
		h.logger.Error("get_context_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve memory context")
		return
	}

	respondJSON(w, http.StatusOK, memCtx)
}

// LearnFact handles POST /users/{id}/memories
func (h *MemoryHandler) LearnFact(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var req LearnFactRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.Content = validation.SanitizeText(req.Content)
	if req.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	memoryID, err := h.engine.LearnFact(r.Context(), userID, req.Content, models.ContextType(req.ContextType), req.Importance, req.ExpiresInDays)
	if err != nil {
		h.logger.Error("learn_fact_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store memory")
		return
	}

	respondJSON(w, http.StatusCreated, LearnFactResponse{MemoryID: memoryID})
}

// Consolidate handles POST /users/{id}/consolidate
func (h *MemoryHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Consolidate(r.Context(), userID)
	if err != nil {
		h.logger.Error("consolidation_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to consolidate memories")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// AnalyzePatterns handles GET /users/{id}/patterns
func (h *MemoryHandler) AnalyzePatterns(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	report, err := h.engine.AnalyzePatterns(r.Context(), userID)
	if err != nil {
		h.logger.Error("pattern_analysis_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to analyze patterns")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *MemoryHandler) pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	userID, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}
