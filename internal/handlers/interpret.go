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

	"github.com/oraculo-ai/oraculo/internal/cache"
	"github.com/oraculo-ai/oraculo/internal/interpreter"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
	"github.com/oraculo-ai/oraculo/internal/services/ai"
	"github.com/oraculo-ai/oraculo/internal/validation"
)

const (
	// MaxQuestionLength bounds a single question payload
	MaxQuestionLength = 2000
)

// ContextSource supplies the memory bundle used to enrich fallback prompts.
// *memory.Engine satisfies it.
type ContextSource interface {
	GetContext(ctx context.Context, userID uuid.UUID) (*models.MemoryContext, error)
}

// InterpretHandler handles question interpretation requests
type InterpretHandler struct {
	interp        *interpreter.Interpreter
	lex           *lexicon.Lexicon
	cache         *cache.InterpretationCache
	provider      ai.Provider
	conversations *ai.ConversationStore
	memories      ContextSource
	executor      interpreter.QueryExecutor
	threshold     float64
	logger        *zap.Logger
}

// InterpretHandlerParams bundles the handler's collaborators. Cache,
// provider, and executor are optional; without a provider low-confidence
// questions return the interpretation with ambiguities and suggestions only,
// and without an executor candidate queries are returned unexecuted.
type InterpretHandlerParams struct {
	Interpreter   *interpreter.Interpreter
	Lexicon       *lexicon.Lexicon
	Cache         *cache.InterpretationCache
	Provider      ai.Provider
	Conversations *ai.ConversationStore
	Memories      ContextSource
	Executor      interpreter.QueryExecutor
	Threshold     float64
	Logger        *zap.Logger
}

// NewInterpretHandler creates a new interpret handler
func NewInterpretHandler(params InterpretHandlerParams) *InterpretHandler {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	conversations := params.Conversations
	if conversations == nil {
		conversations = ai.NewConversationStore()
	}
	return &InterpretHandler{
		interp:        params.Interpreter,
		lex:           params.Lexicon,
		cache:         params.Cache,
		provider:      params.Provider,
		conversations: conversations,
		memories:      params.Memories,
		executor:      params.Executor,
		threshold:     params.Threshold,
		logger:        logger,
	}
}

// RegisterRoutes registers interpretation routes on the given router
func (h *InterpretHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/interpret", h.Interpret).Methods("POST")
}

// InterpretRequest represents an interpretation request
type InterpretRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// InterpretResponse carries the interpretation plus the fallback answer when
// confidence stayed below the direct-execution threshold.
type InterpretResponse struct {
	Interpretation *models.Interpretation `json:"interpretation"`
	Results        []map[string]any       `json:"results,omitempty"`
	Answer         string                 `json:"answer,omitempty"`
	Model          string                 `json:"model,omitempty"`
	Cached         bool                   `json:"cached"`
}

// Interpret handles POST /interpret
func (h *InterpretHandler) Interpret(w http.ResponseWriter, r *http.Request) {
	var req InterpretRequest
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
	if len(req.Question) > MaxQuestionLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Question exceeds maximum length of %d characters", MaxQuestionLength))
		return
	}

	ctx := r.Context()
	version := h.lex.Snapshot().Version

	if h.cache != nil {
		if hit, err := h.cache.Get(ctx, userID, req.Question, version); err != nil {
			h.logger.Warn("interpretation_cache_read_failed", zap.Error(err))
		} else if hit != nil {
			respondJSON(w, http.StatusOK, InterpretResponse{Interpretation: hit, Cached: true})
			return
		}
	}

	interp := h.interp.Interpret(req.Question)

	// Only confident interpretations are worth caching; ambiguous ones should
	// be re-derived once the lexicon learns the missing terms.
	if h.cache != nil && interp.CandidateQuery != "" {
		if err := h.cache.Set(ctx, userID, req.Question, version, interp); err != nil {
			h.logger.Warn("interpretation_cache_write_failed", zap.Error(err))
		}
	}

	response := InterpretResponse{Interpretation: interp}

	if h.executor != nil && !interp.NeedsFallback(h.threshold) {
		results, err := h.executor.Execute(ctx, interp.CandidateQuery, interp.QueryArgs)
		if err != nil {
			// Execution failure is not fatal; the caller still gets the
			// candidate query and can route it elsewhere.
			h.logger.Warn("candidate_query_execution_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		} else {
			response.Results = results
		}
	}

	if h.provider != nil && interp.NeedsFallback(h.threshold) {
		var memCtx *models.MemoryContext
		if h.memories != nil {
			memCtx, err = h.memories.GetContext(ctx, userID)
			if err != nil {
				h.logger.Warn("memory_context_unavailable",
					zap.String("user_id", userID.String()),
					zap.Error(err))
				memCtx = nil
			}
		}
		answer, err := h.provider.Answer(ctx, &ai.AnswerRequest{
			Question:       req.Question,
			Interpretation: interp,
			Memory:         memCtx,
			History:        h.conversations.History(userID),
		})
		if err != nil {
			h.logger.Error("fallback_answer_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to generate answer")
			return
		}
		h.conversations.Append(userID, "user", req.Question)
		h.conversations.Append(userID, "assistant", answer.Message)
		response.Answer = answer.Message
		response.Model = answer.Model
	}

	respondJSON(w, http.StatusOK, response)
}
