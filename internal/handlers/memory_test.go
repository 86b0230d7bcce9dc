package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/models"
)

type stubEngine struct {
	recorded    []memory.RecordRequest
	recordErr   error
	contextErr  error
	learned     []models.ContextualMemory
	learnErr    error
	consolidate memory.ConsolidationResult
}

func (s *stubEngine) RecordInteraction(_ context.Context, req memory.RecordRequest) (*models.Interaction, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	s.recorded = append(s.recorded, req)
	return &models.Interaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Question:  req.Question,
		Answer:    req.Answer,
		Feedback:  req.Feedback,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *stubEngine) GetContext(_ context.Context, userID uuid.UUID) (*models.MemoryContext, error) {
	if s.contextErr != nil {
		return nil, s.contextErr
	}
	return &models.MemoryContext{
		ProfileSummary: "estilo=direto formato=tabela",
		TopMemories: []models.ContextualMemory{
			{ID: uuid.New(), UserID: userID, ContextType: models.ContextPreference, Content: "prefere tabela", Importance: 4},
		},
	}, nil
}

func (s *stubEngine) LearnFact(_ context.Context, userID uuid.UUID, content string, contextType models.ContextType, importance int, expiresInDays int) (uuid.UUID, error) {
	if s.learnErr != nil {
		return uuid.Nil, s.learnErr
	}
	m := models.ContextualMemory{
		ID:          uuid.New(),
		UserID:      userID,
		ContextType: contextType,
		Content:     content,
		Importance:  importance,
	}
	s.learned = append(s.learned, m)
	return m.ID, nil
}

func (s *stubEngine) Consolidate(_ context.Context, _ uuid.UUID) (memory.ConsolidationResult, error) {
	return s.consolidate, nil
}

func (s *stubEngine) AnalyzePatterns(_ context.Context, _ uuid.UUID) (*memory.PatternReport, error) {
	return &memory.PatternReport{
		QueryTypes: map[models.Intent]int{models.IntentQuantityLookup: 3},
		Style:      models.StyleDirect,
	}, nil
}

func newMemoryFixture(engine MemoryEngine) *mux.Router {
	h := NewMemoryHandler(engine, zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestRecordInteractionEndpoint(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	router := newMemoryFixture(engine)

	userID := uuid.New()
	req := newTestRequest("POST", "/interactions", map[string]any{
		"user_id":  userID.String(),
		"question": "quantos clientes em sp",
		"answer":   "152 clientes",
		"feedback": "obrigado, perfeito",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(engine.recorded) != 1 {
		t.Fatalf("recorded %d interactions, want 1", len(engine.recorded))
	}
	got := engine.recorded[0]
	if got.UserID != userID {
		t.Errorf("UserID = %v, want %v", got.UserID, userID)
	}
	if got.Question != "quantos clientes em sp" {
		t.Errorf("Question = %q", got.Question)
	}
	if got.Feedback != "obrigado, perfeito" {
		t.Errorf("Feedback = %q", got.Feedback)
	}
}

func TestRecordInteractionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{"missing user_id", map[string]any{"question": "quantos clientes"}},
		{"bad user_id", map[string]any{"user_id": "nope", "question": "quantos clientes"}},
		{"missing question", map[string]any{"user_id": uuid.New().String()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &stubEngine{}
			router := newMemoryFixture(engine)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newTestRequest("POST", "/interactions", tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if len(engine.recorded) != 0 {
				t.Errorf("engine called despite invalid request")
			}
		})
	}
}

func TestGetContextEndpoint(t *testing.T) {
	t.Parallel()

	router := newMemoryFixture(&stubEngine{})
	userID := uuid.New()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/users/"+userID.String()+"/context", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if data["profile_summary"] != "estilo=direto formato=tabela" {
		t.Errorf("profile_summary = %v", data["profile_summary"])
	}
	memories := data["top_memories"].([]any)
	if len(memories) != 1 {
		t.Errorf("top_memories length = %d, want 1", len(memories))
	}
}

func TestGetContextInvalidUserID(t *testing.T) {
	t.Parallel()

	router := newMemoryFixture(&stubEngine{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/users/not-a-uuid/context", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLearnFactEndpoint(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	router := newMemoryFixture(engine)
	userID := uuid.New()

	req := newTestRequest("POST", "/users/"+userID.String()+"/memories", map[string]any{
		"content":         "prefere graficos de barras",
		"context_type":    "preference",
		"importance":      4,
		"expires_in_days": 30,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(engine.learned) != 1 {
		t.Fatalf("learned %d memories, want 1", len(engine.learned))
	}
	m := engine.learned[0]
	if m.ContextType != models.ContextPreference {
		t.Errorf("ContextType = %v, want preference", m.ContextType)
	}
	if m.Importance != 4 {
		t.Errorf("Importance = %d, want 4", m.Importance)
	}

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if id, _ := data["memory_id"].(string); id != m.ID.String() {
		t.Errorf("memory_id = %q, want %q", id, m.ID.String())
	}
}

func TestLearnFactRejectsUnknownContextType(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	router := newMemoryFixture(engine)
	userID := uuid.New()

	req := newTestRequest("POST", "/users/"+userID.String()+"/memories", map[string]any{
		"content":      "qualquer coisa",
		"context_type": "segredo",
		"importance":   3,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(engine.learned) != 0 {
		t.Errorf("engine called despite invalid context_type")
	}
}

func TestConsolidateEndpoint(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{consolidate: memory.ConsolidationResult{Merged: 2, Removed: 3}}
	router := newMemoryFixture(engine)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newTestRequest("POST", "/users/"+userID.String()+"/consolidate", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if data["merged"] != float64(2) || data["removed"] != float64(3) {
		t.Errorf("result = %v, want merged=2 removed=3", data)
	}
}

func TestAnalyzePatternsEndpoint(t *testing.T) {
	t.Parallel()

	router := newMemoryFixture(&stubEngine{})
	userID := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/users/"+userID.String()+"/patterns", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	if data["style"] != string(models.StyleDirect) {
		t.Errorf("style = %v, want %v", data["style"], models.StyleDirect)
	}
}
