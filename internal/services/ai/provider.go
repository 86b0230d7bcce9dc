package ai

import (
	"context"

	"github.com/oraculo-ai/oraculo/internal/models"
)

// ChatMessage represents a message in a conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AnswerRequest carries everything the provider needs to answer a question
// the interpreter could not resolve on its own.
type AnswerRequest struct {
	Question string
	// Interpretation is the pipeline's partial reading of the question; nil
	// when interpretation was skipped entirely.
	Interpretation *models.Interpretation
	// Memory is the user's context bundle for prompt enrichment.
	Memory *models.MemoryContext
	// History is the recent conversation, oldest first.
	History []ChatMessage
}

// AnswerResponse represents a response from the AI provider
type AnswerResponse struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// Provider is the interface for AI providers
type Provider interface {
	// Answer produces a conversational answer for a delegated question
	Answer(ctx context.Context, req *AnswerRequest) (*AnswerResponse, error)
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
