package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ResponseFormat is how the user prefers answers rendered.
type ResponseFormat string

const (
	FormatTable   ResponseFormat = "tabela"
	FormatSummary ResponseFormat = "resumo"
	FormatVisual  ResponseFormat = "visual"
)

// InteractionStyle is inferred from lexical signals in the user's questions.
type InteractionStyle string

const (
	StyleDirect         InteractionStyle = "direto"
	StyleFormal         InteractionStyle = "formal"
	StyleConversational InteractionStyle = "conversacional"
)

// UserProfile holds one user's learned preferences. Created on first
// interaction, mutated incrementally under the sampling policy, never deleted
// automatically.
type UserProfile struct {
	UserID           uuid.UUID              `json:"user_id"`
	ResponseFormat   ResponseFormat         `json:"response_format"`
	FormatScores     map[ResponseFormat]int `json:"format_scores"`
	InteractionStyle InteractionStyle       `json:"interaction_style"`
	FavoriteMetrics  map[string]int         `json:"favorite_metrics"`
	InteractionCount int64                  `json:"interaction_count"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewUserProfile returns a profile with conversational defaults.
func NewUserProfile(userID uuid.UUID) *UserProfile {
	return &UserProfile{
		UserID:           userID,
		ResponseFormat:   FormatTable,
		FormatScores:     make(map[ResponseFormat]int),
		InteractionStyle: StyleConversational,
		FavoriteMetrics:  make(map[string]int),
	}
}

// responseFormats fixes the order score ties resolve in.
var responseFormats = []ResponseFormat{FormatTable, FormatSummary, FormatVisual}

// PreferredFormat returns the format with the highest running score, falling
// back to the stored ResponseFormat when no scores have accumulated. Ties
// resolve in responseFormats order so the answer is stable across calls.
func (p *UserProfile) PreferredFormat() ResponseFormat {
	best := p.ResponseFormat
	bestScore := 0
	for _, format := range responseFormats {
		if score := p.FormatScores[format]; score > bestScore {
			best, bestScore = format, score
		}
	}
	return best
}

// Summary renders a short human-readable profile line for prompt enrichment.
func (p *UserProfile) Summary() string {
	metrics := make([]string, 0, len(p.FavoriteMetrics))
	for m := range p.FavoriteMetrics {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool {
		if p.FavoriteMetrics[metrics[i]] != p.FavoriteMetrics[metrics[j]] {
			return p.FavoriteMetrics[metrics[i]] > p.FavoriteMetrics[metrics[j]]
		}
		return metrics[i] < metrics[j]
	})
	if len(metrics) > 3 {
		metrics = metrics[:3]
	}
	summary := fmt.Sprintf("estilo=%s formato=%s", p.InteractionStyle, p.PreferredFormat())
	if len(metrics) > 0 {
		summary += " metricas=" + strings.Join(metrics, ",")
	}
	return summary
}
