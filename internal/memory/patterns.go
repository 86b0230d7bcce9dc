package memory

import (
	"sort"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// PatternReport summarizes how one user asks questions.
type PatternReport struct {
	DominantTerms   map[models.Concept]string        `json:"dominant_terms"`
	SynonymClusters map[models.Concept][]string      `json:"synonym_clusters"`
	QueryTypes      map[models.Intent]int            `json:"query_types"`
	MetricFocus     map[string]int                   `json:"metric_focus"`
	Style           models.InteractionStyle          `json:"style"`
	FormatScores    map[models.ResponseFormat]int    `json:"format_scores"`
	AvgWordCount    float64                          `json:"avg_word_count"`
}

// courtesyPhrases mark formal register.
var courtesyPhrases = []string{
	"por favor", "por gentileza", "poderia", "gostaria",
	"seria possivel", "se possivel", "agradeco", "obrigado", "obrigada",
}

// formatSignals are surface hints for the preferred response rendering.
var formatSignals = map[models.ResponseFormat][]string{
	models.FormatTable:   {"tabela", "planilha", "lista", "listar", "colunas"},
	models.FormatSummary: {"resumo", "resumir", "resumido", "breve", "direto"},
	models.FormatVisual:  {"grafico", "visual", "dashboard", "chart"},
}

// AnalyzePatterns derives the user's linguistic profile from their recorded
// interactions and term usage. Pure function; the engine persists what it
// decides to keep.
func AnalyzePatterns(interactions []models.Interaction, patterns []models.LanguagePattern, snap *lexicon.Snapshot) *PatternReport {
	report := &PatternReport{
		DominantTerms:   make(map[models.Concept]string),
		SynonymClusters: make(map[models.Concept][]string),
		QueryTypes:      make(map[models.Intent]int),
		MetricFocus:     make(map[string]int),
		FormatScores:    make(map[models.ResponseFormat]int),
		Style:           models.StyleConversational,
	}

	// Dominant term per concept: the surface form the user repeats most.
	bestFreq := make(map[models.Concept]int)
	for _, p := range patterns {
		report.SynonymClusters[p.Concept] = append(report.SynonymClusters[p.Concept], p.Term)
		if p.Frequency > bestFreq[p.Concept] {
			bestFreq[p.Concept] = p.Frequency
			report.DominantTerms[p.Concept] = p.Term
		}
	}
	for concept := range report.SynonymClusters {
		sort.Strings(report.SynonymClusters[concept])
	}

	totalWords := 0
	courtesy := 0
	for _, interaction := range interactions {
		if interaction.Intent != "" {
			report.QueryTypes[interaction.Intent]++
		}
		folded := lexicon.Fold(interaction.Question)
		words := strings.Fields(folded)
		totalWords += len(words)

		for _, phrase := range courtesyPhrases {
			if strings.Contains(folded, phrase) {
				courtesy++
				break
			}
		}
		for format, signals := range formatSignals {
			for _, signal := range signals {
				if strings.Contains(folded, signal) {
					report.FormatScores[format]++
					break
				}
			}
		}
		for _, word := range words {
			if entry, ok := snap.Lookup(word); ok && entry.Kind == models.EntityMetric {
				report.MetricFocus[string(entry.Concept)]++
			}
		}
	}

	if len(interactions) > 0 {
		report.AvgWordCount = float64(totalWords) / float64(len(interactions))
		courtesyRatio := float64(courtesy) / float64(len(interactions))
		switch {
		case courtesyRatio >= 0.3:
			report.Style = models.StyleFormal
		case report.AvgWordCount < 5:
			report.Style = models.StyleDirect
		}
	}
	return report
}

// formatRank fixes the order ties resolve in.
var formatRank = []models.ResponseFormat{
	models.FormatTable,
	models.FormatSummary,
	models.FormatVisual,
}

// PreferredFormat returns the strongest format signal, or "" when none was
// seen. Ties resolve in formatRank order so re-analyzing the same history
// persists the same preference.
func (r *PatternReport) PreferredFormat() models.ResponseFormat {
	var best models.ResponseFormat
	bestScore := 0
	for _, format := range formatRank {
		if score := r.FormatScores[format]; score > bestScore {
			best, bestScore = format, score
		}
	}
	return best
}
