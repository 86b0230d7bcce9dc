package memory

import (
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

// SentimentLabel is the coarse classification of a sentiment score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positivo"
	SentimentNegative SentimentLabel = "negativo"
	SentimentNeutral  SentimentLabel = "neutro"
)

var positiveWords = map[string]bool{
	"otimo": true, "otima": true, "excelente": true, "perfeito": true,
	"perfeita": true, "bom": true, "boa": true, "legal": true,
	"obrigado": true, "obrigada": true, "valeu": true, "funcionou": true,
	"ajudou": true, "certo": true, "correto": true, "exato": true,
	"show": true, "top": true, "maravilha": true, "gostei": true,
	"util": true, "rapido": true, "claro": true, "resolvido": true,
	"resolveu": true, "parabens": true,
}

var negativeWords = map[string]bool{
	"ruim": true, "pessimo": true, "pessima": true, "errado": true,
	"errada": true, "erro": true, "falhou": true, "horrivel": true, "lento": true, "confuso": true, "confusa": true,
	"dificil": true, "problema": true, "travou": true, "quebrou": true,
	"incorreto": true, "incompleto": true, "demorado": true, "pior": true,
	"inutil": true, "nada": true, "falha": true, "bug": true,
}

// negations invert the polarity of the word that follows them.
var negations = map[string]bool{
	"nao": true, "nunca": true, "jamais": true, "nem": true,
}

// AnalyzeSentiment scores a Portuguese text in [-1, 1] with a label.
// A negation directly before a polarized word flips it ("nao funcionou"
// counts as negative). Stateless and deterministic; ties are neutral.
func AnalyzeSentiment(text string) (float64, SentimentLabel) {
	words := strings.Fields(lexicon.Fold(text))
	if len(words) == 0 {
		return 0, SentimentNeutral
	}

	positives, negatives := 0, 0
	negated := false
	for _, raw := range words {
		word := strings.Trim(raw, ".,;:!?()\"'")
		if word == "" {
			continue
		}
		if negations[word] {
			negated = true
			continue
		}
		switch {
		case positiveWords[word]:
			if negated {
				negatives++
			} else {
				positives++
			}
		case negativeWords[word]:
			if negated {
				positives++
			} else {
				negatives++
			}
		}
		negated = false
	}

	total := positives + negatives
	if total == 0 {
		return 0, SentimentNeutral
	}
	score := float64(positives-negatives) / float64(total)
	switch {
	case score > 0:
		return score, SentimentPositive
	case score < 0:
		return score, SentimentNegative
	default:
		return 0, SentimentNeutral
	}
}
