package interpreter

import (
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

// Similarity measures how close two questions are as the Jaccard index over
// their concept sets: tokens are folded, stopwords dropped, and synonyms
// collapsed to their canonical concept, so "quantos clientes" and "quantos
// contatos" compare as identical. Symmetric, and 1 for any question against
// itself, the empty one included.
func Similarity(a, b string, snap *lexicon.Snapshot) float64 {
	setA := conceptSet(a, snap)
	setB := conceptSet(b, snap)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for term := range setA {
		if setB[term] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func conceptSet(question string, snap *lexicon.Snapshot) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(lexicon.Fold(question)) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if tok == "" || snap.IsStopword(tok) {
			continue
		}
		if entry, ok := snap.Lookup(tok); ok {
			out[string(entry.Concept)] = true
			continue
		}
		out[tok] = true
	}
	return out
}
