package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

// Token is one normalized unit of the question. Original and Index are kept
// for span reporting even when the normalized form was corrected or expanded.
type Token struct {
	Original string
	Norm     string
	Index    int
	Quoted   bool
	Stopword bool
	// Corrected is set when the token was rewritten by the typo table or the
	// bounded edit-distance pass.
	Corrected bool
	// LowConfidence marks tokens that looked misspelled but had no
	// unambiguous correction within the edit-distance bound.
	LowConfidence bool
}

// NormalizedQuestion is the normalizer output shared by the three middle
// pipeline stages.
type NormalizedQuestion struct {
	Raw         string
	Tokens      []Token
	Corrections map[string]string
}

// Text returns the normalized token stream joined with spaces.
func (n *NormalizedQuestion) Text() string {
	parts := make([]string, 0, len(n.Tokens))
	for _, t := range n.Tokens {
		parts = append(parts, t.Norm)
	}
	return strings.Join(parts, " ")
}

// MatchTokens returns normalized non-stopword, non-quoted tokens for matching.
func (n *NormalizedQuestion) MatchTokens() []string {
	out := make([]string, 0, len(n.Tokens))
	for _, t := range n.Tokens {
		if t.Stopword || t.Quoted {
			continue
		}
		out = append(out, t.Norm)
	}
	return out
}

// fusedExpressions are multi-word expressions collapsed into single tokens so
// comparators and temporal references survive tokenization.
var fusedExpressions = []struct{ phrase, token string }{
	{"acima de", "acima_de"},
	{"abaixo de", "abaixo_de"},
	{"maior que", "maior_que"},
	{"menor que", "menor_que"},
	{"maior do que", "maior_que"},
	{"menor do que", "menor_que"},
	{"igual a", "igual_a"},
	{"diferente de", "diferente_de"},
	{"semana passada", "semana_passada"},
	{"mes passado", "mes_passado"},
	{"ultimo mes", "mes_passado"},
	{"ultima semana", "semana_passada"},
	{"ano passado", "ano_passado"},
	{"primeiro trimestre", "primeiro_trimestre"},
	{"segundo trimestre", "segundo_trimestre"},
	{"terceiro trimestre", "terceiro_trimestre"},
	{"quarto trimestre", "quarto_trimestre"},
	{"por que", "por_que"},
	{"numero de", "numero"},
	{"total de", "total"},
}

var (
	quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	punctRe  = regexp.MustCompile(`[^\p{L}\p{N}\s_/\-@.]`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

var quotedSlotRe = regexp.MustCompile(`^__q(\d+)__$`)

// Normalize runs the full pre-processing layer: case/accent folding, typo
// correction, abbreviation expansion, expression fusing and tokenization.
// Pure function of (input, lexicon snapshot); no side effects.
func Normalize(raw string, snap *lexicon.Snapshot, editBound int) *NormalizedQuestion {
	out := &NormalizedQuestion{Raw: raw, Corrections: make(map[string]string)}
	if strings.TrimSpace(raw) == "" {
		return out
	}

	// Quoted values are literal filters; shield them from folding.
	var quoted []string
	text := quotedRe.ReplaceAllStringFunc(raw, func(m string) string {
		slot := len(quoted)
		quoted = append(quoted, strings.Trim(m, `"'`))
		return " __q" + strconv.Itoa(slot) + "__ "
	})

	text = lexicon.Fold(text)
	text = punctRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	for _, expr := range fusedExpressions {
		text = strings.ReplaceAll(text, expr.phrase, expr.token)
	}

	words := strings.Fields(text)
	for i, word := range words {
		if m := quotedSlotRe.FindStringSubmatch(word); m != nil {
			if slot, err := strconv.Atoi(m[1]); err == nil && slot < len(quoted) {
				out.Tokens = append(out.Tokens, Token{
					Original: quoted[slot],
					Norm:     quoted[slot],
					Index:    i,
					Quoted:   true,
				})
			}
			continue
		}

		tok := Token{Original: word, Norm: word, Index: i}

		// Learned and seeded typo corrections first: direct lookups beat
		// edit-distance guessing.
		if correct, ok := snap.Correction(word); ok {
			tok.Norm = correct
			tok.Corrected = true
		}
		if full, ok := snap.Abbreviation(tok.Norm); ok {
			tok.Norm = full
			tok.Corrected = true
		}
		if !tok.Corrected {
			if fixed, ok := correctSpelling(tok.Norm, snap.Vocabulary(), editBound); ok {
				tok.Norm = fixed
				tok.Corrected = true
			} else if looksMisspelled(tok.Norm, snap) {
				tok.LowConfidence = true
			}
		}
		if tok.Corrected && tok.Norm != word {
			out.Corrections[word] = tok.Norm
		}
		tok.Stopword = snap.IsStopword(tok.Norm)
		out.Tokens = append(out.Tokens, tok)
	}
	return out
}

// correctSpelling accepts a correction only when exactly one vocabulary entry
// sits within the edit-distance bound; ambiguous candidates leave the token
// unchanged.
func correctSpelling(word string, vocabulary []string, bound int) (string, bool) {
	if len(word) < 4 {
		return "", false
	}
	var candidate string
	bestDist := bound + 1
	count := 0
	for _, entry := range vocabulary {
		if entry == word {
			return "", false
		}
		d := boundedLevenshtein(word, entry, bound)
		if d < 0 {
			continue
		}
		switch {
		case d < bestDist:
			bestDist, candidate, count = d, entry, 1
		case d == bestDist:
			count++
		}
	}
	if count == 1 && bestDist <= bound {
		return candidate, true
	}
	return "", false
}

// looksMisspelled flags tokens close to several vocabulary entries at once.
func looksMisspelled(word string, snap *lexicon.Snapshot) bool {
	if len(word) < 4 {
		return false
	}
	if _, ok := snap.Lookup(word); ok {
		return false
	}
	near := 0
	for _, entry := range snap.Vocabulary() {
		if boundedLevenshtein(word, entry, 2) >= 0 {
			near++
			if near > 1 {
				return true
			}
		}
	}
	return false
}

// boundedLevenshtein returns the edit distance between a and b, or -1 when it
// exceeds the bound. Early exit keeps correction linear in vocabulary size.
func boundedLevenshtein(a, b string, bound int) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb)-len(ra) > bound {
		return -1
	}
	prev := make([]int, len(ra)+1)
	cur := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		cur[0] = j
		rowMin := cur[0]
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[i] = min3(prev[i]+1, cur[i-1]+1, prev[i-1]+cost)
			if cur[i] < rowMin {
				rowMin = cur[i]
			}
		}
		if rowMin > bound {
			return -1
		}
		prev, cur = cur, prev
	}
	if prev[len(ra)] > bound {
		return -1
	}
	return prev[len(ra)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
