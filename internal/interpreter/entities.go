package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// ExtractedEntities groups everything the entity layer pulled from a question.
type ExtractedEntities struct {
	Metrics     []models.Entity
	Dimensions  []models.Entity
	Filters     []models.Filter
	Comparators []string
	Ambiguities []string
}

// All returns metrics and dimensions in extraction order.
func (e *ExtractedEntities) All() []models.Entity {
	out := make([]models.Entity, 0, len(e.Metrics)+len(e.Dimensions))
	out = append(out, e.Metrics...)
	out = append(out, e.Dimensions...)
	return out
}

// PrimaryTable picks the table the candidate query will run against: the
// first accessible dimension's table, falling back to the first accessible
// metric's.
func (e *ExtractedEntities) PrimaryTable() string {
	for _, ent := range e.Dimensions {
		if ent.Accessible && ent.Table != "" {
			return ent.Table
		}
	}
	for _, ent := range e.Metrics {
		if ent.Accessible && ent.Table != "" {
			return ent.Table
		}
	}
	return ""
}

// MeanConfidence is the average confidence over all resolved entities;
// 0 when nothing resolved.
func (e *ExtractedEntities) MeanConfidence() float64 {
	all := e.All()
	if len(all) == 0 {
		return 0
	}
	sum := 0.0
	for _, ent := range all {
		sum += ent.Confidence
	}
	return sum / float64(len(all))
}

// comparatorOps maps fused comparator tokens to their operator.
var comparatorOps = map[string]models.ComparatorOp{
	"acima_de":     models.OpGreater,
	"maior_que":    models.OpGreater,
	"maior":        models.OpGreater,
	"abaixo_de":    models.OpLess,
	"menor_que":    models.OpLess,
	"menor":        models.OpLess,
	"igual_a":      models.OpEqual,
	"diferente_de": models.OpNotEqual,
}

const fuzzyEntityConfidence = 0.7

var (
	numericRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	digitsRe  = regexp.MustCompile(`\D`)
)

// reservedTokens never become residual text filters.
var reservedTokens = map[string]bool{
	"qual": true, "quais": true, "quem": true, "como": true, "onde": true,
	"quando": true, "mostra": true, "mostrar": true, "listar": true,
	"buscar": true, "busca": true, "encontrar": true, "localizar": true,
	"cadastrados": true, "cadastradas": true, "entre": true, "base": true,
}

// ExtractEntities resolves tokens through the lexicon into metrics,
// dimensions, filters and comparators. Resolution order: longest multi-word
// phrase first, then single token, then a fuzzy fallback bounded by the same
// edit-distance rule as the normalizer. temporalTokens holds the nq.Tokens
// indices the temporal resolver already claimed; those never become entities
// or filter values.
func ExtractEntities(nq *NormalizedQuestion, snap *lexicon.Snapshot, editBound int, temporalTokens []int) *ExtractedEntities {
	out := &ExtractedEntities{}
	tokens := nq.Tokens

	matchTokens := make([]string, len(tokens))
	for i, t := range tokens {
		matchTokens[i] = t.Norm
	}

	consumed := make([]bool, len(tokens))
	for _, i := range temporalTokens {
		if i >= 0 && i < len(consumed) {
			consumed[i] = true
		}
	}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Quoted || tok.Stopword || consumed[i] {
			continue
		}

		// Multi-word phrase match wins over single tokens.
		if entry, n := snap.LookupPhrase(matchTokens, i); n > 0 {
			out.add(entry, strings.Join(matchTokens[i:i+n], " "), i, entry.Confidence)
			for j := i; j < i+n; j++ {
				consumed[j] = true
			}
			continue
		}
		if entry, ok := snap.Lookup(tok.Norm); ok {
			out.add(entry, tok.Norm, i, entry.Confidence)
			consumed[i] = true
			continue
		}
		if op, ok := comparatorOps[tok.Norm]; ok {
			out.Comparators = append(out.Comparators, tok.Norm)
			consumed[i] = true
			// comparator + adjacent numeric token forms a filter
			if i+1 < len(tokens) && numericRe.MatchString(tokens[i+1].Norm) {
				out.Filters = append(out.Filters, models.Filter{
					Kind:       models.FilterNumeric,
					Comparator: op,
					Value:      normalizeNumber(tokens[i+1].Norm),
				})
				consumed[i+1] = true
			} else {
				out.Ambiguities = append(out.Ambiguities, fmt.Sprintf("comparador sem valor: %s", tok.Norm))
			}
			continue
		}
		if tok.Norm == "entre" {
			if f, n, ok := numericRange(matchTokens, i); ok {
				out.Filters = append(out.Filters, f)
				for j := i; j < i+n; j++ {
					consumed[j] = true
				}
			} else if i+1 < len(tokens) && numericRe.MatchString(matchTokens[i+1]) {
				out.Ambiguities = append(out.Ambiguities, "intervalo incompleto: ambos os limites sao necessarios")
			}
			continue
		}
		// Fuzzy fallback against lexicon terms, reduced confidence.
		if len(tok.Norm) >= 4 && !tok.LowConfidence {
			if fixed, ok := correctSpelling(tok.Norm, snap.Vocabulary(), editBound); ok {
				if entry, found := snap.Lookup(fixed); found {
					out.add(entry, tok.Norm, i, fuzzyEntityConfidence)
					consumed[i] = true
					continue
				}
			}
		}
	}

	out.resolveAccessibility()
	out.extractValueFilters(nq, snap, consumed)
	return out
}

func (e *ExtractedEntities) add(entry lexicon.Entry, surface string, pos int, confidence float64) {
	entity := models.Entity{
		Surface:    surface,
		Concept:    entry.Concept,
		Kind:       entry.Kind,
		Table:      entry.Table,
		Column:     entry.Column,
		Aggregate:  entry.Aggregate,
		Position:   pos,
		Confidence: confidence,
	}
	if entry.Kind == models.EntityMetric {
		e.Metrics = append(e.Metrics, entity)
	} else {
		e.Dimensions = append(e.Dimensions, entity)
	}
}

// extractValueFilters picks up quoted strings, loose numbers and residual
// proper-name text as filter values, using the original system's heuristics
// (email when it contains @, phone when 8+ digits, name otherwise).
func (e *ExtractedEntities) extractValueFilters(nq *NormalizedQuestion, snap *lexicon.Snapshot, consumed []bool) {
	var residual []string
	for i, tok := range nq.Tokens {
		if tok.Quoted {
			e.Filters = append(e.Filters, textFilter(tok.Norm))
			continue
		}
		if consumed[i] || tok.Stopword {
			continue
		}
		if numericRe.MatchString(tok.Norm) {
			switch {
			case len(tok.Norm) >= 8:
				// 8+ digit runs are phone numbers, not amounts.
				e.Filters = append(e.Filters, textFilter(tok.Norm))
			case !bareYearRe.MatchString(tok.Norm):
				e.Filters = append(e.Filters, models.Filter{
					Kind:       models.FilterNumeric,
					Comparator: models.OpEqual,
					Value:      normalizeNumber(tok.Norm),
				})
			}
			continue
		}
		if reservedTokens[tok.Norm] || triggerTokens[tok.Norm] || temporalWords[tok.Norm] || tok.Norm == "entre" {
			continue
		}
		if strings.Contains(tok.Norm, "@") || len(digitsRe.ReplaceAllString(tok.Norm, "")) >= 8 {
			e.Filters = append(e.Filters, textFilter(tok.Norm))
			continue
		}
		if len(tok.Norm) > 1 && !tok.LowConfidence && !strings.Contains(tok.Norm, "_") {
			residual = append(residual, tok.Norm)
		}
	}
	// Sequential leftover words look like a proper name ("contato de Maria
	// Silva"); treat the run as one text filter, but only when the primary
	// table actually carries the column the filter would target.
	if len(residual) > 0 {
		f := textFilter(strings.Join(residual, " "))
		if e.supportsColumn(snap, f.Column) {
			e.Filters = append(e.Filters, f)
		}
	}
}

// supportsColumn reports whether the primary table defines the semantic
// column key.
func (e *ExtractedEntities) supportsColumn(snap *lexicon.Snapshot, key string) bool {
	name := e.PrimaryTable()
	if name == "" {
		return false
	}
	for _, ent := range e.All() {
		if ent.Table != name {
			continue
		}
		if t, ok := snap.TableFor(ent.Concept); ok && t.Column(key) != "" {
			return true
		}
	}
	return false
}

func textFilter(value string) models.Filter {
	if strings.Contains(value, "@") {
		return models.Filter{
			Kind:            models.FilterText,
			Comparator:      models.OpEqual,
			Column:          "email",
			Value:           value,
			CaseInsensitive: true,
		}
	}
	digits := digitsRe.ReplaceAllString(value, "")
	if len(digits) >= 8 {
		return models.Filter{
			Kind:            models.FilterText,
			Comparator:      models.OpLike,
			Column:          "celular",
			Value:           "%" + digits + "%",
			NormalizeDigits: true,
		}
	}
	return models.Filter{
		Kind:            models.FilterText,
		Comparator:      models.OpLike,
		Column:          "nome",
		Value:           "%" + value + "%",
		CaseInsensitive: true,
	}
}

// numericRange parses "entre X e Y"; both bounds must be present or the
// filter is discarded.
func numericRange(tokens []string, i int) (models.Filter, int, bool) {
	if i+3 >= len(tokens) {
		return models.Filter{}, 0, false
	}
	if !numericRe.MatchString(tokens[i+1]) || tokens[i+2] != "e" || !numericRe.MatchString(tokens[i+3]) {
		return models.Filter{}, 0, false
	}
	return models.Filter{
		Kind:       models.FilterNumeric,
		Comparator: models.OpBetween,
		Value:      normalizeNumber(tokens[i+1]),
		ValueEnd:   normalizeNumber(tokens[i+3]),
	}, 4, true
}

// resolveAccessibility marks each entity as usable for query synthesis.
// Aggregate metrics without their own table piggyback on the primary table;
// everything else needs a concrete lexicon binding.
func (e *ExtractedEntities) resolveAccessibility() {
	hasTable := false
	for i := range e.Dimensions {
		if e.Dimensions[i].Table != "" {
			e.Dimensions[i].Accessible = true
			hasTable = true
		}
	}
	for i := range e.Metrics {
		m := &e.Metrics[i]
		switch {
		case m.Table != "":
			m.Accessible = true
			hasTable = true
		case m.Aggregate == "count" && hasTable:
			m.Accessible = true
		}
	}
	for _, ent := range e.All() {
		if !ent.Accessible {
			e.Ambiguities = append(e.Ambiguities,
				fmt.Sprintf("conceito sem tabela acessivel: %s (%s)", ent.Concept, ent.Surface))
		}
	}
}

func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, ",", ".")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}
