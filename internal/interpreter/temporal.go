package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/oraculo-ai/oraculo/internal/models"
)

// temporalUnrecognized is reported when a question uses temporal language the
// resolver cannot anchor to a concrete range.
const temporalUnrecognized = "referencia temporal nao reconhecida"

var (
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	bareYearRe     = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// monthNumbers maps Portuguese month names to their number.
var monthNumbers = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June,
	"julho": time.July, "agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November, "dezembro": time.December,
}

// temporalWords are tokens that suggest temporal language even when no
// pattern matches; they drive the ambiguity note instead of a guessed bound.
var temporalWords = map[string]bool{
	"dia": true, "dias": true, "semana": true, "semanas": true,
	"mes": true, "meses": true, "ano": true, "anos": true,
	"periodo": true, "data": true, "trimestre": true,
}

// ResolveTemporal detects and normalizes temporal references over the
// normalized tokens. Bounds are inclusive calendar days anchored at the
// reference instant. Unrecognized temporal-looking tokens produce kind=none
// with an ambiguity note rather than a guessed bound.
//
// The second return value lists the indices into nq.Tokens the matched
// pattern spans, so later stages never re-read the 30 in "ultimos 30 dias"
// as a standalone value.
func ResolveTemporal(nq *NormalizedQuestion, now time.Time) (models.TemporalSpec, []int, []string) {
	spec := models.TemporalSpec{Kind: models.TemporalNone}
	var ambiguities []string
	tokens := make([]string, 0, len(nq.Tokens))
	idx := make([]int, 0, len(nq.Tokens))
	for i, t := range nq.Tokens {
		if t.Stopword || t.Quoted {
			continue
		}
		tokens = append(tokens, t.Norm)
		idx = append(idx, i)
	}
	today := truncateDay(now)

	sawTemporalWord := false
	for i, tok := range tokens {
		switch tok {
		case "hoje":
			return relative(tok, today, today), idx[i : i+1], nil
		case "ontem":
			d := today.AddDate(0, 0, -1)
			return relative(tok, d, d), idx[i : i+1], nil
		case "semana_passada":
			// Previous ISO week, Monday through Sunday inclusive.
			weekday := int(today.Weekday())
			if weekday == 0 {
				weekday = 7
			}
			monday := today.AddDate(0, 0, -(weekday - 1 + 7))
			return relative(tok, monday, monday.AddDate(0, 0, 6)), idx[i : i+1], nil
		case "mes_passado":
			firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
			start := firstOfThis.AddDate(0, -1, 0)
			return relative(tok, start, firstOfThis.AddDate(0, 0, -1)), idx[i : i+1], nil
		case "ano_passado":
			start := time.Date(today.Year()-1, time.January, 1, 0, 0, 0, 0, today.Location())
			return relative(tok, start, time.Date(today.Year()-1, time.December, 31, 0, 0, 0, 0, today.Location())), idx[i : i+1], nil
		case "ultimos":
			// "ultimos N dias"
			if i+2 < len(tokens) {
				if n, err := strconv.Atoi(tokens[i+1]); err == nil && n > 0 &&
					(tokens[i+2] == "dias" || tokens[i+2] == "dia") {
					expr := fmt.Sprintf("ultimos %d dias", n)
					return relative(expr, today.AddDate(0, 0, -n), today), idx[i : i+3], nil
				}
			}
			sawTemporalWord = true
		case "primeiro_trimestre", "segundo_trimestre", "terceiro_trimestre", "quarto_trimestre":
			q := map[string]int{"primeiro_trimestre": 1, "segundo_trimestre": 2, "terceiro_trimestre": 3, "quarto_trimestre": 4}[tok]
			start := time.Date(today.Year(), time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, today.Location())
			end := start.AddDate(0, 3, -1)
			spec = models.TemporalSpec{Kind: models.TemporalRange, Expression: tok, Start: &start, End: &end, Confidence: 1.0}
			return spec, idx[i : i+1], nil
		case "entre":
			if s, e, expr, ok := monthRange(tokens, i, today); ok {
				spec = models.TemporalSpec{Kind: models.TemporalRange, Expression: expr, Start: &s, End: &e, Confidence: 1.0}
				return spec, idx[i : i+4], nil
			}
		}

		if m := dayMonthYearRe.FindStringSubmatch(tok); m != nil {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
				d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
				spec = models.TemporalSpec{Kind: models.TemporalAbsolute, Expression: tok, Start: &d, End: &d, Confidence: 1.0}
				return spec, idx[i : i+1], nil
			}
			ambiguities = append(ambiguities, fmt.Sprintf("data invalida: %s", tok))
			continue
		}
		if bareYearRe.MatchString(tok) {
			year, _ := strconv.Atoi(tok)
			start := time.Date(year, time.January, 1, 0, 0, 0, 0, today.Location())
			end := time.Date(year, time.December, 31, 0, 0, 0, 0, today.Location())
			spec = models.TemporalSpec{Kind: models.TemporalAbsolute, Expression: tok, Start: &start, End: &end, Confidence: 1.0}
			return spec, idx[i : i+1], nil
		}
		if temporalWords[tok] {
			sawTemporalWord = true
		}
	}

	if sawTemporalWord {
		ambiguities = append(ambiguities, temporalUnrecognized)
		spec.Confidence = 0.3
	}
	return spec, nil, ambiguities
}

// monthRange resolves "entre <mes> e <mes>" into an inclusive calendar range
// within the current year.
func monthRange(tokens []string, i int, today time.Time) (time.Time, time.Time, string, bool) {
	if i+3 >= len(tokens) {
		return time.Time{}, time.Time{}, "", false
	}
	first, ok1 := monthNumbers[tokens[i+1]]
	if !ok1 || tokens[i+2] != "e" {
		return time.Time{}, time.Time{}, "", false
	}
	second, ok2 := monthNumbers[tokens[i+3]]
	if !ok2 {
		return time.Time{}, time.Time{}, "", false
	}
	start := time.Date(today.Year(), first, 1, 0, 0, 0, 0, today.Location())
	end := time.Date(today.Year(), second, 1, 0, 0, 0, 0, today.Location()).AddDate(0, 1, -1)
	expr := fmt.Sprintf("entre %s e %s", tokens[i+1], tokens[i+3])
	return start, end, expr, true
}

func relative(expr string, start, end time.Time) models.TemporalSpec {
	return models.TemporalSpec{
		Kind:       models.TemporalRelative,
		Expression: expr,
		Start:      &start,
		End:        &end,
		Confidence: 1.0,
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
