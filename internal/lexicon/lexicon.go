package lexicon

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/oraculo-ai/oraculo/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry maps one surface term to a canonical concept and, when bound, to a
// concrete identifier on the authorized resource.
type Entry struct {
	Term       string
	Concept    models.Concept
	Kind       models.EntityKind
	Table      string
	Column     string
	// Aggregate names the SQL aggregate a metric concept implies (count, sum).
	// Empty for dimensions and attribute concepts.
	Aggregate  string
	Confidence float64
	Learned    bool
}

// Table describes one authorized relational resource and its semantic columns.
type Table struct {
	Name    string
	Schema  string
	Aliases []string
	// Columns maps a semantic key (nome, email, celular, estado, cidade, id,
	// valor, data) to the physical column name.
	Columns map[string]string
}

// Column returns the physical column for a semantic key, or "".
func (t Table) Column(key string) string {
	return t.Columns[key]
}

// Snapshot is an immutable read view of the lexicon. All maps it references
// are never mutated after publication; readers may hold a snapshot for the
// duration of a pipeline pass without coordination.
type Snapshot struct {
	Version       uint64
	terms         map[string]Entry
	phrases       []string // multi-word terms, longest first
	abbreviations map[string]string
	corrections   map[string]string
	vocabulary    []string
	tables        map[models.Concept]Table
	stopwords     map[string]bool
}

// Lexicon is the process-wide term table: a static seed plus learned entries.
// Reads take a snapshot; the rare writes clone-and-swap so a reader never
// observes a partially written entry.
type Lexicon struct {
	mu      sync.RWMutex
	current *Snapshot
}

// New builds a lexicon from the built-in seed.
func New() *Lexicon {
	lex := &Lexicon{}
	lex.current = buildSeedSnapshot()
	return lex
}

// Snapshot returns the current read view.
func (l *Lexicon) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Learn adds or reinforces a term→concept mapping. An existing mapping is only
// replaced when the new confidence is at least as high; lower-confidence
// observations reinforce nothing and are dropped.
func (l *Lexicon) Learn(term string, entry Entry) bool {
	folded := Fold(term)
	if folded == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.current.terms[folded]; ok && existing.Confidence > entry.Confidence {
		return false
	}
	entry.Term = folded
	entry.Learned = true

	next := l.current.clone()
	next.terms[folded] = entry
	if strings.Contains(folded, " ") {
		next.phrases = insertPhrase(next.phrases, folded)
	}
	next.vocabulary = append(next.vocabulary, folded)
	next.Version++
	l.current = next
	return true
}

// LearnCorrection records a typo→correct pair so the normalizer can apply it
// directly instead of re-deriving it by edit distance.
func (l *Lexicon) LearnCorrection(typo, correct string) bool {
	typo, correct = Fold(typo), Fold(correct)
	if typo == "" || correct == "" || typo == correct {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.current.clone()
	next.corrections[typo] = correct
	next.Version++
	l.current = next
	return true
}

// Lookup resolves a single folded term.
func (s *Snapshot) Lookup(term string) (Entry, bool) {
	entry, ok := s.terms[Fold(term)]
	return entry, ok
}

// LookupPhrase resolves the longest multi-word term starting at tokens[start],
// returning the entry and how many tokens it consumed (0 when none matched).
func (s *Snapshot) LookupPhrase(tokens []string, start int) (Entry, int) {
	for _, phrase := range s.phrases {
		words := strings.Split(phrase, " ")
		if start+len(words) > len(tokens) {
			continue
		}
		match := true
		for i, w := range words {
			if tokens[start+i] != w {
				match = false
				break
			}
		}
		if match {
			return s.terms[phrase], len(words)
		}
	}
	return Entry{}, 0
}

// TableFor returns the authorized table bound to a concept.
func (s *Snapshot) TableFor(concept models.Concept) (Table, bool) {
	t, ok := s.tables[concept]
	return t, ok
}

// Correction returns a learned typo correction for the folded term.
func (s *Snapshot) Correction(term string) (string, bool) {
	c, ok := s.corrections[Fold(term)]
	return c, ok
}

// Abbreviation returns the expansion for an abbreviated token.
func (s *Snapshot) Abbreviation(term string) (string, bool) {
	a, ok := s.abbreviations[term]
	return a, ok
}

// Vocabulary returns the correction candidate list for fuzzy matching.
func (s *Snapshot) Vocabulary() []string { return s.vocabulary }

// IsStopword reports whether the folded token carries no matching signal.
func (s *Snapshot) IsStopword(term string) bool { return s.stopwords[term] }

func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Version:       s.Version,
		terms:         make(map[string]Entry, len(s.terms)+1),
		phrases:       append([]string(nil), s.phrases...),
		abbreviations: make(map[string]string, len(s.abbreviations)),
		corrections:   make(map[string]string, len(s.corrections)+1),
		vocabulary:    append([]string(nil), s.vocabulary...),
		tables:        s.tables, // static after seed
		stopwords:     s.stopwords,
	}
	for k, v := range s.terms {
		next.terms[k] = v
	}
	for k, v := range s.abbreviations {
		next.abbreviations[k] = v
	}
	for k, v := range s.corrections {
		next.corrections[k] = v
	}
	return next
}

func insertPhrase(phrases []string, phrase string) []string {
	phrases = append(phrases, phrase)
	sort.Slice(phrases, func(i, j int) bool {
		li, lj := len(strings.Split(phrases[i], " ")), len(strings.Split(phrases[j], " "))
		if li != lj {
			return li > lj
		}
		return phrases[i] < phrases[j]
	})
	return phrases
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold lowercases a term and strips diacritics so lookups are case and
// accent insensitive.
func Fold(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	folded, _, err := transform.String(foldTransformer, term)
	if err != nil {
		return term
	}
	return folded
}
