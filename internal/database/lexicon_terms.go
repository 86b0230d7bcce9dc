package database

import (
	"context"
	"fmt"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// LexiconRepository persists learned lexicon terms and typo corrections so a
// restarted process can rebuild what it learned.
type LexiconRepository struct {
	db *DB
}

// NewLexiconRepository creates a new lexicon repository
func NewLexiconRepository(db *DB) *LexiconRepository {
	return &LexiconRepository{db: db}
}

// ObserveTerm records one observation of a learned term→concept mapping and
// returns the total observation count.
func (r *LexiconRepository) ObserveTerm(ctx context.Context, entry lexicon.Entry) (int, error) {
	query := `
		INSERT INTO lexicon_terms (term, concept, kind, table_name, column_name, confidence, observations)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (term) DO UPDATE SET
			observations = lexicon_terms.observations + 1,
			confidence = GREATEST(lexicon_terms.confidence, EXCLUDED.confidence)
		RETURNING observations
	`
	var observations int
	err := r.db.QueryRowContext(ctx, query,
		entry.Term,
		entry.Concept,
		entry.Kind,
		entry.Table,
		entry.Column,
		entry.Confidence,
	).Scan(&observations)
	if err != nil {
		return 0, fmt.Errorf("failed to observe lexicon term: %w", err)
	}
	return observations, nil
}

// ObserveCorrection records one observation of an accepted typo correction and
// returns the total observation count. Corrections seen often enough get
// promoted into the in-process lexicon by the caller.
func (r *LexiconRepository) ObserveCorrection(ctx context.Context, typo, correct string) (int, error) {
	query := `
		INSERT INTO lexicon_corrections (typo, correct, observations)
		VALUES ($1, $2, 1)
		ON CONFLICT (typo) DO UPDATE SET
			observations = lexicon_corrections.observations + 1,
			correct = EXCLUDED.correct
		RETURNING observations
	`
	var observations int
	if err := r.db.QueryRowContext(ctx, query, typo, correct).Scan(&observations); err != nil {
		return 0, fmt.Errorf("failed to observe correction: %w", err)
	}
	return observations, nil
}

// LoadLearned replays persisted terms and promoted corrections into the
// lexicon. Called once at startup.
func (r *LexiconRepository) LoadLearned(ctx context.Context, lex *lexicon.Lexicon, promotionFloor int) (int, error) {
	loaded := 0

	rows, err := r.db.QueryContext(ctx,
		`SELECT term, concept, kind, table_name, column_name, confidence FROM lexicon_terms`)
	if err != nil {
		return 0, fmt.Errorf("failed to load lexicon terms: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var entry lexicon.Entry
		var concept, kind string
		if err := rows.Scan(&entry.Term, &concept, &kind, &entry.Table, &entry.Column, &entry.Confidence); err != nil {
			return loaded, fmt.Errorf("failed to scan lexicon term: %w", err)
		}
		entry.Concept = models.Concept(concept)
		entry.Kind = models.EntityKind(kind)
		if lex.Learn(entry.Term, entry) {
			loaded++
		}
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("failed to iterate lexicon terms: %w", err)
	}

	corrRows, err := r.db.QueryContext(ctx,
		`SELECT typo, correct FROM lexicon_corrections WHERE observations >= $1`, promotionFloor)
	if err != nil {
		return loaded, fmt.Errorf("failed to load corrections: %w", err)
	}
	defer func() { _ = corrRows.Close() }()
	for corrRows.Next() {
		var typo, correct string
		if err := corrRows.Scan(&typo, &correct); err != nil {
			return loaded, fmt.Errorf("failed to scan correction: %w", err)
		}
		if lex.LearnCorrection(typo, correct) {
			loaded++
		}
	}
	if err := corrRows.Err(); err != nil {
		return loaded, fmt.Errorf("failed to iterate corrections: %w", err)
	}
	return loaded, nil
}
