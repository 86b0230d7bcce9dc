package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// New creates a database connection pool and verifies connectivity
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// EnsureSchema creates the memory engine tables when they do not exist yet.
// Idempotent; safe to run on every startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id UUID PRIMARY KEY,
			response_format TEXT NOT NULL DEFAULT 'tabela',
			format_scores JSONB NOT NULL DEFAULT '{}',
			interaction_style TEXT NOT NULL DEFAULT 'conversacional',
			favorite_metrics JSONB NOT NULL DEFAULT '{}',
			interaction_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS contextual_memories (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			content TEXT NOT NULL,
			context_type TEXT NOT NULL,
			importance INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contextual_memories_user
			ON contextual_memories (user_id, importance DESC, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS language_patterns (
			user_id UUID NOT NULL,
			term TEXT NOT NULL,
			concept TEXT NOT NULL,
			frequency INT NOT NULL DEFAULT 1,
			last_used TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, term)
		)`,
		`CREATE TABLE IF NOT EXISTS problem_contexts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			problem_type TEXT NOT NULL,
			question TEXT NOT NULL,
			resolution TEXT NOT NULL DEFAULT '',
			query_pattern TEXT NOT NULL DEFAULT '',
			success_rating INT NOT NULL DEFAULT 3,
			resolved BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_problem_contexts_user
			ON problem_contexts (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			feedback TEXT NOT NULL DEFAULT '',
			sentiment DOUBLE PRECISION NOT NULL DEFAULT 0,
			intent TEXT NOT NULL DEFAULT '',
			candidate_query TEXT NOT NULL DEFAULT '',
			repeated BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user
			ON interactions (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS lexicon_terms (
			term TEXT PRIMARY KEY,
			concept TEXT NOT NULL,
			kind TEXT NOT NULL,
			table_name TEXT NOT NULL DEFAULT '',
			column_name TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1,
			observations INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS lexicon_corrections (
			typo TEXT PRIMARY KEY,
			correct TEXT NOT NULL,
			observations INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
