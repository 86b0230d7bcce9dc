package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oraculo-ai/oraculo/internal/interpreter"
)

const executorTimeout = 10 * time.Second

// ReadOnlyExecutor runs candidate queries against the CRM database. It
// double-checks that the statement is a plain SELECT before touching the
// pool, independent of the builder's own guarantees.
type ReadOnlyExecutor struct {
	db *DB
}

var _ interpreter.QueryExecutor = (*ReadOnlyExecutor)(nil)

// NewReadOnlyExecutor creates an executor over the given connection pool.
func NewReadOnlyExecutor(db *DB) *ReadOnlyExecutor {
	return &ReadOnlyExecutor{db: db}
}

// Execute runs the query with its positional arguments and returns rows as
// column-keyed maps.
func (e *ReadOnlyExecutor) Execute(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return nil, fmt.Errorf("refusing non-select statement")
	}

	ctx, cancel := context.WithTimeout(ctx, executorTimeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return results, nil
}
