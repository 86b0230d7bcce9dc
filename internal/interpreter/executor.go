package interpreter

import "context"

// QueryExecutor runs a candidate query against the CRM store. The pipeline
// itself never executes anything; adapters decide whether and where a
// candidate query runs.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, args []any) ([]map[string]any, error)
}
