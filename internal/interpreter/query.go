package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// Row caps per intent. The candidate query is bounded regardless of what the
// question asked for.
const (
	maxRowsQuantity = 1
	maxRowsSpecific = 5
	maxRowsList     = 100
	maxRowsDefault  = 50
)

// identRe is the only gate through which a string reaches SQL identifier
// position. Values never do; they travel as placeholder args.
var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QueryPlan is the validated intermediate between interpretation and SQL.
// Build rejects any plan whose identifiers fail the whitelist, so an entity
// that slipped through with a bad binding can never reach the database.
type QueryPlan struct {
	Table     lexicon.Table
	Intent    models.Intent
	Aggregate string // count or sum; empty means plain select
	AggColumn string // column under the aggregate, required for sum
	Columns   []string
	GroupBy   string
	Filters   []models.Filter
	Temporal  models.TemporalSpec
	OrderBy   string
	OrderDesc bool
}

// Build renders the plan as a single-table read-only statement with $n
// placeholders. It returns an error instead of a statement whenever any
// identifier fails validation or a filter lacks a resolvable column.
func (p *QueryPlan) Build() (string, []any, error) {
	if err := validIdent(p.Table.Name); err != nil {
		return "", nil, err
	}
	if p.Table.Schema != "" {
		if err := validIdent(p.Table.Schema); err != nil {
			return "", nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case p.GroupBy != "":
		if err := validIdent(p.GroupBy); err != nil {
			return "", nil, err
		}
		agg := "COUNT(*)"
		if p.Aggregate == "sum" {
			if err := validIdent(p.AggColumn); err != nil {
				return "", nil, err
			}
			agg = fmt.Sprintf("COALESCE(SUM(%s), 0)", p.AggColumn)
		}
		fmt.Fprintf(&sb, "%s, %s AS total", p.GroupBy, agg)
	case p.Aggregate == "count":
		sb.WriteString("COUNT(*) AS total")
	case p.Aggregate == "sum":
		if err := validIdent(p.AggColumn); err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&sb, "COALESCE(SUM(%s), 0) AS total", p.AggColumn)
	case len(p.Columns) > 0:
		cols := make([]string, 0, len(p.Columns))
		for _, c := range p.Columns {
			if err := validIdent(c); err != nil {
				return "", nil, err
			}
			cols = append(cols, c)
		}
		sb.WriteString(strings.Join(cols, ", "))
	default:
		sb.WriteString("*")
	}

	sb.WriteString(" FROM ")
	sb.WriteString(p.qualifiedTable())

	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range p.Filters {
		col, err := p.filterColumn(f)
		if err != nil {
			return "", nil, err
		}
		expr := col
		if f.NormalizeDigits {
			expr = fmt.Sprintf("regexp_replace(%s, '\\D', '', 'g')", col)
		} else if f.CaseInsensitive {
			expr = fmt.Sprintf("UPPER(%s)", col)
		}
		value := f.Value
		if f.CaseInsensitive && !f.NormalizeDigits {
			value = strings.ToUpper(value)
		}
		switch f.Comparator {
		case models.OpBetween:
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN %s AND %s", expr, next(value), next(f.ValueEnd)))
		case models.OpLike:
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", expr, next(value)))
		case models.OpEqual, models.OpNotEqual, models.OpGreater, models.OpGreaterEqual, models.OpLess, models.OpLessEqual:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", expr, f.Comparator, next(value)))
		default:
			return "", nil, fmt.Errorf("comparador nao suportado: %q", f.Comparator)
		}
	}

	if dateCol := p.Table.Column("data"); dateCol != "" && p.Temporal.Kind != models.TemporalNone {
		if p.Temporal.Start != nil && p.Temporal.End != nil {
			clauses = append(clauses, fmt.Sprintf("%s BETWEEN %s AND %s",
				dateCol, next(*p.Temporal.Start), next(*p.Temporal.End)))
		} else if p.Temporal.Start != nil {
			clauses = append(clauses, fmt.Sprintf("%s >= %s", dateCol, next(*p.Temporal.Start)))
		}
	}

	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	switch {
	case p.GroupBy != "":
		fmt.Fprintf(&sb, " GROUP BY %s ORDER BY total DESC LIMIT %d", p.GroupBy, p.rowCap())
	case p.Aggregate == "":
		if p.OrderBy != "" {
			if err := validIdent(p.OrderBy); err != nil {
				return "", nil, err
			}
			sb.WriteString(" ORDER BY ")
			sb.WriteString(p.OrderBy)
			if p.OrderDesc {
				sb.WriteString(" DESC")
			}
		}
		fmt.Fprintf(&sb, " LIMIT %d", p.rowCap())
	}

	return sb.String(), args, nil
}

func (p *QueryPlan) qualifiedTable() string {
	if p.Table.Schema != "" {
		return p.Table.Schema + "." + p.Table.Name
	}
	return p.Table.Name
}

// filterColumn resolves a filter's semantic column key against the plan's
// table. Numeric filters without an explicit column fall back to the table's
// value column.
func (p *QueryPlan) filterColumn(f models.Filter) (string, error) {
	key := f.Column
	if key == "" {
		if f.Kind == models.FilterNumeric {
			key = "valor"
		} else {
			return "", fmt.Errorf("filtro sem coluna: %s", f.Kind)
		}
	}
	col := p.Table.Column(key)
	if col == "" {
		// key may already be a physical column name from a learned binding
		col = key
	}
	if err := validIdent(col); err != nil {
		return "", err
	}
	return col, nil
}

func (p *QueryPlan) rowCap() int {
	switch p.Intent {
	case models.IntentQuantityLookup:
		return maxRowsQuantity
	case models.IntentSpecificLookup:
		return maxRowsSpecific
	case models.IntentListAll:
		return maxRowsList
	default:
		return maxRowsDefault
	}
}

func validIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("identificador invalido: %q", name)
	}
	return nil
}
