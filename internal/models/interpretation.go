package models

import (
	"time"
)

// Intent is the closed set of question categories the classifier can emit.
type Intent string

const (
	IntentQuantityLookup Intent = "QUANTITY_LOOKUP"
	IntentListAll        Intent = "LIST_ALL"
	IntentDistribution   Intent = "DISTRIBUTION"
	IntentComparePeriods Intent = "COMPARE_PERIODS"
	IntentForecastTrend  Intent = "FORECAST_TREND"
	IntentExplainCause   Intent = "EXPLAIN_CAUSE"
	IntentSummaryReport  Intent = "SUMMARY_REPORT"
	IntentSpecificLookup Intent = "SPECIFIC_LOOKUP"
	IntentUnknown        Intent = "UNKNOWN"
)

// Concept is a canonical domain meaning to which multiple surface terms resolve.
type Concept string

const (
	ConceptContact  Concept = "contato"
	ConceptSale     Concept = "venda"
	ConceptProduct  Concept = "produto"
	ConceptQuantity Concept = "quantidade"
	ConceptValue    Concept = "valor"
	ConceptRevenue  Concept = "faturamento"
	ConceptProfit   Concept = "lucro"
	ConceptStock    Concept = "estoque"
	ConceptState    Concept = "estado"
	ConceptCity     Concept = "cidade"
	ConceptName     Concept = "nome"
	ConceptEmail    Concept = "email"
	ConceptPhone    Concept = "celular"
)

// EntityKind distinguishes what role a resolved entity plays in a question.
type EntityKind string

const (
	EntityMetric    EntityKind = "metric"
	EntityDimension EntityKind = "dimension"
)

// Entity is a surface term resolved through the lexicon to a canonical concept
// and, when the concept is bound to the authorized resource, to a concrete
// table/column identifier.
type Entity struct {
	Surface    string     `json:"surface"`
	Concept    Concept    `json:"concept"`
	Kind       EntityKind `json:"kind"`
	Table      string     `json:"table,omitempty"`
	Column     string     `json:"column,omitempty"`
	Aggregate  string     `json:"aggregate,omitempty"`
	Position   int        `json:"position"`
	Confidence float64    `json:"confidence"`
	// Accessible is false when the concept resolved but has no table mapping
	// the caller is authorized for; such entities stay out of the candidate query.
	Accessible bool `json:"accessible"`
}

// ComparatorOp is a whitelisted filter operator.
type ComparatorOp string

const (
	OpEqual        ComparatorOp = "="
	OpNotEqual     ComparatorOp = "<>"
	OpLike         ComparatorOp = "LIKE"
	OpGreater      ComparatorOp = ">"
	OpGreaterEqual ComparatorOp = ">="
	OpLess         ComparatorOp = "<"
	OpLessEqual    ComparatorOp = "<="
	OpBetween      ComparatorOp = "BETWEEN"
)

// FilterKind tells the query builder how to treat the filter value.
type FilterKind string

const (
	FilterNumeric FilterKind = "numeric"
	FilterText    FilterKind = "text"
	FilterDate    FilterKind = "date"
)

// Filter is a detected restriction: comparator plus value or range.
type Filter struct {
	Kind            FilterKind   `json:"kind"`
	Comparator      ComparatorOp `json:"comparator"`
	Column          string       `json:"column,omitempty"`
	Value           string       `json:"value"`
	ValueEnd        string       `json:"value_end,omitempty"`
	CaseInsensitive bool         `json:"case_insensitive,omitempty"`
	NormalizeDigits bool         `json:"normalize_digits,omitempty"`
}

// TemporalKind classifies a temporal specification.
type TemporalKind string

const (
	TemporalNone     TemporalKind = "none"
	TemporalAbsolute TemporalKind = "absolute"
	TemporalRelative TemporalKind = "relative"
	TemporalRange    TemporalKind = "range"
)

// TemporalSpec is the resolved temporal component of a question. Start and End
// are inclusive calendar-day bounds when determinable.
type TemporalSpec struct {
	Kind       TemporalKind `json:"kind"`
	Expression string       `json:"expression,omitempty"`
	Start      *time.Time   `json:"start,omitempty"`
	End        *time.Time   `json:"end,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Interpretation is the structured output of the pipeline for one question.
// It is created per question and not persisted unless promoted into memory.
type Interpretation struct {
	Question    string            `json:"question"`
	Normalized  string            `json:"normalized"`
	Corrections map[string]string `json:"corrections,omitempty"`

	Intent           Intent  `json:"intent"`
	IntentConfidence float64 `json:"intent_confidence"`

	Metrics     []Entity `json:"metrics"`
	Dimensions  []Entity `json:"dimensions"`
	Filters     []Filter `json:"filters"`
	Comparators []string `json:"comparators,omitempty"`

	Temporal TemporalSpec `json:"temporal"`

	// Confidence is the per-intent weighted combination of stage confidences.
	Confidence float64 `json:"confidence"`

	// CandidateQuery is only set when Confidence clears the direct-execution
	// threshold and at least one entity resolved to an accessible table. It is
	// always a read-only, single-table, row-capped statement.
	CandidateQuery string `json:"candidate_query,omitempty"`
	QueryArgs      []any  `json:"query_args,omitempty"`

	Ambiguities []string `json:"ambiguities,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NeedsFallback reports whether the interpretation should be delegated to the
// external LLM collaborator instead of executed directly.
func (i *Interpretation) NeedsFallback(threshold float64) bool {
	return i.CandidateQuery == "" || i.Confidence < threshold
}
