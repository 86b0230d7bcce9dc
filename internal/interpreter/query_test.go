package interpreter

import (
	"strings"
	"testing"
	"time"

	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

func contactsTable() lexicon.Table {
	snap := lexicon.New().Snapshot()
	t, _ := snap.TableFor(models.ConceptContact)
	return t
}

func salesTable() lexicon.Table {
	snap := lexicon.New().Snapshot()
	t, _ := snap.TableFor(models.ConceptSale)
	return t
}

func TestQueryPlanBuildCount(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:     contactsTable(),
		Intent:    models.IntentQuantityLookup,
		Aggregate: "count",
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	want := "SELECT COUNT(*) AS total FROM sysroh.tb_contatos"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestQueryPlanBuildFilters(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:  salesTable(),
		Intent: models.IntentListAll,
		Filters: []models.Filter{
			{Kind: models.FilterNumeric, Comparator: models.OpGreater, Value: "1000"},
		},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "valor_total > $1") {
		t.Errorf("numeric filter not bound to value column: %q", query)
	}
	if !strings.HasSuffix(query, "LIMIT 100") {
		t.Errorf("list query must be row capped: %q", query)
	}
	if len(args) != 1 || args[0] != "1000" {
		t.Errorf("args = %v, want [1000]", args)
	}
}

func TestQueryPlanBuildCaseInsensitiveText(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:  contactsTable(),
		Intent: models.IntentSpecificLookup,
		Filters: []models.Filter{
			{Kind: models.FilterText, Comparator: models.OpLike, Column: "nome", Value: "%maria%", CaseInsensitive: true},
		},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "UPPER(nome) LIKE $1") {
		t.Errorf("text filter not case-folded: %q", query)
	}
	if args[0] != "%MARIA%" {
		t.Errorf("arg not uppercased: %v", args[0])
	}
	if !strings.HasSuffix(query, "LIMIT 5") {
		t.Errorf("specific lookup must cap at 5 rows: %q", query)
	}
}

func TestQueryPlanBuildPhoneDigits(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:  contactsTable(),
		Intent: models.IntentSpecificLookup,
		Filters: []models.Filter{
			{Kind: models.FilterText, Comparator: models.OpLike, Column: "celular", Value: "%11987654321%", NormalizeDigits: true},
		},
	}
	query, _, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "regexp_replace(celular") {
		t.Errorf("phone filter should compare digits only: %q", query)
	}
}

func TestQueryPlanBuildBetween(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:  salesTable(),
		Intent: models.IntentListAll,
		Filters: []models.Filter{
			{Kind: models.FilterNumeric, Comparator: models.OpBetween, Value: "100", ValueEnd: "200"},
		},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "valor_total BETWEEN $1 AND $2") {
		t.Errorf("range not rendered: %q", query)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want two", args)
	}
}

func TestQueryPlanBuildTemporalRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	plan := QueryPlan{
		Table:     salesTable(),
		Intent:    models.IntentQuantityLookup,
		Aggregate: "sum",
		AggColumn: "valor_total",
		Temporal:  models.TemporalSpec{Kind: models.TemporalRelative, Start: &start, End: &end},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "COALESCE(SUM(valor_total), 0)") {
		t.Errorf("sum aggregate missing: %q", query)
	}
	if !strings.Contains(query, "data_venda BETWEEN $1 AND $2") {
		t.Errorf("temporal bounds not applied to date column: %q", query)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want two", args)
	}
}

func TestQueryPlanTemporalIgnoredWithoutDateColumn(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	plan := QueryPlan{
		Table:     contactsTable(),
		Intent:    models.IntentQuantityLookup,
		Aggregate: "count",
		Temporal:  models.TemporalSpec{Kind: models.TemporalRelative, Start: &start, End: &start},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Errorf("table without date column got a temporal clause: %q", query)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestQueryPlanBuildGroupBy(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:   contactsTable(),
		Intent:  models.IntentDistribution,
		GroupBy: "estado",
	}
	query, _, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	want := "SELECT estado, COUNT(*) AS total FROM sysroh.tb_contatos GROUP BY estado ORDER BY total DESC LIMIT 50"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
}

func TestQueryPlanRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		plan QueryPlan
	}{
		{
			name: "injected table name",
			plan: QueryPlan{Table: lexicon.Table{Name: "tb_contatos; DROP TABLE x"}},
		},
		{
			name: "injected column",
			plan: QueryPlan{
				Table:   contactsTable(),
				Columns: []string{"nome, (SELECT pass FROM users)"},
			},
		},
		{
			name: "injected group by",
			plan: QueryPlan{
				Table:   contactsTable(),
				GroupBy: "estado; --",
			},
		},
		{
			name: "injected filter column",
			plan: QueryPlan{
				Table: contactsTable(),
				Filters: []models.Filter{
					{Kind: models.FilterText, Comparator: models.OpEqual, Column: "nome='x' OR 1=1", Value: "y"},
				},
			},
		},
		{
			name: "uppercase identifier",
			plan: QueryPlan{Table: lexicon.Table{Name: "TB_CONTATOS"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := tt.plan.Build(); err == nil {
				t.Error("expected identifier rejection, got nil error")
			}
		})
	}
}

func TestQueryPlanValuesNeverInline(t *testing.T) {
	t.Parallel()

	plan := QueryPlan{
		Table:  contactsTable(),
		Intent: models.IntentSpecificLookup,
		Filters: []models.Filter{
			{Kind: models.FilterText, Comparator: models.OpLike, Column: "nome", Value: "%'; DROP TABLE tb_contatos; --%"},
		},
	}
	query, args, err := plan.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if strings.Contains(query, "DROP TABLE") {
		t.Errorf("filter value leaked into SQL text: %q", query)
	}
	if len(args) != 1 {
		t.Errorf("args = %v, want the value as a bind arg", args)
	}
}
