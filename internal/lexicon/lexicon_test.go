package lexicon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oraculo-ai/oraculo/internal/models"
)

func TestFold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Clientes", "clientes"},
		{"SÃO PAULO", "sao paulo"},
		{"relatório", "relatorio"},
		{"  espaço  ", "espaco"},
		{"já-normalizado", "ja-normalizado"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := Fold(tt.in); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeedLookup(t *testing.T) {
	t.Parallel()
	snap := New().Snapshot()

	tests := []struct {
		term    string
		concept models.Concept
		table   string
	}{
		{"cliente", models.ConceptContact, "tb_contatos"},
		{"clientes", models.ConceptContact, "tb_contatos"},
		{"comprador", models.ConceptContact, "tb_contatos"},
		{"vendas", models.ConceptSale, "tb_vendas"},
		{"faturamento", models.ConceptRevenue, "tb_vendas"},
		{"produtos", models.ConceptProduct, "tb_produtos"},
		{"estado", models.ConceptState, "tb_contatos"},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			t.Parallel()
			entry, ok := snap.Lookup(tt.term)
			if !ok {
				t.Fatalf("Lookup(%q) missed", tt.term)
			}
			if entry.Concept != tt.concept {
				t.Errorf("concept = %s, want %s", entry.Concept, tt.concept)
			}
			if entry.Table != tt.table {
				t.Errorf("table = %q, want %q", entry.Table, tt.table)
			}
		})
	}
}

func TestLookupIsAccentInsensitive(t *testing.T) {
	t.Parallel()
	snap := New().Snapshot()

	if _, ok := snap.Lookup("Clientés"); !ok {
		t.Error("accented lookup missed")
	}
}

func TestLookupPhraseLongestFirst(t *testing.T) {
	t.Parallel()
	lex := New()
	lex.Learn("razao social completa", Entry{Concept: models.ConceptName, Kind: models.EntityDimension, Confidence: 1.0})
	snap := lex.Snapshot()

	tokens := []string{"buscar", "razao", "social", "completa"}
	entry, n := snap.LookupPhrase(tokens, 1)
	if n != 3 {
		t.Fatalf("consumed %d tokens, want 3 (entry %+v)", n, entry)
	}
	if entry.Concept != models.ConceptName {
		t.Errorf("concept = %s, want %s", entry.Concept, models.ConceptName)
	}
}

func TestLearnNeverDowngrades(t *testing.T) {
	t.Parallel()
	lex := New()

	if !lex.Learn("freguesia", Entry{Concept: models.ConceptContact, Kind: models.EntityDimension, Confidence: 0.9}) {
		t.Fatal("first Learn rejected")
	}
	if lex.Learn("freguesia", Entry{Concept: models.ConceptSale, Kind: models.EntityDimension, Confidence: 0.5}) {
		t.Error("lower-confidence Learn replaced an existing mapping")
	}
	entry, ok := lex.Snapshot().Lookup("freguesia")
	if !ok || entry.Concept != models.ConceptContact {
		t.Errorf("mapping changed: %+v", entry)
	}
	if !entry.Learned {
		t.Error("learned entry not flagged")
	}
}

func TestLearnDoesNotMutateOldSnapshots(t *testing.T) {
	t.Parallel()
	lex := New()
	before := lex.Snapshot()

	lex.Learn("freguesia", Entry{Concept: models.ConceptContact, Kind: models.EntityDimension, Confidence: 1.0})

	if _, ok := before.Lookup("freguesia"); ok {
		t.Error("earlier snapshot observed a later write")
	}
	after := lex.Snapshot()
	if _, ok := after.Lookup("freguesia"); !ok {
		t.Error("new snapshot missing the learned term")
	}
	if after.Version <= before.Version {
		t.Errorf("version did not advance: %d -> %d", before.Version, after.Version)
	}
}

func TestLearnCorrection(t *testing.T) {
	t.Parallel()
	lex := New()

	if !lex.LearnCorrection("cleintes", "clientes") {
		t.Fatal("LearnCorrection rejected")
	}
	if got, ok := lex.Snapshot().Correction("cleintes"); !ok || got != "clientes" {
		t.Errorf("Correction(cleintes) = %q, %v", got, ok)
	}
	if lex.LearnCorrection("same", "same") {
		t.Error("identity correction accepted")
	}
	if lex.LearnCorrection("", "clientes") {
		t.Error("empty typo accepted")
	}
}

func TestConcurrentLearnAndLookup(t *testing.T) {
	t.Parallel()
	lex := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lex.Learn("freguesia", Entry{Concept: models.ConceptContact, Kind: models.EntityDimension, Confidence: 1.0})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := lex.Snapshot()
				snap.Lookup("clientes")
				snap.Lookup("freguesia")
			}
		}()
	}
	wg.Wait()
}

func TestLoadSeedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `terms:
  - term: freguesia
    concept: contato
    kind: dimension
    table: tb_contatos
  - term: ticket medio
    concept: valor
    kind: metric
    table: tb_vendas
    column: valor_total
corrections:
  cleintes: clientes
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	lex := New()
	loaded, err := lex.LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile() error: %v", err)
	}
	if loaded != 3 {
		t.Errorf("loaded = %d, want 3", loaded)
	}

	snap := lex.Snapshot()
	if entry, ok := snap.Lookup("freguesia"); !ok || entry.Concept != models.ConceptContact {
		t.Errorf("seeded term missing: %+v", entry)
	}
	if entry, n := snap.LookupPhrase([]string{"ticket", "medio"}, 0); n != 2 || entry.Kind != models.EntityMetric {
		t.Errorf("seeded phrase missing: n=%d %+v", n, entry)
	}
	if got, ok := snap.Correction("cleintes"); !ok || got != "clientes" {
		t.Errorf("seeded correction missing: %q", got)
	}
}

func TestLoadSeedFileErrors(t *testing.T) {
	t.Parallel()
	lex := New()

	if _, err := lex.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("terms: {not a list"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := lex.LoadSeedFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
