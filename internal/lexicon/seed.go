package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultSchema is the schema qualifying every authorized table.
const DefaultSchema = "sysroh"

func seedTables() map[models.Concept]Table {
	contacts := Table{
		Name:    "tb_contatos",
		Schema:  DefaultSchema,
		Aliases: []string{"contato", "cliente", "pessoa", "lead", "comprador", "consumidor", "parceiro"},
		Columns: map[string]string{
			"nome":    "nome",
			"email":   "email",
			"celular": "celular",
			"estado":  "estado",
			"cidade":  "cidade",
			"id":      "id_contato",
		},
	}
	products := Table{
		Name:    "tb_produtos",
		Schema:  DefaultSchema,
		Aliases: []string{"produto", "item", "mercadoria", "material", "peca", "estoque"},
		Columns: map[string]string{
			"nome": "nome",
			"id":   "id_produto",
		},
	}
	sales := Table{
		Name:    "tb_vendas",
		Schema:  DefaultSchema,
		Aliases: []string{"venda", "pedido", "faturamento", "receita", "negocio"},
		Columns: map[string]string{
			"valor": "valor_total",
			"data":  "data_venda",
			"id":    "id_venda",
		},
	}
	return map[models.Concept]Table{
		models.ConceptContact: contacts,
		models.ConceptProduct: products,
		models.ConceptSale:    sales,
		models.ConceptRevenue: sales,
		models.ConceptStock:   products,
	}
}

// seedSynonyms maps each canonical concept to its known surface terms.
var seedSynonyms = map[models.Concept]struct {
	kind  models.EntityKind
	terms []string
}{
	models.ConceptContact:  {models.EntityDimension, []string{"contato", "contatos", "cliente", "clientes", "pessoa", "pessoas", "lead", "leads", "comprador", "compradores", "consumidor", "parceiro", "interessado"}},
	models.ConceptSale:     {models.EntityDimension, []string{"venda", "vendas", "pedido", "pedidos", "negocio", "encomenda"}},
	models.ConceptProduct:  {models.EntityDimension, []string{"produto", "produtos", "item", "itens", "mercadoria", "mercadorias", "material", "materiais", "peca", "pecas"}},
	models.ConceptState:    {models.EntityDimension, []string{"estado", "estados", "uf"}},
	models.ConceptCity:     {models.EntityDimension, []string{"cidade", "cidades", "municipio"}},
	models.ConceptQuantity: {models.EntityMetric, []string{"quantidade", "contagem", "numero", "count", "quantos", "quantas", "quanto"}},
	models.ConceptValue:    {models.EntityMetric, []string{"valor", "valores", "montante"}},
	models.ConceptRevenue:  {models.EntityMetric, []string{"faturamento", "receita"}},
	models.ConceptProfit:   {models.EntityMetric, []string{"lucro", "margem"}},
	models.ConceptStock:    {models.EntityMetric, []string{"estoque", "saldo"}},
	models.ConceptName:     {models.EntityDimension, []string{"nome", "razao social"}},
	models.ConceptEmail:    {models.EntityDimension, []string{"email", "e-mail"}},
	models.ConceptPhone:    {models.EntityDimension, []string{"celular", "telefone", "fone", "whatsapp", "whats"}},
}

// conceptColumnKey binds attribute-like concepts to the semantic column key
// used in Table.Columns.
var conceptColumnKey = map[models.Concept]string{
	models.ConceptState: "estado",
	models.ConceptCity:  "cidade",
	models.ConceptName:  "nome",
	models.ConceptEmail: "email",
	models.ConceptPhone: "celular",
	models.ConceptValue: "valor",
}

// attributeOwner maps attribute concepts to the entity table that carries them.
var attributeOwner = map[models.Concept]models.Concept{
	models.ConceptState: models.ConceptContact,
	models.ConceptCity:  models.ConceptContact,
	models.ConceptName:  models.ConceptContact,
	models.ConceptEmail: models.ConceptContact,
	models.ConceptPhone: models.ConceptContact,
	models.ConceptValue: models.ConceptSale,
}

// metricAggregates names the SQL aggregate each metric concept implies.
var metricAggregates = map[models.Concept]string{
	models.ConceptQuantity: "count",
	models.ConceptValue:    "sum",
	models.ConceptRevenue:  "sum",
	models.ConceptProfit:   "sum",
	models.ConceptStock:    "sum",
}

var seedAbbreviations = map[string]string{
	"qtd":  "quantidade",
	"qtde": "quantidade",
	"vlr":  "valor",
	"pdt":  "produto",
	"cli":  "cliente",
	"vnd":  "vendas",
	"lcr":  "lucro",
	"mrg":  "margem",
	"estq": "estoque",
	"ped":  "pedido",
	"orc":  "orcamento",
	"nf":   "nota fiscal",
	"pv":   "pedido de venda",
	"un":   "unidade",
	"pc":   "percentual",
}

var seedCorrections = map[string]string{
	"vendaz":  "vendas",
	"clinte":  "cliente",
	"clintes": "clientes",
	"prodto":  "produto",
	"qnts":    "quantos",
	"qntas":   "quantas",
	"mostr":   "mostra",
	"mostrr":  "mostra",
	"ateh":    "ate",
	"exiba":   "mostrar",
	"exibir":  "mostrar",
}

var seedStopwords = []string{
	"a", "o", "as", "os", "um", "uma", "de", "do", "da", "dos", "das",
	"no", "na", "nos", "nas", "em", "ou", "que", "com", "para",
	"por", "se", "ao", "aos", "tem", "temos", "existem", "ha", "esta",
	"estao", "ser", "sao", "foi", "meu", "minha", "nosso", "nossa",
}

func buildSeedSnapshot() *Snapshot {
	snap := &Snapshot{
		Version:       1,
		terms:         make(map[string]Entry),
		abbreviations: make(map[string]string),
		corrections:   make(map[string]string),
		tables:        seedTables(),
		stopwords:     make(map[string]bool),
	}

	for concept, seed := range seedSynonyms {
		table, column := "", ""
		owner := concept
		if o, ok := attributeOwner[concept]; ok {
			owner = o
		}
		if t, ok := snap.tables[owner]; ok {
			table = t.Name
			if key, ok := conceptColumnKey[concept]; ok {
				column = t.Column(key)
			}
		}
		for _, term := range seed.terms {
			folded := Fold(term)
			snap.terms[folded] = Entry{
				Term:       folded,
				Concept:    concept,
				Kind:       seed.kind,
				Table:      table,
				Column:     column,
				Aggregate:  metricAggregates[concept],
				Confidence: 1.0,
			}
			snap.vocabulary = append(snap.vocabulary, folded)
			if strings.Contains(folded, " ") {
				snap.phrases = insertPhrase(snap.phrases, folded)
			}
		}
	}

	for abbr, full := range seedAbbreviations {
		snap.abbreviations[abbr] = full
	}
	for typo, correct := range seedCorrections {
		snap.corrections[typo] = correct
	}
	for _, w := range seedStopwords {
		snap.stopwords[w] = true
	}
	sort.Strings(snap.vocabulary)
	return snap
}

// SeedFile is the YAML document the lexicon CLI reads to extend the seed.
type SeedFile struct {
	Terms []struct {
		Term       string  `yaml:"term"`
		Concept    string  `yaml:"concept"`
		Kind       string  `yaml:"kind"`
		Table      string  `yaml:"table"`
		Column     string  `yaml:"column"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"terms"`
	Corrections map[string]string `yaml:"corrections"`
}

// LoadSeedFile merges a YAML seed file into the lexicon.
func (l *Lexicon) LoadSeedFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}

	loaded := 0
	for _, t := range seed.Terms {
		confidence := t.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		kind := models.EntityKind(t.Kind)
		if kind == "" {
			kind = models.EntityDimension
		}
		if l.Learn(t.Term, Entry{
			Concept:    models.Concept(t.Concept),
			Kind:       kind,
			Table:      t.Table,
			Column:     t.Column,
			Confidence: confidence,
		}) {
			loaded++
		}
	}
	for typo, correct := range seed.Corrections {
		if l.LearnCorrection(typo, correct) {
			loaded++
		}
	}
	return loaded, nil
}
