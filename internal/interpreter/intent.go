package interpreter

import (
	"github.com/oraculo-ai/oraculo/internal/models"
)

// intentTrigger is one weighted trigger token (post-normalization, fused form).
type intentTrigger struct {
	token  string
	weight float64
}

// intentTriggers configures the keyword scoring per category. Tokens are
// matched against the normalized stream, so multi-word phrases appear in
// their fused form.
var intentTriggers = map[models.Intent][]intentTrigger{
	models.IntentQuantityLookup: {
		{"quantos", 1.0}, {"quantas", 1.0}, {"quanto", 0.8},
		{"quantidade", 1.0}, {"contagem", 1.0}, {"numero", 0.8},
		{"total", 0.8}, {"contar", 1.0}, {"count", 1.0},
	},
	models.IntentListAll: {
		{"listar", 1.0}, {"mostrar", 0.8}, {"mostra", 0.8},
		{"exibir", 0.8}, {"todos", 0.6}, {"todas", 0.6}, {"lista", 0.8},
	},
	models.IntentDistribution: {
		{"distribuicao", 1.2}, {"agrupar", 1.0}, {"agrupado", 1.0},
		{"perfil", 0.8}, {"geografia", 1.0}, {"geografica", 1.0},
		{"divididos", 0.8}, {"onde", 0.6},
	},
	models.IntentComparePeriods: {
		{"comparar", 1.2}, {"comparativo", 1.2}, {"versus", 1.2},
		{"vs", 1.2}, {"contra", 0.8}, {"diferenca", 1.0},
	},
	models.IntentForecastTrend: {
		{"tendencia", 1.2}, {"prever", 1.2}, {"previsao", 1.2},
		{"projecao", 1.2}, {"estimativa", 1.0}, {"futuro", 0.8},
	},
	models.IntentExplainCause: {
		{"por_que", 1.2}, {"motivo", 1.0}, {"causa", 1.0},
		{"razao", 1.0}, {"explicar", 1.0}, {"explique", 1.0},
	},
	models.IntentSummaryReport: {
		{"relatorio", 1.2}, {"resumo", 1.0}, {"consolidado", 1.0},
		{"dashboard", 1.0}, {"panorama", 0.8},
	},
	models.IntentSpecificLookup: {
		{"buscar", 1.0}, {"busca", 0.8}, {"encontrar", 1.0},
		{"localizar", 1.0}, {"quem", 0.8}, {"telefone", 0.6},
		{"email", 0.6}, {"celular", 0.6}, {"dados", 0.6}, {"whatsapp", 0.6},
	},
}

// intentPriority breaks score ties: more specific categories outrank generic
// ones. Lower index wins.
var intentPriority = []models.Intent{
	models.IntentComparePeriods,
	models.IntentForecastTrend,
	models.IntentExplainCause,
	models.IntentDistribution,
	models.IntentSummaryReport,
	models.IntentQuantityLookup,
	models.IntentSpecificLookup,
	models.IntentListAll,
}

// minIntentScore is the floor below which the classifier emits UNKNOWN.
const minIntentScore = 0.5

// triggerTokens is the union of all trigger tokens; the entity layer uses it
// to keep intent words out of text filter values.
var triggerTokens = func() map[string]bool {
	out := make(map[string]bool)
	for _, triggers := range intentTriggers {
		for _, trg := range triggers {
			out[trg.token] = true
		}
	}
	return out
}()

// ClassifyIntent scores each category by weighted trigger presence over the
// normalized tokens. Confidence is the top score relative to the total scored
// mass. Deterministic; no learning at this stage.
func ClassifyIntent(nq *NormalizedQuestion) (models.Intent, float64) {
	tokens := nq.MatchTokens()
	if len(tokens) == 0 {
		return models.IntentUnknown, 0
	}
	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		present[t] = true
	}

	scores := make(map[models.Intent]float64, len(intentTriggers))
	total := 0.0
	for intent, triggers := range intentTriggers {
		for _, trg := range triggers {
			if present[trg.token] {
				scores[intent] += trg.weight
				total += trg.weight
			}
		}
	}

	best := models.IntentUnknown
	bestScore := 0.0
	for _, intent := range intentPriority {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}
	if bestScore < minIntentScore {
		return models.IntentUnknown, 0
	}
	return best, bestScore / total
}
