package interpreter

import (
	"time"

	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/models"
)

// stageWeights controls how the three middle-stage confidences combine.
// Weights always sum to 1.
type stageWeights struct {
	intent   float64
	entity   float64
	temporal float64
}

var defaultWeights = stageWeights{intent: 0.4, entity: 0.4, temporal: 0.2}

// intentWeights overrides the default for intents whose answer hinges on the
// temporal component.
var intentWeights = map[models.Intent]stageWeights{
	models.IntentComparePeriods: {intent: 0.25, entity: 0.25, temporal: 0.5},
	models.IntentForecastTrend:  {intent: 0.3, entity: 0.3, temporal: 0.4},
}

// delegatedIntents never get a candidate query; their answers need the AI
// collaborator regardless of confidence.
var delegatedIntents = map[models.Intent]bool{
	models.IntentComparePeriods: true,
	models.IntentForecastTrend:  true,
	models.IntentExplainCause:   true,
	models.IntentUnknown:        true,
}

// Interpreter runs the four-stage pipeline over one question at a time.
// It is safe for concurrent use: each call takes its own lexicon snapshot.
type Interpreter struct {
	lexicon *lexicon.Lexicon
	cfg     config.Interpreter
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an interpreter over the given lexicon.
func New(lex *lexicon.Lexicon, cfg config.Interpreter, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		lexicon: lex,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock fixes the reference time; used by tests and replay tooling.
func (it *Interpreter) WithClock(now func() time.Time) *Interpreter {
	it.now = now
	return it
}

// Interpret runs normalization, then the three independent middle stages over
// the same token stream, then synthesis. It always returns an interpretation;
// questions it cannot answer come back with Intent UNKNOWN or without a
// candidate query, never with an error.
func (it *Interpreter) Interpret(question string) *models.Interpretation {
	snap := it.lexicon.Snapshot()
	now := it.now()

	nq := Normalize(question, snap, it.cfg.EditDistanceBound)

	intent, intentConf := ClassifyIntent(nq)
	temporal, temporalTokens, temporalAmb := ResolveTemporal(nq, now)
	entities := ExtractEntities(nq, snap, it.cfg.EditDistanceBound, temporalTokens)

	out := &models.Interpretation{
		Question:         question,
		Normalized:       nq.Text(),
		Corrections:      nq.Corrections,
		Intent:           intent,
		IntentConfidence: intentConf,
		Metrics:          entities.Metrics,
		Dimensions:       entities.Dimensions,
		Filters:          entities.Filters,
		Comparators:      entities.Comparators,
		Temporal:         temporal,
	}
	out.Ambiguities = append(out.Ambiguities, entities.Ambiguities...)
	out.Ambiguities = append(out.Ambiguities, temporalAmb...)

	out.Confidence = combineConfidence(intent, intentConf, entities.MeanConfidence(), temporal, len(temporalAmb) > 0)

	it.suggest(out, entities)

	if out.Confidence >= it.cfg.DirectExecThreshold && !delegatedIntents[intent] {
		if query, args, ok := it.buildCandidate(out, entities, snap); ok {
			out.CandidateQuery = query
			out.QueryArgs = args
		}
	}

	it.logger.Debug("question interpreted",
		zap.String("intent", string(intent)),
		zap.Float64("confidence", out.Confidence),
		zap.Int("entities", len(entities.All())),
		zap.Bool("candidate_query", out.CandidateQuery != ""),
	)
	return out
}

// combineConfidence applies the per-intent stage weights. When the question
// carries no temporal language at all, the temporal stage abstains and its
// weight is split between the other two stages, so an atemporal question is
// never penalized for lacking a date.
func combineConfidence(intent models.Intent, intentConf, entityConf float64, temporal models.TemporalSpec, temporalAmbiguous bool) float64 {
	w, ok := intentWeights[intent]
	if !ok {
		w = defaultWeights
	}
	if temporal.Kind == models.TemporalNone && !temporalAmbiguous {
		share := w.temporal / (w.intent + w.entity)
		w.intent += w.intent * share
		w.entity += w.entity * share
		w.temporal = 0
	}
	return w.intent*intentConf + w.entity*entityConf + w.temporal*temporal.Confidence
}

// suggest fills Suggestions with actionable rewordings tied to what went wrong.
func (it *Interpreter) suggest(out *models.Interpretation, entities *ExtractedEntities) {
	if len(entities.All()) == 0 {
		out.Suggestions = append(out.Suggestions,
			"mencione o que deseja consultar, por exemplo: clientes, vendas ou produtos")
	}
	if out.Intent == models.IntentUnknown {
		out.Suggestions = append(out.Suggestions,
			"reformule como pergunta, por exemplo: quantos clientes temos?")
	}
	for _, amb := range out.Ambiguities {
		if amb == temporalUnrecognized {
			out.Suggestions = append(out.Suggestions,
				"especifique o periodo, por exemplo: mes passado ou ultimos 30 dias")
		}
	}
}

// buildCandidate synthesizes the row-capped read-only statement for the
// interpretation. It refuses when no entity is bound to an accessible table.
func (it *Interpreter) buildCandidate(out *models.Interpretation, entities *ExtractedEntities, snap *lexicon.Snapshot) (string, []any, bool) {
	table, ok := it.candidateTable(entities, snap)
	if !ok {
		return "", nil, false
	}

	plan := QueryPlan{
		Table:    table,
		Intent:   out.Intent,
		Filters:  out.Filters,
		Temporal: out.Temporal,
	}

	for _, m := range entities.Metrics {
		if !m.Accessible || m.Aggregate == "" {
			continue
		}
		plan.Aggregate = m.Aggregate
		if m.Aggregate == "sum" {
			col := m.Column
			if col == "" {
				col = table.Column("valor")
			}
			if col == "" {
				return "", nil, false
			}
			plan.AggColumn = col
		}
		break
	}

	switch out.Intent {
	case models.IntentQuantityLookup:
		if plan.Aggregate == "" {
			plan.Aggregate = "count"
		}
	case models.IntentDistribution:
		group := ""
		for _, d := range entities.Dimensions {
			if d.Accessible && d.Column != "" {
				group = d.Column
				break
			}
		}
		if group == "" {
			return "", nil, false
		}
		plan.GroupBy = group
	case models.IntentListAll, models.IntentSpecificLookup:
		plan.Aggregate = ""
		plan.AggColumn = ""
		for _, d := range entities.Dimensions {
			if d.Accessible && d.Column != "" && d.Table == table.Name {
				plan.Columns = append(plan.Columns, d.Column)
			}
		}
	}

	query, args, err := plan.Build()
	if err != nil {
		it.logger.Warn("candidate query rejected", zap.Error(err))
		return "", nil, false
	}
	return query, args, true
}

// candidateTable picks the single table the statement runs against, favoring
// dimensions over metrics; an aggregate-only question ("quantos?") has no
// table and gets none.
func (it *Interpreter) candidateTable(entities *ExtractedEntities, snap *lexicon.Snapshot) (lexicon.Table, bool) {
	name := entities.PrimaryTable()
	if name == "" {
		return lexicon.Table{}, false
	}
	for _, ent := range entities.All() {
		if ent.Table != name {
			continue
		}
		if t, ok := snap.TableFor(ent.Concept); ok {
			return t, true
		}
	}
	return lexicon.Table{}, false
}
