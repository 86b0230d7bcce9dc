package ai

import (
	"fmt"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/models"
)

const systemPromptBase = "Voce e o assistente de dados de um CRM brasileiro. " +
	"Responda em portugues, com base apenas nas informacoes fornecidas. " +
	"Quando nao houver dados suficientes, diga claramente o que falta em vez de inventar numeros."

// buildSystemPrompt renders the system message: base instructions enriched
// with the user's profile, relevant memories and open problems.
func buildSystemPrompt(req *AnswerRequest) string {
	var b strings.Builder
	b.WriteString(systemPromptBase)

	if req.Memory != nil {
		if req.Memory.ProfileSummary != "" {
			b.WriteString("\n\nPerfil do usuario: ")
			b.WriteString(req.Memory.ProfileSummary)
		}
		if len(req.Memory.TopMemories) > 0 {
			b.WriteString("\n\nContexto conhecido sobre o usuario:")
			for _, m := range req.Memory.TopMemories {
				fmt.Fprintf(&b, "\n- [%s] %s", m.ContextType, m.Content)
			}
		}
		if len(req.Memory.RecentProblems) > 0 {
			b.WriteString("\n\nProblemas recentes:")
			for _, p := range req.Memory.RecentProblems {
				status := "pendente"
				if p.Resolved {
					status = "resolvido: " + p.Resolution
				}
				fmt.Fprintf(&b, "\n- (%s) %s [%s]", p.ProblemType, p.Question, status)
			}
		}
	}

	return b.String()
}

// buildQuestionPrompt renders the user message: the question plus whatever
// the interpreter managed to extract, so the model answers within those rails.
func buildQuestionPrompt(req *AnswerRequest) string {
	var b strings.Builder
	b.WriteString("Pergunta: ")
	b.WriteString(req.Question)

	interp := req.Interpretation
	if interp == nil {
		return b.String()
	}

	if interp.Intent != models.IntentUnknown {
		fmt.Fprintf(&b, "\n\nLeitura estruturada da pergunta (confianca %.2f):", interp.Confidence)
		fmt.Fprintf(&b, "\n- intencao: %s", interp.Intent)
		for _, entity := range interp.Metrics {
			fmt.Fprintf(&b, "\n- metrica: %s (%s)", entity.Concept, entity.Surface)
		}
		for _, entity := range interp.Dimensions {
			fmt.Fprintf(&b, "\n- dimensao: %s (%s)", entity.Concept, entity.Surface)
		}
		if interp.Temporal.Kind != models.TemporalNone && interp.Temporal.Start != nil && interp.Temporal.End != nil {
			fmt.Fprintf(&b, "\n- periodo: %s a %s",
				interp.Temporal.Start.Format("2006-01-02"),
				interp.Temporal.End.Format("2006-01-02"),
			)
		}
	}
	if len(interp.Ambiguities) > 0 {
		b.WriteString("\n\nPontos ambiguos que podem precisar de esclarecimento:")
		for _, a := range interp.Ambiguities {
			b.WriteString("\n- ")
			b.WriteString(a)
		}
	}

	return b.String()
}
