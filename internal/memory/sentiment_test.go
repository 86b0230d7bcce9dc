package memory

import (
	"testing"
)

func TestAnalyzeSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantLabel SentimentLabel
		wantScore float64
	}{
		{
			name:      "clearly positive",
			text:      "otimo, funcionou perfeito",
			wantLabel: SentimentPositive,
			wantScore: 1,
		},
		{
			name:      "clearly negative",
			text:      "resultado errado, numeros incorretos de novo",
			wantLabel: SentimentNegative,
			wantScore: -1,
		},
		{
			name:      "negation flips positive",
			text:      "nao funcionou",
			wantLabel: SentimentNegative,
			wantScore: -1,
		},
		{
			name:      "negation flips negative",
			text:      "nunca falhou comigo",
			wantLabel: SentimentPositive,
			wantScore: 1,
		},
		{
			name:      "mixed tie is neutral",
			text:      "a resposta veio certo mas demorado",
			wantLabel: SentimentNeutral,
			wantScore: 0,
		},
		{
			name:      "accents are folded",
			text:      "ótimo, número correto",
			wantLabel: SentimentPositive,
			wantScore: 1,
		},
		{
			name:      "punctuation stripped",
			text:      "perfeito!",
			wantLabel: SentimentPositive,
			wantScore: 1,
		},
		{
			name:      "no polarized words",
			text:      "quantos clientes temos em sao paulo",
			wantLabel: SentimentNeutral,
			wantScore: 0,
		},
		{
			name:      "empty text",
			text:      "",
			wantLabel: SentimentNeutral,
			wantScore: 0,
		},
		{
			name:      "majority positive",
			text:      "gostei, ficou bom, so um pouco lento",
			wantLabel: SentimentPositive,
		},
		{
			name:      "negation only affects next word",
			text:      "nao sei mas falhou",
			wantLabel: SentimentNegative,
			wantScore: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			score, label := AnalyzeSentiment(tt.text)
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q (score %v)", label, tt.wantLabel, score)
			}
			if tt.wantScore != 0 || tt.wantLabel == SentimentNeutral {
				if score != tt.wantScore {
					t.Errorf("score = %v, want %v", score, tt.wantScore)
				}
			}
			if score < -1 || score > 1 {
				t.Errorf("score %v outside [-1, 1]", score)
			}
		})
	}
}

func TestAnalyzeSentimentDeterministic(t *testing.T) {
	t.Parallel()

	text := "nao gostei, veio errado e demorado"
	firstScore, firstLabel := AnalyzeSentiment(text)
	for i := 0; i < 10; i++ {
		score, label := AnalyzeSentiment(text)
		if score != firstScore || label != firstLabel {
			t.Fatalf("run %d: got (%v, %q), want (%v, %q)", i, score, label, firstScore, firstLabel)
		}
	}
}
