package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		chunks   []string
		expected string
	}{
		{
			name:     "ranked chunks",
			question: "Qual é o prazo?",
			chunks:   []string{"O prazo é de 30 dias.", "Multas se aplicam após o prazo."},
			expected: "Trechos relevantes do documento:\n\nO prazo é de 30 dias.\n\nMultas se aplicam após o prazo.\n\nPergunta:\nQual é o prazo?",
		},
		{
			name:     "blank chunks are skipped",
			question: "  Quem assina?  ",
			chunks:   []string{"", "  ", "Assina o diretor."},
			expected: "Trechos relevantes do documento:\n\nAssina o diretor.\n\nPergunta:\nQuem assina?",
		},
		{
			name:     "no chunks",
			question: "Algo?",
			expected: "Trechos relevantes do documento:\n\n(nenhum trecho relevante encontrado)\n\nPergunta:\nAlgo?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Build(tt.question, tt.chunks))
		})
	}
}
