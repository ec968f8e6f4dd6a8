// Package prompt assembles the user prompt sent to a generative model from
// a question and the chunks retrieved for it.
package prompt

import (
	"fmt"
	"strings"
)

const (
	contextHeader  = "Trechos relevantes do documento:"
	questionHeader = "Pergunta:"
	noContext      = "(nenhum trecho relevante encontrado)"
)

// Build formats chunks, in ranked order, followed by the question. Only
// the retrieved chunks are included, never the whole document.
func Build(question string, chunks []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", contextHeader)
	written := 0
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if written > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c)
		written++
	}
	if written == 0 {
		b.WriteString(noContext)
	}

	fmt.Fprintf(&b, "\n\n%s\n%s", questionHeader, strings.TrimSpace(question))
	return b.String()
}
