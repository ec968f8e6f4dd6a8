package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: " \r\n\t \n", want: ""},
		{name: "carriage returns", raw: "a\rb\r\nc", want: "a b c"},
		{name: "newline runs", raw: "first\n\n\nsecond", want: "first second"},
		{name: "hyphenated wrap", raw: "docu-\nment and proces-\n\n\nsing", want: "document and processing"},
		{name: "hyphen without wrap", raw: "well-known fact", want: "well-known fact"},
		{name: "page footer", raw: "fim do texto\nPágina 3 de 10\ninício", want: "fim do texto início"},
		{name: "page footer case insensitive", raw: "antes PÁGINA 1 DE 2 depois", want: "antes depois"},
		{name: "nested footer", raw: "x Página 1 Página 2 de 3 de 4 y", want: "x y"},
		{name: "trim", raw: "   padded  \n", want: "padded"},
		{name: "tabs and spaces", raw: "a\t\t b   c", want: "a b c"},
		{name: "non ascii preserved", raw: "ação\nçã  ü", want: "ação çã ü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Text(tt.raw))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"plain",
		"line one\r\nline two-\n\nthree",
		"Página 1 de 2",
		"a Página 1 Página 2 de 3 de 4 b",
		"  múltiplos   espaços \n\n e  quebras\r",
		"trailing-\n",
		"- \n -\n-",
		" nbsp separated words",
	}

	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func FuzzText(f *testing.F) {
	f.Add("")
	f.Add("line one\r\nline two-\n\nthree")
	f.Add("a Página 1 Página 2 de 3 de 4 b")
	f.Add("PÁGINA 10 DE 12\n\tfim-\n")
	f.Add(" nbsp \u00a0 separated\u2003words")

	f.Fuzz(func(t *testing.T, raw string) {
		once := Text(raw)
		if twice := Text(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", raw, once, twice)
		}
		if strings.ContainsAny(once, "\r\n") {
			t.Fatalf("line break left in %q", once)
		}
		if strings.Contains(once, "  ") || strings.TrimSpace(once) != once {
			t.Fatalf("whitespace not collapsed in %q", once)
		}
	})
}

func TestWords(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Words(""))
	assert.Equal(t, []string{"a", "b", "c"}, Words(" a  b\tc "))
}
