package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/docker/docqa/pkg/rag/catalog"
	"github.com/docker/docqa/pkg/rag/session"
)

type Printer struct {
	out    io.Writer
	bold   func(format string, a ...any) string
	faint  func(format string, a ...any) string
	yellow func(format string, a ...any) string
	red    func(format string, a ...any) string
}

// NewPrinter writes to out. Colors are used only when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	colors := []*color.Color{
		color.New(color.Bold),
		color.New(color.Faint),
		color.New(color.FgYellow),
		color.New(color.FgRed),
	}
	if !isTerminal(out) {
		for _, c := range colors {
			c.DisableColor()
		}
	}

	return &Printer{
		out:    out,
		bold:   colors[0].SprintfFunc(),
		faint:  colors[1].SprintfFunc(),
		yellow: colors[2].SprintfFunc(),
		red:    colors[3].SprintfFunc(),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) {
	p.Printf("%s %s\n", p.red("error:"), err)
}

// PrintLearnResult summarizes a learn.
func (p *Printer) PrintLearnResult(source string, result session.Result) {
	if !result.Success {
		p.Printf("%s nothing learned from %s (%s)\n", p.yellow("warning:"), p.bold("%s", source), result.Reason)
		return
	}

	p.Printf("Learned %s: %d chunks\n", p.bold("%s", source), result.Chunks)
	for _, w := range result.Warnings {
		p.Printf("%s %s\n", p.yellow("warning:"), w)
	}
}

// PrintMatches prints ranked chunks, optionally with their scores.
func (p *Printer) PrintMatches(matches []session.Match, scores bool) {
	if len(matches) == 0 {
		p.Println(p.faint("No results."))
		return
	}

	for i, m := range matches {
		if i > 0 {
			p.Println()
		}
		if scores {
			p.Printf("%s %s\n", p.bold("#%d", i+1), p.faint("chunk %d, score %.4f", m.Position, m.Score))
		} else {
			p.Println(p.bold("#%d", i+1))
		}
		p.Println(m.Text)
	}
}

// PrintAnswer prints a model answer under its label.
func (p *Printer) PrintAnswer(label, answer string) {
	p.Printf("%s\n%s\n", p.bold("[%s]", label), strings.TrimSpace(answer))
}

// PrintStatus prints the session state.
func (p *Printer) PrintStatus(state session.State, meta session.Meta) {
	if state == session.StateEmpty {
		p.Println("No document loaded.")
		return
	}
	p.Printf("Loaded %s (%d chunks)\n", p.bold("%s", meta.SourceFilename), meta.NChunks)
}

// PrintDocuments lists catalog entries, newest first.
func (p *Printer) PrintDocuments(entries []catalog.Entry) {
	if len(entries) == 0 {
		p.Println(p.faint("No documents learned yet."))
		return
	}
	for _, e := range entries {
		p.Printf("%s  %s  %d chunks  %s\n",
			p.faint("%s", e.LearnedAt.Local().Format("2006-01-02 15:04")),
			p.bold("%s", e.Source),
			e.Chunks,
			p.faint("%s", e.ContentHash))
	}
}
