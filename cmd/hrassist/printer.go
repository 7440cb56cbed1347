package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// printer renders CLI output. Styles degrade to plain text when w is not a
// terminal.
type printer struct {
	w      io.Writer
	meta   lipgloss.Style
	header lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:      w,
		meta:   r.NewStyle().Faint(true),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}
}

func (p *printer) banner(runID, traceID string) {
	fmt.Fprintln(p.w, p.meta.Render("[run_id] "+runID))
	if traceID != "" {
		fmt.Fprintln(p.w, p.meta.Render("[trace_id] "+traceID))
	}
}

func (p *printer) answer(text, threadID string) {
	fmt.Fprintf(p.w, "\n%s\n\n", p.header.Render("=== ANSWER ==="))
	fmt.Fprintln(p.w, text)
	if threadID != "" {
		fmt.Fprintf(p.w, "\n%s\n", p.meta.Render("[thread_id] "+threadID))
	}
}
