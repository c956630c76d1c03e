package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/gyaneshwarpardhi/qsched/internal/job"
)

const maxStatementWidth = 72

// styles used by the schedule table. The zero value renders plain text.
type styles struct {
	title   lipgloss.Style
	block   lipgloss.Style
	cycle   lipgloss.Style
	text    lipgloss.Style
	dim     lipgloss.Style
	failure lipgloss.Style
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{title: s, block: s, cycle: s, text: s, dim: s, failure: s}
}

func colorStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64")),
		block: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7")),
		cycle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")),
		text: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0caf5")),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		failure: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f7768e")),
	}
}

// render writes a human readable schedule: one table per block with the
// issue cycle, duration and text of every statement, followed by the pass
// log.
func render(w io.Writer, res *job.Result, st styles) {
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%s: %d cycles", res.Program, res.TotalCycles)))
	if res.Failed() {
		fmt.Fprintln(w, st.failure.Render(fmt.Sprintf("%s error: %s", res.ErrorKind, res.Error)))
	}

	cw := runewidth.StringWidth("cycle")
	for _, b := range res.Blocks {
		for _, s := range b.Statements {
			cw = max(cw, runewidth.StringWidth(fmt.Sprint(s.Cycle)))
		}
	}

	for _, b := range res.Blocks {
		fmt.Fprintln(w)
		header := fmt.Sprintf("%s (%d cycles)", b.Name, b.Cycles)
		if b.Next != "" {
			header += " -> " + b.Next
		}
		fmt.Fprintln(w, st.block.Render(header))
		fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("  %s  %s  %s",
			runewidth.FillLeft("cycle", cw), "dur", "statement")))
		for _, s := range b.Statements {
			text := runewidth.Truncate(strings.ReplaceAll(s.Text, "\n", " "), maxStatementWidth, "…")
			fmt.Fprintf(w, "  %s  %s  %s\n",
				st.cycle.Render(runewidth.FillLeft(fmt.Sprint(s.Cycle), cw)),
				st.dim.Render(runewidth.FillLeft(fmt.Sprint(s.Duration), 3)),
				st.text.Render(text),
			)
		}
	}

	if len(res.Passes) > 0 {
		fmt.Fprintln(w)
	}
	for _, p := range res.Passes {
		fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("%s (%s, %dms): %s", p.Name, p.Type, p.DurationMs, p.Message)))
	}
}
