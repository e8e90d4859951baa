package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/mathematic-inc/if-changed/pkg/check"
)

var (
	styleViolation = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleParseErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// configureColor pins the color profile before anything is rendered.
// "auto" keeps colors only when stdout is a terminal.
func configureColor(mode string) {
	switch mode {
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI)
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	}
}

// renderReport prints parse errors first, then violations. A clean
// report prints nothing.
func renderReport(w io.Writer, report *check.Report) {
	for _, pe := range report.ParseErrors {
		fmt.Fprintln(w, styleParseErr.Render(pe.Error()))
	}
	for _, v := range report.Violations {
		fmt.Fprintln(w, styleViolation.Render(v.String()))
	}
}
