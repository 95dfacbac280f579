// Package output provides consistent CLI output formatting with colors
// and status icons. Color is enabled only on interactive terminals.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles holds the lipgloss styles used across commands.
type Styles struct {
	Header    lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Highlight lipgloss.Style
}

func newStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
	}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out      io.Writer
	styles   Styles
	useColor bool
}

// New creates a Writer for out, enabling color when out is a TTY.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, styles: newStyles(), useColor: useColor}
}

func (w *Writer) render(style lipgloss.Style, msg string) string {
	if !w.useColor {
		return msg
	}
	return style.Render(msg)
}

// Printf writes plain formatted output.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Header prints a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.render(w.styles.Header, msg))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.styles.Success, "✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.styles.Warning, "!"), msg)
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.styles.Error, "✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Muted prints de-emphasized detail text.
func (w *Writer) Muted(msg string) {
	_, _ = fmt.Fprintf(w.out, "  %s\n", w.render(w.styles.Muted, msg))
}

// Highlightf prints emphasized text inline.
func (w *Writer) Highlightf(format string, args ...any) string {
	return w.render(w.styles.Highlight, fmt.Sprintf(format, args...))
}
