package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Logo is printed by the version command
const Logo = `
  ┌┬┐┬─┐┌─┐┬┌┐┌┌─┐┬┌─┌─┐┌┬┐
   │ ├┬┘├─┤││││├─┘├┴┐├─┘ │
   ┴ ┴└─┴ ┴┴┘└┘└─┘┴ ┴┴   ┴
`

// Printer writes styled messages. Styling is dropped when the writer is not
// a terminal so output stays clean when piped.
type Printer struct {
	out    io.Writer
	tty    bool
	styles styles
}

// NewPrinter creates a Printer writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		out:    w,
		tty:    IsTerminal(w),
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// IsTerminal reports whether w is a file attached to a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsTerminal reports whether the printer's writer is a terminal
func (p *Printer) IsTerminal() bool {
	return p.tty
}

// Writer returns the destination writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Logo prints the ASCII logo
func (p *Printer) Logo() {
	fmt.Fprint(p.out, p.styles.label.Render(Logo))
	fmt.Fprintln(p.out)
}

// Error prints an error message, followed by err when given
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.out, p.styles.err.Render(msg))
}

// Success prints a success message
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.styles.success.Render(msg))
}

// Info prints a label/value pair
func (p *Printer) Info(label, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", p.styles.label.Render(label), p.styles.value.Render(value))
}

// Warning prints a warning message
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.out, p.styles.warning.Render(msg))
}

// Highlight prints a highlighted message
func (p *Printer) Highlight(msg string) {
	fmt.Fprintln(p.out, p.styles.highlight.Render(msg))
}

// Dim prints a de-emphasised message
func (p *Printer) Dim(msg string) {
	fmt.Fprintln(p.out, p.styles.dim.Render(msg))
}
