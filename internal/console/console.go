// Package console prints operator-facing progress lines.
package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// Printer writes glyph-prefixed lines. Colours are only used on terminals.
type Printer struct {
	out   io.Writer
	color bool
}

// New returns a Printer writing to w. Colour is enabled when w is a terminal.
func New(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{out: w, color: color}
}

// Stdout returns a Printer for standard output.
func Stdout() *Printer { return New(os.Stdout) }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

// Println writes a plain line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf writes formatted text as is.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Step announces an action: "→ msg".
func (p *Printer) Step(format string, a ...any) {
	fmt.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Success reports a finished sub-step: "✓ msg".
func (p *Printer) Success(format string, a ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.paint(colorGreen, "✓"), fmt.Sprintf(format, a...))
}

// Failed reports a failed sub-step: "✗ msg".
func (p *Printer) Failed(format string, a ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.paint(colorRed, "✗"), fmt.Sprintf(format, a...))
}

// Done reports a completed operation: "✅ msg".
func (p *Printer) Done(format string, a ...any) {
	fmt.Fprintf(p.out, "✅ %s\n", fmt.Sprintf(format, a...))
}

// Error reports a fatal problem: "❌ msg".
func (p *Printer) Error(format string, a ...any) {
	fmt.Fprintf(p.out, "❌ %s\n", fmt.Sprintf(format, a...))
}

// Warn reports a non-fatal problem: "⚠️  msg".
func (p *Printer) Warn(format string, a ...any) {
	fmt.Fprintf(p.out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Info reports a neutral fact: "ℹ️ msg".
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, "ℹ️ %s\n", fmt.Sprintf(format, a...))
}

// OK prints msg padded to a column followed by [OK].
func (p *Printer) OK(msg string) {
	fmt.Fprintf(p.out, "%-70s%s\n", msg, p.paint(colorGreen, "[OK]"))
}

// Warning prints msg padded to a column followed by [WARN].
func (p *Printer) Warning(msg string) {
	fmt.Fprintf(p.out, "%-70s%s\n", msg, p.paint(colorYellow, "[WARN]"))
}

// Fail prints msg padded to a column followed by [FAIL].
func (p *Printer) Fail(msg string) {
	fmt.Fprintf(p.out, "%-70s%s\n", msg, p.paint(colorRed, "[FAIL]"))
}

// Splash prints the license banner shown before configuration. A missing
// license file prints an error line instead of the text.
func (p *Printer) Splash(licensePath string) {
	fmt.Fprint(p.out, "\n+-------------------------- licman Software License --------------------------+\n\n")
	data, err := os.ReadFile(licensePath)
	if err != nil {
		fmt.Fprintf(p.out, "ERROR: LICENSE file not found at: %s\n", licensePath)
	} else {
		fmt.Fprintln(p.out, string(data))
	}
	fmt.Fprint(p.out, "\n+---------------------------------------------------------------------------+\n\n")
}
