package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes status lines, coloured when the output is a terminal.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
	tty     bool
	width   int
}

// NewPrinter creates a printer for f, detecting whether it is a terminal.
func NewPrinter(f *os.File) *Printer {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return NewPlainPrinter(f)
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		width = 80
	}
	return &Printer{out: f, profile: termenv.EnvColorProfile(), tty: true, width: width}
}

// NewPlainPrinter creates a printer without colours.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{out: w, profile: termenv.Ascii, width: 80}
}

// TTY reports whether the printer writes to a terminal.
func (p *Printer) TTY() bool {
	return p.tty
}

// Width is the terminal width, or 80.
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Success prints a green line.
func (p *Printer) Success(format string, args ...any) {
	p.line("#22c55e", "✔", format, args...)
}

// Failure prints a red line.
func (p *Printer) Failure(format string, args ...any) {
	p.line("#ef4444", "✘", format, args...)
}

// Info prints a neutral line.
func (p *Printer) Info(format string, args ...any) {
	p.line("#818cf8", ">>>", format, args...)
}

func (p *Printer) line(color, mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.profile == termenv.Ascii {
		fmt.Fprintf(p.out, "%s %s\n", mark, msg)
		return
	}
	prefix := termenv.String(mark).Foreground(p.profile.Color(color)).Bold()
	fmt.Fprintf(p.out, "%s %s\n", prefix, msg)
}

// Banner prints the stately logo when writing to a terminal.
func (p *Printer) Banner() {
	if !p.tty {
		return
	}
	lines := []struct{ text, color string }{
		{"      _        _       _       ", "#818cf8"},
		{"  ___| |_ __ _| |_ ___| |_   _ ", "#a78bfa"},
		{" / __| __/ _` | __/ _ \\ | | | |", "#c084fc"},
		{" \\__ \\ || (_| | ||  __/ | |_| |", "#e879f9"},
		{" |___/\\__\\__,_|\\__\\___|_|\\__, |", "#f472b6"},
		{"                         |___/ ", "#fb7185"},
	}
	fmt.Fprintln(p.out)
	for _, l := range lines {
		fmt.Fprintln(p.out, termenv.String(l.text).Foreground(p.profile.Color(l.color)))
	}
	fmt.Fprintln(p.out)
}
