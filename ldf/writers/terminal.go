package writers

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/wbrown/janus-ldf/ldf/rdf"
	"github.com/wbrown/janus-ldf/ldf/sparql"
)

const terminalColumnWidth = 55

// TerminalWriter prints rows as right-aligned fixed-width columns, colored
// by term kind when writing to a terminal.
type TerminalWriter struct {
	out       *errWriter
	useColor  bool
	variables []string
}

// NewTerminalWriter creates a terminal writer with color support detection.
func NewTerminalWriter(w io.Writer) *TerminalWriter {
	useColor := false
	if w == os.Stdout || w == os.Stderr {
		useColor = !color.NoColor
	}
	return &TerminalWriter{out: &errWriter{w: w}, useColor: useColor}
}

func (t *TerminalWriter) WriteHead(variables []string) error {
	t.variables = variables
	var header strings.Builder
	for _, name := range names(variables) {
		header.WriteString(pad(name))
	}
	t.out.WriteString(t.colorize(header.String(), color.Bold) + "\n")
	t.out.WriteString(strings.Repeat("-", header.Len()) + "\n")
	return t.out.err
}

func (t *TerminalWriter) WriteRow(row sparql.Row) error {
	var line strings.Builder
	for _, v := range t.variables {
		value := row[v]
		line.WriteString(t.colorize(pad(value), termColor(value)))
	}
	t.out.WriteString(line.String() + "\n")
	return t.out.err
}

func (t *TerminalWriter) WriteBoolean(value bool) error {
	attr := color.FgRed
	if value {
		attr = color.FgGreen
	}
	t.out.WriteString(t.colorize(strconv.FormatBool(value), attr) + "\n")
	return t.out.err
}

func (t *TerminalWriter) Flush() error { return t.out.err }

func (t *TerminalWriter) colorize(text string, attr color.Attribute) string {
	if !t.useColor {
		return text
	}
	return color.New(attr).Sprint(text)
}

func termColor(term string) color.Attribute {
	switch {
	case rdf.IsLiteral(term):
		return color.FgGreen
	case rdf.IsBlank(term):
		return color.FgYellow
	}
	return color.FgCyan
}

// pad right-aligns a value in a column, keeping its end when it is too long.
func pad(value string) string {
	runes := []rune(value)
	if len(runes) >= terminalColumnWidth {
		return string(runes[len(runes)-terminalColumnWidth:])
	}
	return strings.Repeat(" ", terminalColumnWidth-len(runes)) + value
}
