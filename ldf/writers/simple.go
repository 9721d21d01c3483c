package writers

import (
	"io"
	"strconv"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/sparql"
)

// SimpleWriter lists every row as "name: value" lines with the names
// right-aligned, separating rows by a blank line.
type SimpleWriter struct {
	out       *errWriter
	variables []string
	labels    map[string]string
	empty     bool
}

// NewSimpleWriter creates a simple list writer.
func NewSimpleWriter(w io.Writer) *SimpleWriter {
	return &SimpleWriter{out: &errWriter{w: w}, empty: true}
}

func (s *SimpleWriter) WriteHead(variables []string) error {
	s.variables = variables
	width := 0
	for _, name := range names(variables) {
		width = max(width, len(name))
	}
	s.labels = make(map[string]string, len(variables))
	for _, v := range variables {
		name := strings.TrimPrefix(v, "?")
		s.labels[v] = strings.Repeat(" ", width-len(name)) + name + ": "
	}
	return nil
}

func (s *SimpleWriter) WriteRow(row sparql.Row) error {
	if !s.empty {
		s.out.WriteString("\n")
	}
	s.empty = false
	for _, v := range s.variables {
		if value, ok := row[v]; ok {
			s.out.WriteString(s.labels[v] + value + "\n")
		}
	}
	return s.out.err
}

func (s *SimpleWriter) WriteBoolean(value bool) error {
	s.out.WriteString(strconv.FormatBool(value) + "\n")
	return s.out.err
}

func (s *SimpleWriter) Flush() error { return s.out.err }
