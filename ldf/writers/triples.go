package writers

import (
	"bufio"
	"io"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// TriplesWriter writes triples as N-Triples lines.
type TriplesWriter struct {
	out *bufio.Writer
}

// NewTriplesWriter creates a buffered N-Triples writer.
func NewTriplesWriter(w io.Writer) *TriplesWriter {
	return &TriplesWriter{out: bufio.NewWriter(w)}
}

// WriteTriple writes one triple. Blank nodes keep their labels.
func (t *TriplesWriter) WriteTriple(triple rdf.Triple) error {
	_, err := t.out.WriteString(triple.String() + "\n")
	return err
}

// Flush writes any buffered lines.
func (t *TriplesWriter) Flush() error {
	return t.out.Flush()
}
