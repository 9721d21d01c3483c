package writers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
	"github.com/wbrown/janus-ldf/ldf/sparql"
)

// ResultWriter serializes the solutions of a SELECT or ASK query.
// WriteHead is called once before any row or boolean, Flush once at the end.
type ResultWriter interface {
	WriteHead(variables []string) error
	WriteRow(row sparql.Row) error
	WriteBoolean(value bool) error
	Flush() error
}

// DefaultFormat is the format used when none is given.
const DefaultFormat = "application/json"

var registry = map[string]func(io.Writer) ResultWriter{}

// Register makes a writer available under a media type or short name.
func Register(format string, create func(io.Writer) ResultWriter) {
	registry[strings.ToLower(format)] = create
}

func init() {
	Register("application/json", func(w io.Writer) ResultWriter { return NewJSONWriter(w) })
	Register("json", func(w io.Writer) ResultWriter { return NewJSONWriter(w) })
	Register("application/sparql-results+json", func(w io.Writer) ResultWriter { return NewSparqlJSONWriter(w) })
	Register("sparql-json", func(w io.Writer) ResultWriter { return NewSparqlJSONWriter(w) })
	Register("application/sparql-results+xml", func(w io.Writer) ResultWriter { return NewSparqlXMLWriter(w) })
	Register("sparql-xml", func(w io.Writer) ResultWriter { return NewSparqlXMLWriter(w) })
	Register("table", func(w io.Writer) ResultWriter { return NewTableWriter(w) })
	Register("terminal", func(w io.Writer) ResultWriter { return NewTerminalWriter(w) })
	Register("simple", func(w io.Writer) ResultWriter { return NewSimpleWriter(w) })
	Register("debug", func(w io.Writer) ResultWriter { return NewStatsWriter(w) })
}

// New creates the writer registered for format.
func New(format string, w io.Writer) (ResultWriter, error) {
	create, ok := registry[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no writer available for media type %s", format)
	}
	return create(w), nil
}

// Formats lists the registered formats.
func Formats() []string {
	formats := make([]string, 0, len(registry))
	for f := range registry {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Write drives a query result to completion and serializes it. CONSTRUCT
// and DESCRIBE results are written as N-Triples whatever the format. It
// returns the number of rows, triples or booleans written.
func Write(ctx context.Context, out io.Writer, format string, res *sparql.Result) (int, error) {
	count := 0
	if res.Triples != nil {
		tw := NewTriplesWriter(out)
		err := iterator.ForEach(ctx, res.Triples, func(t rdf.Triple) error {
			count++
			return tw.WriteTriple(t)
		})
		if err != nil {
			return count, err
		}
		return count, tw.Flush()
	}

	w, err := New(format, out)
	if err != nil {
		return 0, err
	}
	if err := w.WriteHead(res.Variables); err != nil {
		return 0, err
	}
	switch {
	case res.Boolean != nil:
		err = iterator.ForEach(ctx, res.Boolean, func(b bool) error {
			count++
			return w.WriteBoolean(b)
		})
	case res.Rows != nil:
		err = iterator.ForEach(ctx, res.Rows, func(r sparql.Row) error {
			count++
			return w.WriteRow(r)
		})
	default:
		err = fmt.Errorf("no results to write for %s query", res.Type)
	}
	if err != nil {
		return count, err
	}
	return count, w.Flush()
}

// names strips the question marks of variables.
func names(variables []string) []string {
	out := make([]string, len(variables))
	for i, v := range variables {
		out[i] = strings.TrimPrefix(v, "?")
	}
	return out
}

// errWriter remembers the first write error so writers can check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) WriteString(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
