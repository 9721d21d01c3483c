package writers

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/rdf"
	"github.com/wbrown/janus-ldf/ldf/sparql"
)

const sparqlResultsNS = "http://www.w3.org/2005/sparql-results#"

// SparqlXMLWriter writes application/sparql-results+xml as a stream.
type SparqlXMLWriter struct {
	out       *errWriter
	enc       *xml.Encoder
	variables []string
	results   bool // <results> is open
	boolean   bool // a boolean was written
}

// NewSparqlXMLWriter creates a writer for SPARQL XML results.
func NewSparqlXMLWriter(w io.Writer) *SparqlXMLWriter {
	out := &errWriter{w: w}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	return &SparqlXMLWriter{out: out, enc: enc}
}

func (x *SparqlXMLWriter) WriteHead(variables []string) error {
	x.variables = variables
	x.out.WriteString(xml.Header)
	if err := x.start("sparql", xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: sparqlResultsNS}); err != nil {
		return err
	}
	if len(variables) == 0 {
		return nil
	}
	if err := x.start("head"); err != nil {
		return err
	}
	for _, name := range names(variables) {
		if err := x.start("variable", xml.Attr{Name: xml.Name{Local: "name"}, Value: name}); err != nil {
			return err
		}
		if err := x.end("variable"); err != nil {
			return err
		}
	}
	return x.end("head")
}

func (x *SparqlXMLWriter) WriteRow(row sparql.Row) error {
	if !x.results {
		if err := x.start("results"); err != nil {
			return err
		}
		x.results = true
	}
	if err := x.start("result"); err != nil {
		return err
	}
	for _, v := range rowKeys(x.variables, row) {
		value, ok := row[v]
		// Unbound variables have no binding element.
		if !ok || value == "" {
			continue
		}
		if err := x.start("binding", xml.Attr{Name: xml.Name{Local: "name"}, Value: strings.TrimPrefix(v, "?")}); err != nil {
			return err
		}
		if err := x.term(value); err != nil {
			return err
		}
		if err := x.end("binding"); err != nil {
			return err
		}
	}
	return x.end("result")
}

func (x *SparqlXMLWriter) term(value string) error {
	var (
		element = "uri"
		text    = value
		attrs   []xml.Attr
	)
	switch {
	case rdf.IsLiteral(value):
		element, text = "literal", rdf.LiteralValue(value)
		if lang := rdf.LiteralLanguage(value); lang != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xml:lang"}, Value: lang})
		} else if dt := rdf.LiteralType(value); dt != rdf.XSDString {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "datatype"}, Value: dt})
		}
	case rdf.IsBlank(value):
		element, text = "bnode", strings.TrimPrefix(value, "_:")
	}
	return x.text(element, text, attrs...)
}

func (x *SparqlXMLWriter) WriteBoolean(value bool) error {
	x.boolean = true
	return x.text("boolean", strconv.FormatBool(value))
}

func (x *SparqlXMLWriter) Flush() error {
	if !x.results && !x.boolean {
		if err := x.start("results"); err != nil {
			return err
		}
		x.results = true
	}
	if x.results {
		if err := x.end("results"); err != nil {
			return err
		}
	}
	if err := x.end("sparql"); err != nil {
		return err
	}
	if err := x.enc.Flush(); err != nil {
		return err
	}
	x.out.WriteString("\n")
	return x.out.err
}

func (x *SparqlXMLWriter) start(name string, attrs ...xml.Attr) error {
	return x.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *SparqlXMLWriter) end(name string) error {
	return x.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *SparqlXMLWriter) text(name, text string, attrs ...xml.Attr) error {
	if err := x.start(name, attrs...); err != nil {
		return err
	}
	if err := x.enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return x.end(name)
}
