package fragments

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	knakk "github.com/knakk/rdf"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Page is one parsed page of a fragment, split into the data triples that
// match the pattern and the metadata describing the fragment.
type Page struct {
	URL      string
	Data     []rdf.Triple
	Metadata []rdf.Triple
}

// Parser parses the body of a fragment page.
type Parser interface {
	Parse(r io.Reader, pageURL string) (*Page, error)
}

// TurtleParser parses triple-based representations. A triple is metadata
// when it is about the page itself or uses a Hydra predicate.
type TurtleParser struct {
	Format knakk.Format
}

// Parse implements Parser.
func (p TurtleParser) Parse(r io.Reader, pageURL string) (*Page, error) {
	page := &Page{URL: pageURL}
	dec := knakk.NewTripleDecoder(r, p.Format)
	for {
		kt, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return page, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fragments: parsing %s: %w", pageURL, err)
		}
		t := convertTriple(kt)
		if t.Subject == pageURL || strings.HasPrefix(t.Predicate, rdf.Hydra) {
			page.Metadata = append(page.Metadata, t)
		} else {
			page.Data = append(page.Data, t)
		}
	}
}

// QuadsParser parses N-Quads. The graph named by the first
// foaf:primaryTopic triple holds the metadata; everything else is data.
type QuadsParser struct{}

// Parse implements Parser.
func (QuadsParser) Parse(r io.Reader, pageURL string) (*Page, error) {
	page := &Page{URL: pageURL}
	dec := knakk.NewQuadDecoder(r, knakk.NQuads)
	metadataGraph := ""
	for {
		q, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return page, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fragments: parsing %s: %w", pageURL, err)
		}
		t := convertTriple(q.Triple)
		if q.Ctx != nil {
			t.Graph = convertTerm(q.Ctx)
		}
		if metadataGraph == "" && t.Predicate == rdf.FOAFPrimaryTopic {
			metadataGraph = t.Subject
		}
		if metadataGraph != "" && t.Graph == metadataGraph {
			page.Metadata = append(page.Metadata, t)
		} else {
			page.Data = append(page.Data, t)
		}
	}
}

var parsers = map[string]Parser{
	"text/turtle":           TurtleParser{Format: knakk.Turtle},
	"text/n3":               TurtleParser{Format: knakk.Turtle},
	"application/n-triples": TurtleParser{Format: knakk.NTriples},
	"application/n-quads":   QuadsParser{},
}

// ParserFor returns the parser registered for a content type. Parameters
// such as charset are ignored.
func ParserFor(contentType string) (Parser, bool) {
	p, ok := parsers[mediaType(contentType)]
	return p, ok
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func convertTriple(t knakk.Triple) rdf.Triple {
	return rdf.Triple{
		Subject:   convertTerm(t.Subj),
		Predicate: convertTerm(t.Pred),
		Object:    convertTerm(t.Obj),
	}
}

func convertTerm(term knakk.Term) string {
	switch v := term.(type) {
	case knakk.IRI:
		return v.String()
	case knakk.Blank:
		id := v.String()
		if !strings.HasPrefix(id, "_:") {
			id = "_:" + id
		}
		return id
	case knakk.Literal:
		if lang := v.Lang(); lang != "" {
			return rdf.NewLangLiteral(v.String(), lang)
		}
		return rdf.NewTypedLiteral(v.String(), v.DataType.String())
	}
	return ""
}
