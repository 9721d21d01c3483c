package writers

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/wbrown/janus-ldf/ldf/rdf"
	"github.com/wbrown/janus-ldf/ldf/sparql"
)

// JSONWriter writes rows as a plain JSON array of objects that map
// variables to terms.
type JSONWriter struct {
	out       *errWriter
	variables []string
	empty     bool
}

// NewJSONWriter creates a writer for application/json.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{out: &errWriter{w: w}, empty: true}
}

func (j *JSONWriter) WriteHead(variables []string) error {
	j.variables = variables
	j.out.WriteString("[")
	return j.out.err
}

func (j *JSONWriter) WriteRow(row sparql.Row) error {
	vars := rowKeys(j.variables, row)
	doc, err := object(vars, func(i int) ([]byte, bool) {
		value, ok := row[vars[i]]
		if !ok {
			return nil, false
		}
		return jsonString(value), true
	})
	if err != nil {
		return err
	}
	j.separate()
	j.out.Write(doc)
	return j.out.err
}

func (j *JSONWriter) WriteBoolean(value bool) error {
	j.separate()
	j.out.WriteString(strconv.FormatBool(value))
	return j.out.err
}

func (j *JSONWriter) separate() {
	if j.empty {
		j.out.WriteString("\n")
	} else {
		j.out.WriteString(",\n")
	}
	j.empty = false
}

func (j *JSONWriter) Flush() error {
	if j.empty {
		j.out.WriteString("]\n")
	} else {
		j.out.WriteString("\n]\n")
	}
	return j.out.err
}

// SparqlJSONWriter writes application/sparql-results+json.
type SparqlJSONWriter struct {
	out       *errWriter
	variables []string
	empty     bool
	done      bool
}

// NewSparqlJSONWriter creates a writer for SPARQL JSON results.
func NewSparqlJSONWriter(w io.Writer) *SparqlJSONWriter {
	return &SparqlJSONWriter{out: &errWriter{w: w}, empty: true}
}

func (s *SparqlJSONWriter) WriteHead(variables []string) error {
	s.variables = variables
	head := []byte("{}")
	if len(variables) > 0 {
		vars, err := json.Marshal(names(variables))
		if err != nil {
			return err
		}
		if head, err = sjson.SetRawBytes(head, "vars", vars); err != nil {
			return err
		}
	}
	s.out.WriteString(`{"head": `)
	s.out.Write(head)
	s.out.WriteString(",\n")
	return s.out.err
}

func (s *SparqlJSONWriter) WriteRow(row sparql.Row) error {
	vars := rowKeys(s.variables, row)
	doc, err := object(names(vars), func(i int) ([]byte, bool) {
		value, ok := row[vars[i]]
		if !ok || value == "" {
			return nil, false
		}
		binding, err := termObject(value)
		return binding, err == nil
	})
	if err != nil {
		return err
	}
	if s.empty {
		s.out.WriteString(`"results": { "bindings": [` + "\n")
	} else {
		s.out.WriteString(",\n")
	}
	s.empty = false
	s.out.Write(doc)
	return s.out.err
}

func (s *SparqlJSONWriter) WriteBoolean(value bool) error {
	s.done = true
	s.out.WriteString(`"boolean":` + strconv.FormatBool(value) + "}\n")
	return s.out.err
}

func (s *SparqlJSONWriter) Flush() error {
	switch {
	case s.done:
	case s.empty:
		s.out.WriteString(`"results": { "bindings": [] }}` + "\n")
	default:
		s.out.WriteString("\n]}}\n")
	}
	return s.out.err
}

// termObject describes a term the way SPARQL JSON results do.
func termObject(term string) ([]byte, error) {
	doc := []byte("{}")
	set := func(key, value string) (err error) {
		doc, err = sjson.SetRawBytes(doc, escapePath(key), jsonString(value))
		return err
	}
	var err error
	switch {
	case rdf.IsLiteral(term):
		err = set("value", rdf.LiteralValue(term))
		if err == nil {
			err = set("type", "literal")
		}
		if lang := rdf.LiteralLanguage(term); err == nil && lang != "" {
			err = set("xml:lang", lang)
		} else if dt := rdf.LiteralType(term); err == nil && dt != rdf.XSDString {
			err = set("datatype", dt)
		}
	case rdf.IsBlank(term):
		err = set("value", strings.TrimPrefix(term, "_:"))
		if err == nil {
			err = set("type", "bnode")
		}
	default:
		err = set("value", term)
		if err == nil {
			err = set("type", "uri")
		}
	}
	return doc, err
}

// object builds a JSON object with the given keys in order, skipping the
// keys for which value reports false.
func object(keys []string, value func(i int) ([]byte, bool)) ([]byte, error) {
	doc := []byte("{}")
	for i, key := range keys {
		raw, ok := value(i)
		if !ok {
			continue
		}
		var err error
		if doc, err = sjson.SetRawBytes(doc, escapePath(key), raw); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// rowKeys returns the variables of the head, or the sorted variables of the
// row when the head has none.
func rowKeys(variables []string, row sparql.Row) []string {
	if len(variables) > 0 {
		return variables
	}
	vars := make([]string, 0, len(row))
	for v := range row {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

func jsonString(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// escapePath escapes the characters that have a meaning in sjson paths.
func escapePath(key string) string {
	var sb strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?#|@:!=<>%~`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
