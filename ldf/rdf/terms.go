// Package rdf provides RDF terms, triples, triple patterns and bindings.
//
// Terms are plain strings: IRIs are written without brackets, literals as
// "value", "value"@lang or "value"^^datatype, blank nodes as _:label and
// variables as ?name.
package rdf

import (
	"net/url"
	"regexp"
	"strings"
)

// IsVariable reports whether term is a variable.
func IsVariable(term string) bool {
	return strings.HasPrefix(term, "?")
}

// IsBlank reports whether term is a blank node.
func IsBlank(term string) bool {
	return strings.HasPrefix(term, "_:")
}

// IsVariableOrBlank reports whether term is a variable or a blank node.
func IsVariableOrBlank(term string) bool {
	return IsVariable(term) || IsBlank(term)
}

// IsLiteral reports whether term is a literal.
func IsLiteral(term string) bool {
	return strings.HasPrefix(term, `"`)
}

// IsIRI reports whether term is an IRI.
func IsIRI(term string) bool {
	return term != "" && !IsLiteral(term) && !IsVariableOrBlank(term)
}

// LiteralValue returns the lexical value of a literal.
func LiteralValue(term string) string {
	if !IsLiteral(term) {
		return ""
	}
	end := strings.LastIndexByte(term, '"')
	if end <= 0 {
		return term[1:]
	}
	return term[1:end]
}

// LiteralLanguage returns the lowercased language tag of a literal.
func LiteralLanguage(term string) string {
	suffix := literalSuffix(term)
	if strings.HasPrefix(suffix, "@") {
		return strings.ToLower(suffix[1:])
	}
	return ""
}

// LiteralType returns the datatype IRI of a literal.
func LiteralType(term string) string {
	suffix := literalSuffix(term)
	switch {
	case strings.HasPrefix(suffix, "^^"):
		return suffix[2:]
	case strings.HasPrefix(suffix, "@"):
		return RDFLangString
	}
	return XSDString
}

func literalSuffix(term string) string {
	if !IsLiteral(term) {
		return ""
	}
	end := strings.LastIndexByte(term, '"')
	if end <= 0 {
		return ""
	}
	return term[end+1:]
}

// NewLiteral creates a plain literal.
func NewLiteral(value string) string {
	return `"` + value + `"`
}

// NewLangLiteral creates a language-tagged literal.
func NewLangLiteral(value, lang string) string {
	return `"` + value + `"@` + lang
}

// NewTypedLiteral creates a typed literal. String literals stay plain.
func NewTypedLiteral(value, datatype string) string {
	if datatype == "" || datatype == XSDString {
		return NewLiteral(value)
	}
	return `"` + value + `"^^` + datatype
}

// DecodedURIEquals compares two IRIs after percent-decoding.
func DecodedURIEquals(a, b string) bool {
	if a == b {
		return true
	}
	da, err := url.PathUnescape(a)
	if err != nil {
		return false
	}
	db, err := url.PathUnescape(b)
	if err != nil {
		return false
	}
	return da == db
}

var (
	genid    = regexp.MustCompile(`^https?://[^/]+/\.well-known/genid/(.+)$`)
	nonWord  = regexp.MustCompile(`\W`)
	lastWord = regexp.MustCompile(`([a-zA-Z()_.,'0-9]+)[^a-zA-Z]*?$`)
)

// Deskolemize turns a skolem IRI back into a blank node.
func Deskolemize(term string) string {
	m := genid.FindStringSubmatch(term)
	if m == nil {
		return term
	}
	return "_:" + nonWord.ReplaceAllString(m[1], "_")
}

// QuickString abbreviates a term for logs.
func QuickString(term string) string {
	switch {
	case term == "":
		return ""
	case IsVariableOrBlank(term):
		return term
	case IsLiteral(term):
		return `"` + LiteralValue(term) + `"`
	}
	if m := lastWord.FindStringSubmatch(term); m != nil {
		return m[1]
	}
	return term
}
