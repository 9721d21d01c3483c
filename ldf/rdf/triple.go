package rdf

import (
	"slices"
	"strconv"
	"strings"
)

// Triple is a triple or quad. As a pattern, any position may hold a
// variable; an empty Graph matches the default graph.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Graph     string `json:"graph,omitempty"`
}

// NewTriple creates a triple in the default graph.
func NewTriple(s, p, o string) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// Terms returns subject, predicate, object and, if set, graph.
func (t Triple) Terms() []string {
	if t.Graph == "" {
		return []string{t.Subject, t.Predicate, t.Object}
	}
	return []string{t.Subject, t.Predicate, t.Object, t.Graph}
}

// HasVariables reports whether any position is a variable.
func (t Triple) HasVariables() bool {
	for _, term := range t.Terms() {
		if IsVariable(term) {
			return true
		}
	}
	return false
}

// Variables returns the distinct variables of the pattern in position
// order.
func (t Triple) Variables() []string {
	var vars []string
	for _, term := range t.Terms() {
		if IsVariable(term) && !slices.Contains(vars, term) {
			vars = append(vars, term)
		}
	}
	return vars
}

// Normalize replaces variables and blank nodes with the empty string, the
// form used to address fragments.
func (t Triple) Normalize() Triple {
	norm := func(term string) string {
		if IsVariableOrBlank(term) {
			return ""
		}
		return term
	}
	return Triple{
		Subject:   norm(t.Subject),
		Predicate: norm(t.Predicate),
		Object:    norm(t.Object),
		Graph:     norm(t.Graph),
	}
}

// Key returns a canonical cache key for the fragment of the pattern.
func (t Triple) Key() string {
	n := t.Normalize()
	return strconv.Quote(n.Subject) + " " + strconv.Quote(n.Predicate) + " " +
		strconv.Quote(n.Object) + " " + strconv.Quote(n.Graph)
}

// Matches reports whether triple matches the constant positions of t.
func (t Triple) Matches(triple Triple) bool {
	match := func(p, v string) bool {
		return p == "" || IsVariableOrBlank(p) || p == v
	}
	return match(t.Subject, triple.Subject) &&
		match(t.Predicate, triple.Predicate) &&
		match(t.Object, triple.Object) &&
		match(t.Graph, triple.Graph)
}

// IsBoundPatternOf reports whether child is parent with some variables
// bound.
func (t Triple) IsBoundPatternOf(parent Triple) bool {
	bound := func(p, c string) bool {
		return IsVariable(p) || p == c
	}
	return bound(parent.Subject, t.Subject) &&
		bound(parent.Predicate, t.Predicate) &&
		bound(parent.Object, t.Object)
}

// String returns the pattern in N-Triples-like syntax.
func (t Triple) String() string {
	var sb strings.Builder
	for i, term := range t.Terms() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(FormatTerm(term))
	}
	sb.WriteString(" .")
	return sb.String()
}

// QuickString abbreviates the pattern for logs.
func (t Triple) QuickString() string {
	return QuickString(t.Subject) + " " + QuickString(t.Predicate) + " " + QuickString(t.Object) + "."
}

// FormatTerm writes a term in N-Triples syntax.
func FormatTerm(term string) string {
	switch {
	case IsVariableOrBlank(term):
		return term
	case IsLiteral(term):
		value := strconv.Quote(LiteralValue(term))
		if lang := LiteralLanguage(term); lang != "" {
			return value + "@" + lang
		}
		if dt := LiteralType(term); dt != XSDString {
			return value + "^^<" + dt + ">"
		}
		return value
	}
	return "<" + term + ">"
}
