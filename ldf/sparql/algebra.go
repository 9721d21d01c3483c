// Package sparql evaluates SPARQL queries over a fragments client. Queries
// are parsed into a small algebra, which is assembled into a cascade of
// iterators whose leaves are the reordering graph pattern iterators of the
// engine package.
package sparql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// QueryType is the form of a query.
type QueryType string

const (
	Select    QueryType = "SELECT"
	Construct QueryType = "CONSTRUCT"
	Describe  QueryType = "DESCRIBE"
	Ask       QueryType = "ASK"
)

// GroupType tags a graph pattern group.
type GroupType string

const (
	GroupBGP      GroupType = "bgp"
	GroupGroup    GroupType = "group"
	GroupOptional GroupType = "optional"
	GroupUnion    GroupType = "union"
	GroupFilter   GroupType = "filter"
)

// Query is the algebra of a parsed query.
type Query struct {
	Type      QueryType
	Variables []string // projected variables, or "*"
	Where     []Group
	Order     []OrderKey
	Distinct  bool
	Offset    int
	Limit     int          // -1 when absent
	Template  []rdf.Triple // CONSTRUCT template
	Prefixes  map[string]string
	Base      string
}

// Group is one element of a group graph pattern.
//
//	bgp:      Triples
//	group:    Patterns, evaluated in sequence
//	optional: Patterns, evaluated in sequence with unmatched bindings kept
//	union:    Patterns, each one alternative
//	filter:   Expression
type Group struct {
	Type       GroupType
	Triples    []rdf.Triple
	Patterns   []Group
	Expression *Expression
}

// OrderKey is one ORDER BY condition.
type OrderKey struct {
	Expression Expression
	Descending bool
}

// ExpressionType distinguishes operations from terms.
type ExpressionType string

const (
	ExprOperation ExpressionType = "operation"
	ExprTerm      ExpressionType = "term"
)

// Expression is a FILTER or ORDER BY expression. Operators are lowercase:
// "+", "&&", "regex", "notin" and so on. Terms are in the rdf package's
// string form.
type Expression struct {
	Type     ExpressionType
	Operator string
	Args     []Expression
	Term     string
}

// Term returns a term expression.
func Term(term string) Expression {
	return Expression{Type: ExprTerm, Term: term}
}

// Operation returns an operation expression. Built-in operators must be
// lowercase.
func Operation(operator string, args ...Expression) Expression {
	return Expression{Type: ExprOperation, Operator: operator, Args: args}
}

func (e Expression) String() string {
	if e.Type == ExprTerm {
		return rdf.FormatTerm(e.Term)
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Operator, strings.Join(args, ", "))
}

// IsTerm reports whether the expression is a single term.
func (e Expression) IsTerm() bool {
	return e.Type == ExprTerm
}

// ProjectedVariables returns the projected variables, expanding "*" to the
// variables of the WHERE clause.
func (q *Query) ProjectedVariables() []string {
	if len(q.Variables) != 1 || q.Variables[0] != "*" {
		return q.Variables
	}
	var vars []string
	var walk func(groups []Group)
	walk = func(groups []Group) {
		for _, g := range groups {
			for _, v := range rdf.DistinctVariables(g.Triples) {
				if !slices.Contains(vars, v) {
					vars = append(vars, v)
				}
			}
			walk(g.Patterns)
		}
	}
	walk(q.Where)
	return vars
}
