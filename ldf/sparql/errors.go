package sparql

import "fmt"

// InvalidQueryError reports a query with a syntax error. No iterator is
// built for it.
type InvalidQueryError struct {
	Query string
	Err   error
}

func (e *InvalidQueryError) Error() string {
	return "Syntax error in query\n" + e.Err.Error()
}

func (e *InvalidQueryError) Unwrap() error {
	return e.Err
}

// UnsupportedQueryError reports a valid query that uses constructs the
// engine cannot evaluate.
type UnsupportedQueryError struct {
	Query string
	Err   error
}

func (e *UnsupportedQueryError) Error() string {
	return "The query is not yet supported\n" + e.Err.Error()
}

func (e *UnsupportedQueryError) Unwrap() error {
	return e.Err
}

// syntaxError is a parse error at a position in the query text.
type syntaxError struct {
	Line, Col int
	Msg       string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("Parse error on line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

// unsupported is a construct the parser recognizes but does not evaluate.
type unsupported struct {
	Line, Col int
	What      string
}

func (e *unsupported) Error() string {
	return fmt.Sprintf("%s is not supported (line %d, column %d)", e.What, e.Line, e.Col)
}
