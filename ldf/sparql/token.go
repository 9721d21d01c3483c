package sparql

import "fmt"

// TokenType represents the type of a SPARQL token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIRI           // <http://...>, brackets stripped
	TokenPrefixedName  // dbpedia:York or dbpedia:
	TokenVar           // ?x or $x, normalized to ?x
	TokenBlank         // _:b1
	TokenString        // unescaped string body
	TokenLangTag       // @en, without the @
	TokenNumber
	TokenKeyword // SELECT, a, true, regex ...
	TokenPunct   // { } ( ) [ ] . ; , * / + - = != < > <= >= ! && || ^^ ^ |
)

// Token represents a lexical token in a query
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// Is reports whether the token is the punctuation p.
func (t Token) Is(p string) bool {
	return t.Type == TokenPunct && t.Value == p
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of query"
	case TokenIRI:
		return fmt.Sprintf("IRI <%s>", t.Value)
	case TokenPrefixedName:
		return fmt.Sprintf("prefixed name %s", t.Value)
	case TokenVar:
		return fmt.Sprintf("variable %s", t.Value)
	case TokenBlank:
		return fmt.Sprintf("blank node %s", t.Value)
	case TokenString:
		return fmt.Sprintf("string %q", t.Value)
	case TokenLangTag:
		return fmt.Sprintf("language tag @%s", t.Value)
	case TokenNumber:
		return fmt.Sprintf("number %s", t.Value)
	case TokenKeyword:
		return fmt.Sprintf("'%s'", t.Value)
	default:
		return fmt.Sprintf("'%s'", t.Value)
	}
}
