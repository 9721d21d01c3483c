package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Lexer tokenizes a SPARQL query
type Lexer struct {
	input   string
	pos     int
	line    int
	col     int
	tokens  []Token
	current int
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.input) {
			break
		}
		tok, err := l.next()
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, tok)
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Line: l.line, Col: l.col})
	return nil
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	tok := l.PeekToken()
	if l.current < len(l.tokens) {
		l.current++
	}
	return tok
}

// PeekToken returns the next token without advancing
func (l *Lexer) PeekToken() Token {
	return l.PeekAt(0)
}

// PeekAt returns the token n positions ahead without advancing
func (l *Lexer) PeekAt(n int) Token {
	if l.current+n >= len(l.tokens) {
		return Token{Type: TokenEOF, Line: l.line, Col: l.col}
	}
	return l.tokens[l.current+n]
}

func (l *Lexer) next() (Token, error) {
	line, col := l.line, l.col
	tok := func(typ TokenType, value string) (Token, error) {
		return Token{Type: typ, Value: value, Line: line, Col: col}, nil
	}

	ch := l.peek()
	switch {
	case ch == '<':
		if iri, ok := l.readIRI(); ok {
			return tok(TokenIRI, iri)
		}
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return tok(TokenPunct, "<=")
		}
		return tok(TokenPunct, "<")
	case ch == '>' || ch == '!':
		l.advance()
		if l.peek() == '=' {
			l.advance()
			return tok(TokenPunct, string(ch)+"=")
		}
		return tok(TokenPunct, string(ch))
	case ch == '&' || ch == '|' || ch == '^':
		l.advance()
		if l.peek() == ch {
			l.advance()
			return tok(TokenPunct, string(ch)+string(ch))
		}
		if ch == '&' {
			return Token{}, l.errorf(line, col, "unexpected character '&'")
		}
		return tok(TokenPunct, string(ch))
	case ch == '?' || ch == '$':
		l.advance()
		name := l.readVarName()
		if name == "" {
			// property path modifier
			return tok(TokenPunct, "?")
		}
		return tok(TokenVar, "?"+name)
	case ch == '"' || ch == '\'':
		s, err := l.readString()
		if err != nil {
			return Token{}, err
		}
		return tok(TokenString, s)
	case ch == '@':
		l.advance()
		tag := l.readLangTag()
		if tag == "" {
			return Token{}, l.errorf(line, col, "expected a language tag after '@'")
		}
		return tok(TokenLangTag, tag)
	case ch == '_' && l.peekAt(1) == ':':
		l.advance()
		l.advance()
		name := l.readName()
		if name == "" {
			return Token{}, l.errorf(line, col, "expected a blank node label after '_:'")
		}
		return tok(TokenBlank, "_:"+name)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
		return tok(TokenNumber, l.readNumber())
	case ch == ':' || isNameStart(ch):
		prefix := l.readName()
		if l.peek() != ':' {
			return tok(TokenKeyword, prefix)
		}
		l.advance()
		return tok(TokenPrefixedName, prefix+":"+l.readLocalName())
	case strings.IndexByte("{}()[].;,*/+-=", ch) >= 0:
		l.advance()
		return tok(TokenPunct, string(ch))
	}
	return Token{}, l.errorf(line, col, "unexpected character '%c'", ch)
}

func (l *Lexer) errorf(line, col int, format string, args ...interface{}) error {
	return &syntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// peek returns the current character without advancing
func (l *Lexer) peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// advance moves to the next character
func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// skipWhitespaceAndComments skips whitespace and # comments
func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.peek()
		if unicode.IsSpace(rune(ch)) {
			l.advance()
		} else if ch == '#' {
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		} else {
			break
		}
	}
}

// readIRI reads <...> if the input at the cursor is an IRI reference
// rather than a comparison.
func (l *Lexer) readIRI() (string, bool) {
	end := -1
	for i := l.pos + 1; i < len(l.input); i++ {
		c := l.input[i]
		if c == '>' {
			end = i
			break
		}
		if c <= ' ' || strings.IndexByte("<\"{}|^`\\", c) >= 0 {
			return "", false
		}
	}
	if end < 0 {
		return "", false
	}
	iri := l.input[l.pos+1 : end]
	for l.pos <= end {
		l.advance()
	}
	return iri, true
}

// readString reads a single, double or long quoted string
func (l *Lexer) readString() (string, error) {
	line, col := l.line, l.col
	quote := l.peek()
	long := l.peekAt(1) == quote && l.peekAt(2) == quote
	if long {
		l.advance()
		l.advance()
	}
	l.advance()

	var result strings.Builder
	for l.pos < len(l.input) {
		ch := l.peek()
		switch {
		case ch == quote && (!long || (l.peekAt(1) == quote && l.peekAt(2) == quote)):
			if long {
				l.advance()
				l.advance()
			}
			l.advance()
			return result.String(), nil
		case (ch == '\n' || ch == '\r') && !long:
			return "", l.errorf(line, col, "unterminated string")
		case ch == '\\':
			l.advance()
			if err := l.readEscape(&result); err != nil {
				return "", err
			}
		default:
			result.WriteByte(ch)
			l.advance()
		}
	}
	return "", l.errorf(line, col, "unterminated string")
}

func (l *Lexer) readEscape(result *strings.Builder) error {
	line, col := l.line, l.col
	escaped := l.peek()
	l.advance()
	switch escaped {
	case 't':
		result.WriteByte('\t')
	case 'n':
		result.WriteByte('\n')
	case 'r':
		result.WriteByte('\r')
	case 'b':
		result.WriteByte('\b')
	case 'f':
		result.WriteByte('\f')
	case '"', '\'', '\\':
		result.WriteByte(escaped)
	case 'u', 'U':
		n := 4
		if escaped == 'U' {
			n = 8
		}
		if l.pos+n > len(l.input) {
			return l.errorf(line, col, "truncated unicode escape")
		}
		code, err := strconv.ParseUint(l.input[l.pos:l.pos+n], 16, 32)
		if err != nil {
			return l.errorf(line, col, "invalid unicode escape")
		}
		for i := 0; i < n; i++ {
			l.advance()
		}
		result.WriteRune(rune(code))
	default:
		return l.errorf(line, col, "invalid escape sequence '\\%c'", escaped)
	}
	return nil
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		n := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekAt(n)) {
			for i := 0; i < n; i++ {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return l.input[start:l.pos]
}

// readName reads a prefix, keyword or blank node label. Dots are only
// allowed inside, never at the end.
func (l *Lexer) readName() string {
	start := l.pos
	for isNameChar(l.peek()) || (l.peek() == '.' && isNameChar(l.peekAt(1))) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readVarName() string {
	start := l.pos
	for isNameStart(l.peek()) || isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	return l.input[start:l.pos]
}

// readLocalName reads the local part of a prefixed name
func (l *Lexer) readLocalName() string {
	var result strings.Builder
	for {
		ch := l.peek()
		switch {
		case isNameChar(ch) || ch == ':' || ch == '%':
			result.WriteByte(ch)
			l.advance()
		case ch == '.' && (isNameChar(l.peekAt(1)) || l.peekAt(1) == ':'):
			result.WriteByte(ch)
			l.advance()
		case ch == '\\' && l.peekAt(1) != 0 && strings.IndexByte("_~.-!$&'()*+,;=/?#@%", l.peekAt(1)) >= 0:
			l.advance()
			result.WriteByte(l.peek())
			l.advance()
		default:
			return result.String()
		}
	}
}

func (l *Lexer) readLangTag() string {
	start := l.pos
	for isLetter(l.peek()) || isDigit(l.peek()) || (l.peek() == '-' && l.pos > start) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isNameStart accepts ASCII letters and any byte of a multi-byte rune
func isNameStart(ch byte) bool {
	return isLetter(ch) || ch >= 0x80
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch) || ch == '_' || ch == '-'
}
