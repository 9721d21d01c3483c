package sparql

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// aggregates are recognized so they can be reported as unsupported
var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true,
	"AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

// Parser parses query tokens into the query algebra
type Parser struct {
	lexer    *Lexer
	prefixes map[string]string
	base     *url.URL
	blanks   int
}

// NewParser creates a new parser. Prefixes are predeclared for the query.
func NewParser(lexer *Lexer, prefixes map[string]string) *Parser {
	p := &Parser{lexer: lexer, prefixes: make(map[string]string)}
	for k, v := range prefixes {
		p.prefixes[k] = v
	}
	return p
}

// Parse parses a SPARQL query. Syntax errors are returned as an
// *InvalidQueryError, recognized but unsupported constructs as an
// *UnsupportedQueryError.
func Parse(query string) (*Query, error) {
	return ParseWithPrefixes(query, nil)
}

// ParseWithPrefixes parses a query with predeclared prefixes.
func ParseWithPrefixes(query string, prefixes map[string]string) (*Query, error) {
	lexer := NewLexer(query)
	err := lexer.Lex()
	var q *Query
	if err == nil {
		q, err = NewParser(lexer, prefixes).Parse()
	}
	if err == nil {
		return q, nil
	}
	var u *unsupported
	if errors.As(err, &u) {
		return nil, &UnsupportedQueryError{Query: query, Err: err}
	}
	return nil, &InvalidQueryError{Query: query, Err: err}
}

// Parse reads a complete query
func (p *Parser) Parse() (*Query, error) {
	q := &Query{Limit: -1}
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	tok := p.lexer.NextToken()
	var err error
	switch p.keyword(tok) {
	case "SELECT":
		err = p.parseSelect(q)
	case "CONSTRUCT":
		err = p.parseConstruct(q)
	case "DESCRIBE":
		err = p.parseDescribe(q)
	case "ASK":
		q.Type = Ask
		q.Where, err = p.parseWhereClause()
	default:
		return nil, p.unexpected(tok, "SELECT, CONSTRUCT, DESCRIBE or ASK")
	}
	if err != nil {
		return nil, err
	}
	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	if tok := p.lexer.PeekToken(); tok.Type != TokenEOF {
		if p.keyword(tok) == "VALUES" {
			return nil, p.unsupported(tok, "VALUES")
		}
		return nil, p.unexpected(tok, "end of query")
	}

	q.Prefixes = p.prefixes
	if p.base != nil {
		q.Base = p.base.String()
	}
	return q, nil
}

func (p *Parser) parsePrologue() error {
	for {
		tok := p.lexer.PeekToken()
		switch p.keyword(tok) {
		case "BASE":
			p.lexer.NextToken()
			iri := p.lexer.NextToken()
			if iri.Type != TokenIRI {
				return p.unexpected(iri, "an IRI after BASE")
			}
			base, err := url.Parse(p.resolve(iri.Value))
			if err != nil {
				return p.errorf(iri, "invalid base IRI: %v", err)
			}
			p.base = base
		case "PREFIX":
			p.lexer.NextToken()
			name := p.lexer.NextToken()
			if name.Type != TokenPrefixedName || !strings.HasSuffix(name.Value, ":") {
				return p.unexpected(name, "a prefix name like foaf:")
			}
			iri := p.lexer.NextToken()
			if iri.Type != TokenIRI {
				return p.unexpected(iri, "an IRI after PREFIX "+name.Value)
			}
			p.prefixes[strings.TrimSuffix(name.Value, ":")] = p.resolve(iri.Value)
		default:
			return nil
		}
	}
}

func (p *Parser) parseSelect(q *Query) error {
	q.Type = Select
	p.parseDistinct(q)
	if p.lexer.PeekToken().Is("*") {
		p.lexer.NextToken()
		q.Variables = []string{"*"}
	} else {
		for {
			tok := p.lexer.PeekToken()
			if tok.Is("(") {
				return p.unsupported(tok, "SELECT expressions")
			}
			if tok.Type != TokenVar {
				break
			}
			p.lexer.NextToken()
			q.Variables = append(q.Variables, tok.Value)
		}
		if len(q.Variables) == 0 {
			return p.unexpected(p.lexer.PeekToken(), "variables or '*' after SELECT")
		}
	}
	if err := p.parseDatasetClause(); err != nil {
		return err
	}
	var err error
	q.Where, err = p.parseWhereClause()
	return err
}

// parseDistinct reads DISTINCT or REDUCED. Removing every duplicate is a
// valid REDUCED.
func (p *Parser) parseDistinct(q *Query) {
	switch p.keyword(p.lexer.PeekToken()) {
	case "DISTINCT", "REDUCED":
		p.lexer.NextToken()
		q.Distinct = true
	}
}

func (p *Parser) parseConstruct(q *Query) error {
	q.Type = Construct
	if p.keyword(p.lexer.PeekToken()) == "WHERE" {
		// CONSTRUCT WHERE { template }
		p.lexer.NextToken()
		if err := p.expect("{"); err != nil {
			return err
		}
		triples, err := p.parseTriplesTemplate()
		if err != nil {
			return err
		}
		q.Template = triples
		q.Where = []Group{{Type: GroupBGP, Triples: triples}}
		return nil
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	triples, err := p.parseTriplesTemplate()
	if err != nil {
		return err
	}
	q.Template = triples
	if err := p.parseDatasetClause(); err != nil {
		return err
	}
	q.Where, err = p.parseWhereClause()
	return err
}

func (p *Parser) parseDescribe(q *Query) error {
	q.Type = Describe
	if p.lexer.PeekToken().Is("*") {
		p.lexer.NextToken()
		q.Variables = []string{"*"}
	} else {
		for {
			tok := p.lexer.PeekToken()
			if tok.Type != TokenVar && tok.Type != TokenIRI && tok.Type != TokenPrefixedName {
				break
			}
			term, err := p.parseTerm()
			if err != nil {
				return err
			}
			q.Variables = append(q.Variables, term)
		}
		if len(q.Variables) == 0 {
			return p.unexpected(p.lexer.PeekToken(), "variables, IRIs or '*' after DESCRIBE")
		}
	}
	if err := p.parseDatasetClause(); err != nil {
		return err
	}
	tok := p.lexer.PeekToken()
	if p.keyword(tok) == "WHERE" || tok.Is("{") {
		var err error
		q.Where, err = p.parseWhereClause()
		return err
	}
	return nil
}

func (p *Parser) parseDatasetClause() error {
	if tok := p.lexer.PeekToken(); p.keyword(tok) == "FROM" {
		return p.unsupported(tok, "FROM")
	}
	return nil
}

func (p *Parser) parseWhereClause() ([]Group, error) {
	if p.keyword(p.lexer.PeekToken()) == "WHERE" {
		p.lexer.NextToken()
	}
	return p.parseGroupGraphPattern()
}

func (p *Parser) parseSolutionModifiers(q *Query) error {
	tok := p.lexer.PeekToken()
	switch p.keyword(tok) {
	case "GROUP":
		return p.unsupported(tok, "GROUP BY")
	case "HAVING":
		return p.unsupported(tok, "HAVING")
	}
	if p.keyword(tok) == "ORDER" {
		p.lexer.NextToken()
		if by := p.lexer.NextToken(); p.keyword(by) != "BY" {
			return p.unexpected(by, "BY after ORDER")
		}
		for {
			key, ok, err := p.parseOrderCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.Order = append(q.Order, key)
		}
		if len(q.Order) == 0 {
			return p.unexpected(p.lexer.PeekToken(), "an order condition")
		}
	}
	for {
		tok := p.lexer.PeekToken()
		kw := p.keyword(tok)
		if kw != "LIMIT" && kw != "OFFSET" {
			return nil
		}
		p.lexer.NextToken()
		num := p.lexer.NextToken()
		n, err := strconv.Atoi(num.Value)
		if num.Type != TokenNumber || err != nil || n < 0 {
			return p.unexpected(num, "a non-negative integer after "+kw)
		}
		if kw == "LIMIT" {
			q.Limit = n
		} else {
			q.Offset = n
		}
	}
}

func (p *Parser) parseOrderCondition() (OrderKey, bool, error) {
	tok := p.lexer.PeekToken()
	switch kw := p.keyword(tok); {
	case kw == "ASC" || kw == "DESC":
		p.lexer.NextToken()
		if err := p.expect("("); err != nil {
			return OrderKey{}, false, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return OrderKey{}, false, err
		}
		if err := p.expect(")"); err != nil {
			return OrderKey{}, false, err
		}
		return OrderKey{Expression: expr, Descending: kw == "DESC"}, true, nil
	case tok.Type == TokenVar:
		p.lexer.NextToken()
		return OrderKey{Expression: Term(tok.Value)}, true, nil
	case tok.Is("("), p.isFunctionCall():
		expr, err := p.parsePrimary()
		return OrderKey{Expression: expr}, err == nil, err
	}
	return OrderKey{}, false, nil
}

// parseGroupGraphPattern reads { ... } into a list of groups. Consecutive
// triples form one bgp; filters are moved to the end of their group since
// they constrain the whole group.
func (p *Parser) parseGroupGraphPattern() ([]Group, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	if tok := p.lexer.PeekToken(); p.keyword(tok) == "SELECT" {
		return nil, p.unsupported(tok, "Sub-queries")
	}

	var groups, filters []Group
	var bgp []rdf.Triple
	flush := func() {
		if len(bgp) > 0 {
			groups = append(groups, Group{Type: GroupBGP, Triples: bgp})
			bgp = nil
		}
	}

	for {
		tok := p.lexer.PeekToken()
		switch kw := p.keyword(tok); {
		case tok.Is("}"):
			p.lexer.NextToken()
			flush()
			return append(groups, filters...), nil

		case tok.Type == TokenEOF:
			return nil, p.unexpected(tok, "'}'")

		case tok.Is("{"):
			flush()
			group, err := p.parseGroupOrUnion()
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)

		case kw == "OPTIONAL":
			p.lexer.NextToken()
			flush()
			patterns, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			groups = append(groups, Group{Type: GroupOptional, Patterns: patterns})

		case kw == "FILTER":
			p.lexer.NextToken()
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			filters = append(filters, Group{Type: GroupFilter, Expression: &expr})

		case kw == "MINUS" || kw == "GRAPH" || kw == "SERVICE" || kw == "BIND" || kw == "VALUES":
			return nil, p.unsupported(tok, kw)

		case tok.Is("."):
			p.lexer.NextToken()

		default:
			triples, err := p.parseTriplesSameSubject()
			if err != nil {
				return nil, err
			}
			bgp = append(bgp, triples...)
			next := p.lexer.PeekToken()
			if !next.Is(".") && !next.Is("}") && !next.Is("{") && p.keyword(next) == "" {
				return nil, p.unexpected(next, "'.' or '}'")
			}
		}
	}
}

// parseGroupOrUnion reads { ... } (UNION { ... })*
func (p *Parser) parseGroupOrUnion() (Group, error) {
	patterns, err := p.parseGroupGraphPattern()
	if err != nil {
		return Group{}, err
	}
	group := Group{Type: GroupGroup, Patterns: patterns}
	if p.keyword(p.lexer.PeekToken()) != "UNION" {
		return group, nil
	}
	union := Group{Type: GroupUnion, Patterns: []Group{group}}
	for p.keyword(p.lexer.PeekToken()) == "UNION" {
		p.lexer.NextToken()
		patterns, err := p.parseGroupGraphPattern()
		if err != nil {
			return Group{}, err
		}
		union.Patterns = append(union.Patterns, Group{Type: GroupGroup, Patterns: patterns})
	}
	return union, nil
}

// parseTriplesTemplate reads the triples of a CONSTRUCT template up to }
func (p *Parser) parseTriplesTemplate() ([]rdf.Triple, error) {
	var triples []rdf.Triple
	for {
		tok := p.lexer.PeekToken()
		switch {
		case tok.Is("}"):
			p.lexer.NextToken()
			return triples, nil
		case tok.Is("."):
			p.lexer.NextToken()
		case tok.Type == TokenEOF:
			return nil, p.unexpected(tok, "'}'")
		default:
			t, err := p.parseTriplesSameSubject()
			if err != nil {
				return nil, err
			}
			triples = append(triples, t...)
		}
	}
}

// parseTriplesSameSubject reads a subject with its property list
func (p *Parser) parseTriplesSameSubject() ([]rdf.Triple, error) {
	var triples []rdf.Triple
	tok := p.lexer.PeekToken()
	if tok.Is("[") {
		subject, err := p.parseBlankNodePropertyList(&triples)
		if err != nil {
			return nil, err
		}
		// [ :p :o ] alone is a complete triples block
		if next := p.lexer.PeekToken(); next.Is(".") || next.Is("}") {
			return triples, nil
		}
		return triples, p.parsePropertyList(subject, &triples)
	}
	if tok.Is("(") {
		return nil, p.unsupported(tok, "RDF collections")
	}
	subject, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return triples, p.parsePropertyList(subject, &triples)
}

// parsePropertyList reads verb objectList (; verb objectList)*
func (p *Parser) parsePropertyList(subject string, triples *[]rdf.Triple) error {
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		for {
			object, err := p.parseObject(triples)
			if err != nil {
				return err
			}
			*triples = append(*triples, rdf.NewTriple(subject, verb, object))
			if !p.lexer.PeekToken().Is(",") {
				break
			}
			p.lexer.NextToken()
		}
		if !p.lexer.PeekToken().Is(";") {
			return nil
		}
		for p.lexer.PeekToken().Is(";") {
			p.lexer.NextToken()
		}
		if next := p.lexer.PeekToken(); next.Is(".") || next.Is("}") || next.Is("]") {
			return nil
		}
	}
}

func (p *Parser) parseVerb() (string, error) {
	tok := p.lexer.PeekToken()
	switch {
	case tok.Type == TokenKeyword && tok.Value == "a":
		p.lexer.NextToken()
		return rdf.RDFType, nil
	case tok.Is("^"), tok.Is("!"), tok.Is("("):
		return "", p.unsupported(tok, "Property paths")
	}
	verb, err := p.parseTerm()
	if err != nil {
		return "", err
	}
	if rdf.IsLiteral(verb) || rdf.IsBlank(verb) {
		return "", p.errorf(tok, "%s cannot be a predicate", tok)
	}
	next := p.lexer.PeekToken()
	for _, path := range []string{"/", "|", "^", "*", "+", "?"} {
		if next.Is(path) {
			return "", p.unsupported(next, "Property paths")
		}
	}
	return verb, nil
}

func (p *Parser) parseObject(triples *[]rdf.Triple) (string, error) {
	tok := p.lexer.PeekToken()
	switch {
	case tok.Is("["):
		return p.parseBlankNodePropertyList(triples)
	case tok.Is("("):
		return "", p.unsupported(tok, "RDF collections")
	}
	return p.parseTerm()
}

// parseBlankNodePropertyList reads [ ... ] and returns its blank node
func (p *Parser) parseBlankNodePropertyList(triples *[]rdf.Triple) (string, error) {
	p.lexer.NextToken()
	node := p.newBlank()
	if p.lexer.PeekToken().Is("]") {
		p.lexer.NextToken()
		return node, nil
	}
	if err := p.parsePropertyList(node, triples); err != nil {
		return "", err
	}
	return node, p.expect("]")
}

func (p *Parser) newBlank() string {
	p.blanks++
	return fmt.Sprintf("_:g%d", p.blanks)
}

// parseTerm reads a variable, IRI, blank node or literal
func (p *Parser) parseTerm() (string, error) {
	tok := p.lexer.NextToken()
	switch tok.Type {
	case TokenVar, TokenBlank:
		return tok.Value, nil
	case TokenIRI:
		return p.resolve(tok.Value), nil
	case TokenPrefixedName:
		return p.expand(tok)
	case TokenString:
		return p.parseLiteral(tok)
	case TokenNumber:
		return numericLiteral(tok.Value), nil
	case TokenKeyword:
		switch strings.ToLower(tok.Value) {
		case "true", "false":
			return rdf.NewTypedLiteral(strings.ToLower(tok.Value), rdf.XSDBoolean), nil
		}
	case TokenPunct:
		if (tok.Value == "-" || tok.Value == "+") && p.lexer.PeekToken().Type == TokenNumber {
			num := p.lexer.NextToken()
			sign := tok.Value
			if sign == "+" {
				sign = ""
			}
			return numericLiteral(sign + num.Value), nil
		}
		if tok.Value == "[" && p.lexer.PeekToken().Is("]") {
			p.lexer.NextToken()
			return p.newBlank(), nil
		}
	}
	return "", p.unexpected(tok, "a term")
}

func (p *Parser) parseLiteral(tok Token) (string, error) {
	next := p.lexer.PeekToken()
	switch {
	case next.Type == TokenLangTag:
		p.lexer.NextToken()
		return rdf.NewLangLiteral(tok.Value, next.Value), nil
	case next.Is("^^"):
		p.lexer.NextToken()
		dt := p.lexer.NextToken()
		var datatype string
		switch dt.Type {
		case TokenIRI:
			datatype = p.resolve(dt.Value)
		case TokenPrefixedName:
			var err error
			if datatype, err = p.expand(dt); err != nil {
				return "", err
			}
		default:
			return "", p.unexpected(dt, "a datatype IRI")
		}
		return rdf.NewTypedLiteral(tok.Value, datatype), nil
	}
	return rdf.NewLiteral(tok.Value), nil
}

func numericLiteral(value string) string {
	switch {
	case strings.ContainsAny(value, "eE"):
		return rdf.NewTypedLiteral(value, rdf.XSDDouble)
	case strings.Contains(value, "."):
		return rdf.NewTypedLiteral(value, rdf.XSDDecimal)
	}
	return rdf.NewTypedLiteral(value, rdf.XSDInteger)
}

// expand turns a prefixed name into an IRI
func (p *Parser) expand(tok Token) (string, error) {
	prefix, local, _ := strings.Cut(tok.Value, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf(tok, "Unknown prefix: %s", prefix)
	}
	return ns + local, nil
}

// resolve resolves a relative IRI against the base
func (p *Parser) resolve(iri string) string {
	if p.base == nil {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil || ref.IsAbs() {
		return iri
	}
	return p.base.ResolveReference(ref).String()
}

// parseConstraint reads the expression after FILTER
func (p *Parser) parseConstraint() (Expression, error) {
	tok := p.lexer.PeekToken()
	if tok.Is("(") {
		p.lexer.NextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return Expression{}, err
		}
		return expr, p.expect(")")
	}
	if p.isFunctionCall() {
		return p.parsePrimary()
	}
	return Expression{}, p.unexpected(tok, "'(' or a function call after FILTER")
}

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseBinary(0)
}

// binary operators by precedence level, loosest first
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"=", "!=", "<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/"},
}

func (p *Parser) parseBinary(level int) (Expression, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return Expression{}, err
	}
	for {
		tok := p.lexer.PeekToken()
		op := ""
		for _, candidate := range binaryLevels[level] {
			if tok.Is(candidate) {
				op = candidate
			}
		}
		if op == "" && level == 2 {
			if in, err := p.parseIn(left); in != nil || err != nil {
				if err != nil {
					return Expression{}, err
				}
				return *in, nil
			}
		}
		if op == "" {
			return left, nil
		}
		p.lexer.NextToken()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return Expression{}, err
		}
		left = Operation(op, left, right)
		if level == 2 {
			// relational operators do not chain
			return left, nil
		}
	}
}

// parseIn reads [NOT] IN (expr, ...) after left, if present
func (p *Parser) parseIn(left Expression) (*Expression, error) {
	tok := p.lexer.PeekToken()
	op := ""
	switch {
	case p.keyword(tok) == "IN":
		op = "in"
		p.lexer.NextToken()
	case p.keyword(tok) == "NOT" && p.keyword(p.lexer.PeekAt(1)) == "IN":
		op = "notin"
		p.lexer.NextToken()
		p.lexer.NextToken()
	default:
		return nil, nil
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	expr := Operation(op, append([]Expression{left}, args...)...)
	return &expr, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	tok := p.lexer.PeekToken()
	switch {
	case tok.Is("!"):
		p.lexer.NextToken()
		arg, err := p.parseUnary()
		return Operation("!", arg), err
	case tok.Is("+"):
		p.lexer.NextToken()
		return p.parseUnary()
	case tok.Is("-"):
		p.lexer.NextToken()
		arg, err := p.parseUnary()
		if err != nil {
			return Expression{}, err
		}
		if arg.IsTerm() && rdf.IsLiteral(arg.Term) && !strings.HasPrefix(rdf.LiteralValue(arg.Term), "-") {
			if dt := rdf.LiteralType(arg.Term); dt == rdf.XSDInteger || dt == rdf.XSDDecimal || dt == rdf.XSDDouble {
				return Term(rdf.NewTypedLiteral("-"+rdf.LiteralValue(arg.Term), dt)), nil
			}
		}
		return Operation("-", Term(rdf.NewTypedLiteral("0", rdf.XSDInteger)), arg), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.lexer.PeekToken()
	switch {
	case tok.Is("("):
		p.lexer.NextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return Expression{}, err
		}
		return expr, p.expect(")")
	case p.isFunctionCall():
		return p.parseFunctionCall()
	}
	term, err := p.parseTerm()
	if err != nil {
		return Expression{}, err
	}
	return Term(term), nil
}

// isFunctionCall reports whether the next tokens are name( or iri(
func (p *Parser) isFunctionCall() bool {
	tok := p.lexer.PeekToken()
	switch tok.Type {
	case TokenKeyword:
		kw := strings.ToUpper(tok.Value)
		if kw == "EXISTS" || (kw == "NOT" && p.keyword(p.lexer.PeekAt(1)) == "EXISTS") {
			return true
		}
		return p.lexer.PeekAt(1).Is("(") && kw != "TRUE" && kw != "FALSE"
	case TokenIRI, TokenPrefixedName:
		return p.lexer.PeekAt(1).Is("(")
	}
	return false
}

func (p *Parser) parseFunctionCall() (Expression, error) {
	tok := p.lexer.NextToken()
	name := strings.ToLower(tok.Value)
	switch tok.Type {
	case TokenIRI:
		name = p.resolve(tok.Value)
	case TokenPrefixedName:
		var err error
		if name, err = p.expand(tok); err != nil {
			return Expression{}, err
		}
	case TokenKeyword:
		upper := strings.ToUpper(tok.Value)
		if aggregates[upper] {
			return Expression{}, p.unsupported(tok, "Aggregates")
		}
		if upper == "EXISTS" || upper == "NOT" {
			return Expression{}, p.unsupported(tok, "EXISTS")
		}
	}
	args, err := p.parseArgList()
	if err != nil {
		return Expression{}, err
	}
	return Operation(name, args...), nil
}

// parseArgList reads ( expr, ... )
func (p *Parser) parseArgList() ([]Expression, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []Expression
	if p.lexer.PeekToken().Is(")") {
		p.lexer.NextToken()
		return args, nil
	}
	for {
		if tok := p.lexer.PeekToken(); p.keyword(tok) == "DISTINCT" {
			return nil, p.unsupported(tok, "Aggregates")
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.lexer.NextToken()
		if tok.Is(")") {
			return args, nil
		}
		if !tok.Is(",") {
			return nil, p.unexpected(tok, "',' or ')'")
		}
	}
}

// keyword returns the uppercased keyword, or "" for other tokens
func (p *Parser) keyword(tok Token) string {
	if tok.Type != TokenKeyword {
		return ""
	}
	return strings.ToUpper(tok.Value)
}

func (p *Parser) expect(punct string) error {
	tok := p.lexer.NextToken()
	if !tok.Is(punct) {
		return p.unexpected(tok, "'"+punct+"'")
	}
	return nil
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return &syntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(tok Token, expected string) error {
	return p.errorf(tok, "expected %s, got %s", expected, tok)
}

func (p *Parser) unsupported(tok Token, what string) error {
	return &unsupported{Line: tok.Line, Col: tok.Col, What: what}
}
