package sparql

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

var (
	// ErrUnbound means an expression referenced an unbound variable.
	ErrUnbound = errors.New("variable not bound")
	// ErrType means an argument has the wrong type for its operator.
	ErrType = errors.New("type error")
	// ErrUnsupportedOperator means the operator is not implemented.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	trueTerm  = rdf.NewTypedLiteral("true", rdf.XSDBoolean)
	falseTerm = rdf.NewTypedLiteral("false", rdf.XSDBoolean)
)

// Evaluator computes the value of a compiled expression for a binding.
type Evaluator func(b rdf.Bindings) (string, error)

// function is an operator of the expression language. min and max bound
// the number of arguments; max < 0 means any number. lazy operators
// receive their unevaluated arguments.
type function struct {
	min, max int
	eval     func(args []string) (string, error)
	lazy     func(args []Evaluator, b rdf.Bindings) (string, error)
}

var functions map[string]function

func init() {
	functions = map[string]function{
		"+": arithmetic(func(a, b float64) float64 { return a + b }),
		"-": arithmetic(func(a, b float64) float64 { return a - b }),
		"*": arithmetic(func(a, b float64) float64 { return a * b }),
		"/": {min: 2, max: 2, eval: divide},

		"=":  {min: 2, max: 2, eval: equality(true)},
		"!=": {min: 2, max: 2, eval: equality(false)},
		"<":  comparison(func(c int) bool { return c < 0 }),
		"<=": comparison(func(c int) bool { return c <= 0 }),
		">":  comparison(func(c int) bool { return c > 0 }),
		">=": comparison(func(c int) bool { return c >= 0 }),

		"!":  {min: 1, max: 1, eval: not},
		"&&": {min: 2, max: 2, lazy: and},
		"||": {min: 2, max: 2, lazy: or},

		"bound":    {min: 1, max: 1, lazy: bound},
		"sameterm": {min: 2, max: 2, eval: func(a []string) (string, error) { return boolean(a[0] == a[1]), nil }},
		"in":       {min: 1, max: -1, lazy: in(true)},
		"notin":    {min: 1, max: -1, lazy: in(false)},

		"isiri":     termTest(rdf.IsIRI),
		"isuri":     termTest(rdf.IsIRI),
		"isblank":   termTest(rdf.IsBlank),
		"isliteral": termTest(rdf.IsLiteral),
		"isnumeric": termTest(isNumeric),
		"str":       {min: 1, max: 1, eval: str},
		"lang":      {min: 1, max: 1, eval: lang},
		"datatype":  {min: 1, max: 1, eval: datatype},

		"langmatches": {min: 2, max: 2, eval: langMatchesFunc},
		"regex":       {min: 2, max: 3, eval: regex},
		"strlen":      {min: 1, max: 1, eval: strlen},
		"ucase":       stringMap(strings.ToUpper),
		"lcase":       stringMap(strings.ToLower),
		"contains":    stringTest(strings.Contains),
		"strstarts":   stringTest(strings.HasPrefix),
		"strends":     stringTest(strings.HasSuffix),

		"abs":   numericMap(math.Abs),
		"ceil":  numericMap(math.Ceil),
		"floor": numericMap(math.Floor),
		"round": numericMap(func(v float64) float64 { return math.Floor(v + 0.5) }),

		"uuid":    {min: 0, max: 0, eval: func([]string) (string, error) { return "urn:uuid:" + uuid.NewString(), nil }},
		"struuid": {min: 0, max: 0, eval: func([]string) (string, error) { return rdf.NewLiteral(uuid.NewString()), nil }},
	}
}

// CompileExpression compiles an expression into an evaluator. Unknown
// operators and wrong numbers of arguments are reported here rather than
// during evaluation.
func CompileExpression(e Expression) (Evaluator, error) {
	if e.Type == ExprTerm {
		term := e.Term
		if !rdf.IsVariable(term) {
			return func(rdf.Bindings) (string, error) { return term, nil }, nil
		}
		return func(b rdf.Bindings) (string, error) {
			value, ok := b[term]
			if !ok {
				return "", fmt.Errorf("cannot evaluate variable %s: %w", term, ErrUnbound)
			}
			return value, nil
		}, nil
	}

	fn, ok := functions[e.Operator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, strings.ToUpper(e.Operator))
	}
	if n := len(e.Args); n < fn.min || (fn.max >= 0 && n > fn.max) {
		return nil, fmt.Errorf("invalid number of arguments for %s: %d (expected %s)",
			strings.ToUpper(e.Operator), n, arity(fn))
	}
	if e.Operator == "bound" && (!e.Args[0].IsTerm() || !rdf.IsVariable(e.Args[0].Term)) {
		return nil, fmt.Errorf("BOUND expects a variable but got %s", e.Args[0])
	}

	args := make([]Evaluator, len(e.Args))
	for i, arg := range e.Args {
		eval, err := CompileExpression(arg)
		if err != nil {
			return nil, err
		}
		args[i] = eval
	}
	if e.Operator == "regex" && e.Args[1].IsTerm() && !rdf.IsVariable(e.Args[1].Term) {
		// a constant pattern is checked once
		flags := ""
		if len(e.Args) == 3 {
			flags = rdf.LiteralValue(e.Args[2].Term)
		}
		if _, err := compileRegex(rdf.LiteralValue(e.Args[1].Term), flags); err != nil {
			return nil, err
		}
	}

	if fn.lazy != nil {
		return func(b rdf.Bindings) (string, error) { return fn.lazy(args, b) }, nil
	}
	return func(b rdf.Bindings) (string, error) {
		values := make([]string, len(args))
		for i, arg := range args {
			v, err := arg(b)
			if err != nil {
				return "", err
			}
			values[i] = v
		}
		return fn.eval(values)
	}, nil
}

func arity(fn function) string {
	switch {
	case fn.max < 0:
		return fmt.Sprintf("at least %d", fn.min)
	case fn.min == fn.max:
		return strconv.Itoa(fn.min)
	}
	return fmt.Sprintf("%d to %d", fn.min, fn.max)
}

func typeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrType, fmt.Sprintf(format, args...))
}

func boolean(v bool) string {
	if v {
		return trueTerm
	}
	return falseTerm
}

// numeric types, in promotion order
var numericTypes = map[string]int{
	rdf.XSDInteger: 0,
	rdf.XSD + "int": 0, rdf.XSD + "long": 0, rdf.XSD + "short": 0, rdf.XSD + "byte": 0,
	rdf.XSD + "nonPositiveInteger": 0, rdf.XSD + "negativeInteger": 0,
	rdf.XSD + "nonNegativeInteger": 0, rdf.XSD + "positiveInteger": 0,
	rdf.XSD + "unsignedLong": 0, rdf.XSD + "unsignedInt": 0,
	rdf.XSD + "unsignedShort": 0, rdf.XSD + "unsignedByte": 0,
	rdf.XSDDecimal: 1,
	rdf.XSDFloat:   2,
	rdf.XSDDouble:  3,
}

var promoted = []string{rdf.XSDInteger, rdf.XSDDecimal, rdf.XSDFloat, rdf.XSDDouble}

func isNumeric(term string) bool {
	_, ok := numericTypes[rdf.LiteralType(term)]
	return ok && rdf.IsLiteral(term)
}

// number returns the value and promotion rank of a numeric literal
func number(term string) (float64, int, error) {
	if !isNumeric(term) {
		return 0, 0, typeErrorf("%s is not numeric", term)
	}
	v, err := strconv.ParseFloat(rdf.LiteralValue(term), 64)
	if err != nil {
		return 0, 0, typeErrorf("%s is not a valid number", term)
	}
	return v, numericTypes[rdf.LiteralType(term)], nil
}

func formatNumber(v float64, rank int) string {
	if rank == 0 && v == math.Trunc(v) && !math.IsInf(v, 0) {
		return rdf.NewTypedLiteral(strconv.FormatFloat(v, 'f', -1, 64), rdf.XSDInteger)
	}
	if rank == 0 {
		rank = 1
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(v, 'f', -1, 64), promoted[rank])
}

func arithmetic(op func(a, b float64) float64) function {
	return function{min: 2, max: 2, eval: func(args []string) (string, error) {
		a, ra, err := number(args[0])
		if err != nil {
			return "", err
		}
		b, rb, err := number(args[1])
		if err != nil {
			return "", err
		}
		return formatNumber(op(a, b), max(ra, rb)), nil
	}}
}

func divide(args []string) (string, error) {
	a, ra, err := number(args[0])
	if err != nil {
		return "", err
	}
	b, rb, err := number(args[1])
	if err != nil {
		return "", err
	}
	rank := max(ra, rb, 1)
	if b == 0 && rank < 2 {
		return "", typeErrorf("division by zero")
	}
	return formatNumber(a/b, rank), nil
}

// compareTerms orders two terms for the relational operators: numbers by
// value, plain and string literals by their lexical form.
func compareTerms(a, b string) (int, error) {
	if isNumeric(a) && isNumeric(b) {
		x, _, _ := number(a)
		y, _, _ := number(b)
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	if rdf.IsLiteral(a) && rdf.IsLiteral(b) && rdf.LiteralType(a) == rdf.LiteralType(b) &&
		rdf.LiteralLanguage(a) == rdf.LiteralLanguage(b) {
		return strings.Compare(rdf.LiteralValue(a), rdf.LiteralValue(b)), nil
	}
	return 0, typeErrorf("cannot compare %s and %s", a, b)
}

func equality(equal bool) func(args []string) (string, error) {
	return func(args []string) (string, error) {
		same := args[0] == args[1]
		if !same {
			if c, err := compareTerms(args[0], args[1]); err == nil {
				same = c == 0
			}
		}
		return boolean(same == equal), nil
	}
}

func comparison(test func(c int) bool) function {
	return function{min: 2, max: 2, eval: func(args []string) (string, error) {
		c, err := compareTerms(args[0], args[1])
		if err != nil {
			return "", err
		}
		return boolean(test(c)), nil
	}}
}

// effectiveBoolean returns the effective boolean value of a term
func effectiveBoolean(term string) (bool, error) {
	if !rdf.IsLiteral(term) {
		return false, typeErrorf("%s has no boolean value", term)
	}
	value := rdf.LiteralValue(term)
	switch dt := rdf.LiteralType(term); {
	case dt == rdf.XSDBoolean:
		return value == "true" || value == "1", nil
	case isNumeric(term):
		v, _, err := number(term)
		return err == nil && v != 0 && !math.IsNaN(v), nil
	case dt == rdf.XSDString || dt == rdf.RDFLangString:
		return value != "", nil
	}
	return false, typeErrorf("%s has no boolean value", term)
}

func not(args []string) (string, error) {
	v, err := effectiveBoolean(args[0])
	if err != nil {
		return "", err
	}
	return boolean(!v), nil
}

// and and or follow the SPARQL error rules: an error on one side is
// overruled by a decisive value on the other.
func and(args []Evaluator, b rdf.Bindings) (string, error) {
	left, lerr := evalBoolean(args[0], b)
	if lerr == nil && !left {
		return falseTerm, nil
	}
	right, rerr := evalBoolean(args[1], b)
	switch {
	case rerr == nil && !right:
		return falseTerm, nil
	case lerr != nil:
		return "", lerr
	case rerr != nil:
		return "", rerr
	}
	return trueTerm, nil
}

func or(args []Evaluator, b rdf.Bindings) (string, error) {
	left, lerr := evalBoolean(args[0], b)
	if lerr == nil && left {
		return trueTerm, nil
	}
	right, rerr := evalBoolean(args[1], b)
	switch {
	case rerr == nil && right:
		return trueTerm, nil
	case lerr != nil:
		return "", lerr
	case rerr != nil:
		return "", rerr
	}
	return falseTerm, nil
}

func evalBoolean(eval Evaluator, b rdf.Bindings) (bool, error) {
	v, err := eval(b)
	if err != nil {
		return false, err
	}
	return effectiveBoolean(v)
}

func bound(args []Evaluator, b rdf.Bindings) (string, error) {
	_, err := args[0](b)
	return boolean(err == nil), nil
}

func in(positive bool) func(args []Evaluator, b rdf.Bindings) (string, error) {
	return func(args []Evaluator, b rdf.Bindings) (string, error) {
		value, err := args[0](b)
		if err != nil {
			return "", err
		}
		var firstErr error
		for _, arg := range args[1:] {
			candidate, err := arg(b)
			if err == nil {
				var eq string
				eq, err = equality(true)([]string{value, candidate})
				if err == nil && eq == trueTerm {
					return boolean(positive), nil
				}
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			return "", firstErr
		}
		return boolean(!positive), nil
	}
}

func termTest(test func(string) bool) function {
	return function{min: 1, max: 1, eval: func(args []string) (string, error) {
		return boolean(test(args[0])), nil
	}}
}

func str(args []string) (string, error) {
	switch a := args[0]; {
	case rdf.IsLiteral(a):
		return rdf.NewLiteral(rdf.LiteralValue(a)), nil
	case rdf.IsIRI(a):
		return rdf.NewLiteral(a), nil
	}
	return "", typeErrorf("STR of blank node %s", args[0])
}

func lang(args []string) (string, error) {
	if !rdf.IsLiteral(args[0]) {
		return "", typeErrorf("LANG of non-literal %s", args[0])
	}
	return rdf.NewLiteral(rdf.LiteralLanguage(args[0])), nil
}

func datatype(args []string) (string, error) {
	if !rdf.IsLiteral(args[0]) {
		return "", typeErrorf("DATATYPE of non-literal %s", args[0])
	}
	return rdf.LiteralType(args[0]), nil
}

// stringLiteral reports whether a is a plain, xsd:string or
// language-tagged literal
func stringLiteral(a string) bool {
	if !rdf.IsLiteral(a) {
		return false
	}
	dt := rdf.LiteralType(a)
	return dt == rdf.XSDString || dt == rdf.RDFLangString
}

func langMatchesFunc(args []string) (string, error) {
	if !rdf.IsLiteral(args[0]) || !rdf.IsLiteral(args[1]) {
		return "", typeErrorf("LANGMATCHES expects literals")
	}
	return boolean(LangMatches(rdf.LiteralValue(args[0]), rdf.LiteralValue(args[1]))), nil
}

// LangMatches reports whether a language tag matches a basic language
// range: "*" matches any non-empty tag, otherwise the range must equal the
// tag or a prefix of it ending at a subtag boundary.
func LangMatches(tag, languageRange string) bool {
	if languageRange == "*" {
		return tag != ""
	}
	t, r := canonicalLanguage(tag), canonicalLanguage(languageRange)
	return t != "" && (t == r || strings.HasPrefix(t, r+"-"))
}

func canonicalLanguage(s string) string {
	if s == "" {
		return ""
	}
	if tag, err := language.Parse(s); err == nil {
		return strings.ToLower(tag.String())
	}
	return strings.ToLower(s)
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			prefix.WriteRune(f)
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if prefix.Len() > 0 {
		pattern = "(?" + prefix.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re, nil
}

func regex(args []string) (string, error) {
	text := args[0]
	if rdf.IsLiteral(text) {
		if !stringLiteral(text) {
			return "", typeErrorf("REGEX on non-string %s", text)
		}
		text = rdf.LiteralValue(text)
	}
	flags := ""
	if len(args) == 3 {
		flags = rdf.LiteralValue(args[2])
	}
	re, err := compileRegex(rdf.LiteralValue(args[1]), flags)
	if err != nil {
		return "", err
	}
	return boolean(re.MatchString(text)), nil
}

func strlen(args []string) (string, error) {
	if !stringLiteral(args[0]) {
		return "", typeErrorf("STRLEN of non-string %s", args[0])
	}
	n := utf8.RuneCountInString(rdf.LiteralValue(args[0]))
	return rdf.NewTypedLiteral(strconv.Itoa(n), rdf.XSDInteger), nil
}

// withValue returns a literal like a with a new lexical value
func withValue(a, value string) string {
	if l := rdf.LiteralLanguage(a); l != "" {
		return rdf.NewLangLiteral(value, l)
	}
	return rdf.NewTypedLiteral(value, rdf.LiteralType(a))
}

func stringMap(fn func(string) string) function {
	return function{min: 1, max: 1, eval: func(args []string) (string, error) {
		if !stringLiteral(args[0]) {
			return "", typeErrorf("%s is not a string", args[0])
		}
		return withValue(args[0], fn(rdf.LiteralValue(args[0]))), nil
	}}
}

// stringTest applies a test to two compatible string arguments: both
// plain, or the second plain or in the same language as the first.
func stringTest(test func(s, sub string) bool) function {
	return function{min: 2, max: 2, eval: func(args []string) (string, error) {
		a, b := args[0], args[1]
		if !stringLiteral(a) || !stringLiteral(b) {
			return "", typeErrorf("%s and %s are not strings", a, b)
		}
		la, lb := rdf.LiteralLanguage(a), rdf.LiteralLanguage(b)
		if lb != "" && la != lb {
			return "", typeErrorf("%s and %s are incompatible", a, b)
		}
		return boolean(test(rdf.LiteralValue(a), rdf.LiteralValue(b))), nil
	}}
}

func numericMap(fn func(float64) float64) function {
	return function{min: 1, max: 1, eval: func(args []string) (string, error) {
		v, rank, err := number(args[0])
		if err != nil {
			return "", err
		}
		return formatNumber(fn(v), rank), nil
	}}
}

// Accepts reports whether a FILTER keeps a binding with the given value.
// Values starting with "false" or "0" reject it.
func Accepts(value string) bool {
	return !strings.HasPrefix(value, `"false"`) && !strings.HasPrefix(value, `"0"`)
}
