package sparql

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// filterExpression parses the expression of a FILTER.
func filterExpression(t *testing.T, expr string) Expression {
	t.Helper()
	q := mustParse(t, `SELECT * WHERE { ?s ?p ?o FILTER(`+expr+`) }`)
	require.Len(t, q.Where, 2)
	return *q.Where[1].Expression
}

func evaluate(t *testing.T, expr string, b rdf.Bindings) (string, error) {
	t.Helper()
	eval, err := CompileExpression(filterExpression(t, expr))
	require.NoError(t, err)
	return eval(b)
}

func integer(v string) string { return rdf.NewTypedLiteral(v, rdf.XSDInteger) }
func decimal(v string) string { return rdf.NewTypedLiteral(v, rdf.XSDDecimal) }

func TestEvaluate(t *testing.T) {
	bindings := rdf.Bindings{
		"?x":    york,
		"?n":    rdf.NewLangLiteral("York", "en-GB"),
		"?two":  integer("2"),
		"?word": rdf.NewLiteral("héllo"),
	}
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"Add", `1 + 2`, integer("3")},
		{"Promote", `1 + 2.5`, decimal("3.5")},
		{"Divide", `7 / 2`, decimal("3.5")},
		{"Precedence", `1 + 2 * 3`, integer("7")},
		{"NumericEquality", `2 = 2.0`, trueTerm},
		{"StringOrder", `"abc" < "abd"`, trueTerm},
		{"VariableCompare", `?two >= 2`, trueTerm},
		{"NotEqualIRIs", `?x != dbpedia:Leeds`, trueTerm},
		{"OrOverrulesError", `?unbound || true`, trueTerm},
		{"AndOverrulesError", `?unbound && false`, falseTerm},
		{"Bound", `bound(?x)`, trueTerm},
		{"NotBound", `!bound(?unbound)`, trueTerm},
		{"In", `?two IN (1, 2, 3)`, trueTerm},
		{"NotIn", `?two NOT IN (1, 2, 3)`, falseTerm},
		{"Str", `str(?x)`, rdf.NewLiteral(york)},
		{"Lang", `lang(?n)`, rdf.NewLiteral("en-gb")},
		{"Datatype", `datatype(?two)`, rdf.XSDInteger},
		{"LangMatches", `langMatches(lang(?n), "en")`, trueTerm},
		{"LangMatchesOther", `langMatches(lang(?n), "fr")`, falseTerm},
		{"LangMatchesAny", `langMatches(lang(?n), "*")`, trueTerm},
		{"Regex", `regex(?n, "^york", "i")`, trueTerm},
		{"RegexCaseSensitive", `regex(?n, "^york")`, falseTerm},
		{"RegexOnIRI", `regex(?x, "York$")`, trueTerm},
		{"Strlen", `strlen(?word)`, integer("5")},
		{"Ucase", `ucase(?n)`, rdf.NewLangLiteral("YORK", "en-gb")},
		{"Contains", `contains(?n, "or")`, trueTerm},
		{"StrStarts", `strstarts(str(?x), "http://")`, trueTerm},
		{"StrEnds", `strends(?word, "lo")`, trueTerm},
		{"Abs", `abs(-3)`, integer("3")},
		{"Round", `round(2.5)`, decimal("3")},
		{"Ceil", `ceil(1.2)`, decimal("2")},
		{"IsIRI", `isIRI(?x)`, trueTerm},
		{"IsLiteral", `isLiteral(?x)`, falseTerm},
		{"IsBlank", `isBlank(_:b)`, trueTerm},
		{"IsNumeric", `isNumeric(?two)`, trueTerm},
		{"SameTerm", `sameTerm(?x, dbpedia:York)`, trueTerm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(t, tt.expr, bindings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	bindings := rdf.Bindings{"?x": york, "?n": rdf.NewLangLiteral("York", "en")}
	tests := []struct {
		name string
		expr string
		err  error
	}{
		{"Unbound", `?unbound = 1`, ErrUnbound},
		{"AndWithError", `?unbound && true`, ErrUnbound},
		{"DivisionByZero", `1 / 0`, ErrType},
		{"NotNumeric", `?x + 1`, ErrType},
		{"IncomparableTerms", `?x < 1`, ErrType},
		{"IncompatibleLanguages", `contains("York", ?n)`, ErrType},
		{"StrlenOfIRI", `strlen(?x)`, ErrType},
		{"NoBooleanValue", `!?x`, ErrType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluate(t, tt.expr, bindings)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCompileExpressionErrors(t *testing.T) {
	_, err := CompileExpression(filterExpression(t, `foaf:check(?x)`))
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	_, err = CompileExpression(filterExpression(t, `strlen("a", "b")`))
	assert.ErrorContains(t, err, "invalid number of arguments for STRLEN: 2")

	_, err = CompileExpression(filterExpression(t, `regex(?x, "[")`))
	assert.ErrorContains(t, err, "invalid regex")

	_, err = CompileExpression(filterExpression(t, `regex(?x, "a", "q")`))
	assert.ErrorContains(t, err, "unsupported regex flag")

	_, err = CompileExpression(Operation("bound", Term(york)))
	assert.ErrorContains(t, err, "BOUND expects a variable")
}

func TestUUID(t *testing.T) {
	got, err := evaluate(t, `UUID()`, nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "urn:uuid:"), got)
	_, err = uuid.Parse(strings.TrimPrefix(got, "urn:uuid:"))
	assert.NoError(t, err)

	got, err = evaluate(t, `STRUUID()`, nil)
	require.NoError(t, err)
	assert.True(t, rdf.IsLiteral(got))
}

func TestAccepts(t *testing.T) {
	assert.True(t, Accepts(trueTerm))
	assert.True(t, Accepts(integer("3")))
	assert.False(t, Accepts(falseTerm))
	assert.False(t, Accepts(integer("0")))
}

func TestLangMatches(t *testing.T) {
	assert.True(t, LangMatches("en", "EN"))
	assert.True(t, LangMatches("de-DE-1996", "de-de"))
	assert.False(t, LangMatches("en", "en-GB"))
	assert.False(t, LangMatches("", "*"))
	assert.False(t, LangMatches("english", "en"))
}

func TestCompareOrder(t *testing.T) {
	ordered := []string{
		"",
		"_:b0",
		"http://a",
		"http://b",
		integer("9"),
		integer("10"),
	}
	for i := 1; i < len(ordered); i++ {
		assert.Negative(t, CompareOrder(ordered[i-1], ordered[i]), "%q before %q", ordered[i-1], ordered[i])
		assert.Positive(t, CompareOrder(ordered[i], ordered[i-1]))
	}
	assert.Zero(t, CompareOrder(rdf.NewLiteral("a"), rdf.NewLiteral("a")))
	assert.Negative(t, CompareOrder(rdf.NewLiteral("a"), rdf.NewLiteral("b")))
}
