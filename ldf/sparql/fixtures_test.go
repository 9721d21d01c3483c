package sparql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

const prologue = `
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
PREFIX dbpedia: <http://dbpedia.org/resource/>
PREFIX dbpedia-owl: <http://dbpedia.org/ontology/>
`

var (
	birthPlace = rdf.DBpediaOWL + "birthPlace"
	name       = rdf.FOAF + "name"
	artist     = rdf.DBpediaOWL + "Artist"
	city       = rdf.DBpediaOWL + "City"
	york       = rdf.DBpedia + "York"
	yorkCanada = rdf.DBpedia + "York,_Toronto"
	leeds      = rdf.DBpedia + "Leeds"
	yorkName   = rdf.NewLangLiteral("York", "en")
	leedsName  = rdf.NewLangLiteral("Leeds", "en")
)

func personIRI(i int) string { return fmt.Sprintf("%sPerson_%d", rdf.DBpedia, i) }

// yorkData holds 15 people born in York, 4 born in York, Toronto and 10
// born in Leeds. Every other person is an artist.
func yorkData() []rdf.Triple {
	triples := []rdf.Triple{
		rdf.NewTriple(york, name, yorkName),
		rdf.NewTriple(yorkCanada, name, yorkName),
		rdf.NewTriple(leeds, name, leedsName),
		rdf.NewTriple(york, rdf.RDFType, city),
	}
	person := 0
	add := func(n int, place string) {
		for i := 0; i < n; i++ {
			triples = append(triples, rdf.NewTriple(personIRI(person), birthPlace, place))
			if person%2 == 0 {
				triples = append(triples, rdf.NewTriple(personIRI(person), rdf.RDFType, artist))
			}
			person++
		}
	}
	add(15, york)
	add(4, yorkCanada)
	add(10, leeds)
	return triples
}

func newYorkClient(t *testing.T) *fragments.MemoryClient {
	t.Helper()
	sched := iterator.NewScheduler()
	t.Cleanup(sched.Close)
	return fragments.NewMemoryClient(sched, yorkData())
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// run executes a query and collects its rows.
func run(t *testing.T, query string, opts Options) []Row {
	t.Helper()
	ctx := testContext(t)
	res, err := Execute(ctx, prologue+query, opts)
	require.NoError(t, err)
	defer res.Close()
	require.NotNil(t, res.Rows, "not a SELECT query")
	rows, err := iterator.ToSlice(ctx, res.Rows)
	require.NoError(t, err)
	return rows
}

func runTriples(t *testing.T, query string, opts Options) []rdf.Triple {
	t.Helper()
	ctx := testContext(t)
	res, err := Execute(ctx, prologue+query, opts)
	require.NoError(t, err)
	defer res.Close()
	require.NotNil(t, res.Triples, "not a CONSTRUCT or DESCRIBE query")
	triples, err := iterator.ToSlice(ctx, res.Triples)
	require.NoError(t, err)
	return triples
}

func runAsk(t *testing.T, query string, opts Options) bool {
	t.Helper()
	ctx := testContext(t)
	res, err := Execute(ctx, prologue+query, opts)
	require.NoError(t, err)
	defer res.Close()
	answers, err := iterator.ToSlice(ctx, res.Boolean)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	return answers[0]
}

func column(rows []Row, v string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[v]
	}
	return out
}
