package sparql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/clustering"
	"github.com/wbrown/janus-ldf/ldf/engine"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

func TestSelect(t *testing.T) {
	planners := []struct {
		name, planner, store string
	}{
		{PlannerReorder, PlannerReorder, ""},
		{PlannerClustering, PlannerClustering, clustering.StoreMemory},
		{"clustering-badger", PlannerClustering, clustering.StoreBadger},
	}
	for _, tt := range planners {
		t.Run(tt.name, func(t *testing.T) {
			opts := func(t *testing.T) Options {
				return Options{
					Client:     newYorkClient(t),
					Planner:    tt.planner,
					BufferSize: 2,
					Clustering: clustering.Config{PageSize: 4, Store: tt.store},
				}
			}

			t.Run("BirthplaceYork", func(t *testing.T) {
				rows := run(t, `SELECT ?p ?c WHERE { ?p dbpedia-owl:birthPlace ?c. ?c foaf:name "York"@en. }`, opts(t))
				assert.Len(t, rows, 19)
				for _, r := range rows {
					assert.Len(t, r, 2)
					assert.Contains(t, []string{york, yorkCanada}, r["?c"])
				}
			})

			t.Run("Artists", func(t *testing.T) {
				rows := run(t, `SELECT ?p WHERE {
					?p a dbpedia-owl:Artist; dbpedia-owl:birthPlace ?c.
					?c foaf:name "York"@en.
				}`, opts(t))
				assert.Len(t, rows, 10)
			})

			t.Run("Distinct", func(t *testing.T) {
				rows := run(t, `SELECT DISTINCT ?c WHERE { ?p dbpedia-owl:birthPlace ?c. ?c foaf:name "York"@en. }`, opts(t))
				assert.ElementsMatch(t, []string{york, yorkCanada}, column(rows, "?c"))
			})

			t.Run("OrderLimitOffset", func(t *testing.T) {
				rows := run(t, `SELECT ?p WHERE { ?p dbpedia-owl:birthPlace ?c. ?c foaf:name "York"@en. }
					ORDER BY ?p OFFSET 2 LIMIT 2`, opts(t))
				assert.Equal(t, []string{personIRI(10), personIRI(11)}, column(rows, "?p"))
			})

			t.Run("OrderDescending", func(t *testing.T) {
				rows := run(t, `SELECT ?p WHERE { ?p dbpedia-owl:birthPlace dbpedia:Leeds } ORDER BY DESC(?p) LIMIT 1`, opts(t))
				assert.Equal(t, []string{personIRI(28)}, column(rows, "?p"))
			})

			t.Run("Optional", func(t *testing.T) {
				rows := run(t, `SELECT ?c ?t WHERE { ?c foaf:name "York"@en. OPTIONAL { ?c a ?t } }`, opts(t))
				assert.ElementsMatch(t, []Row{{"?c": york, "?t": city}, {"?c": yorkCanada}}, rows)
			})

			t.Run("Union", func(t *testing.T) {
				rows := run(t, `SELECT ?x WHERE { { ?x a dbpedia-owl:City } UNION { ?x foaf:name "Leeds"@en } }`, opts(t))
				assert.ElementsMatch(t, []string{york, leeds}, column(rows, "?x"))
			})

			t.Run("Filter", func(t *testing.T) {
				rows := run(t, `SELECT ?c WHERE { ?c foaf:name ?n FILTER(?c != dbpedia:York) }`, opts(t))
				assert.ElementsMatch(t, []string{yorkCanada, leeds}, column(rows, "?c"))
			})

			t.Run("RegexFilter", func(t *testing.T) {
				rows := run(t, `SELECT ?c WHERE { ?c foaf:name ?n FILTER regex(?n, "york", "i") }`, opts(t))
				assert.ElementsMatch(t, []string{york, yorkCanada}, column(rows, "?c"))
			})

			t.Run("Star", func(t *testing.T) {
				rows := run(t, `SELECT * WHERE { ?c a dbpedia-owl:City; foaf:name ?n }`, opts(t))
				assert.Equal(t, []Row{{"?c": york, "?n": yorkName}}, rows)
			})
		})
	}
}

func TestConstruct(t *testing.T) {
	t.Run("Template", func(t *testing.T) {
		triples := runTriples(t, `
			CONSTRUCT {
				<http://example.org/source> <http://example.org/is> "test" .
				?c <http://example.org/label> ?n .
			}
			WHERE { ?c foaf:name ?n FILTER(?n = "York"@en) }`, Options{Client: newYorkClient(t)})
		require.Len(t, triples, 3)
		assert.Equal(t, rdf.NewTriple("http://example.org/source", "http://example.org/is", rdf.NewLiteral("test")), triples[0],
			"constant triples come first")
		assert.ElementsMatch(t, []rdf.Triple{
			rdf.NewTriple(york, "http://example.org/label", yorkName),
			rdf.NewTriple(yorkCanada, "http://example.org/label", yorkName),
		}, triples[1:])
	})

	t.Run("FreshBlankNodes", func(t *testing.T) {
		triples := runTriples(t, `CONSTRUCT { _:x <http://example.org/city> ?c } WHERE { ?c foaf:name "York"@en }`,
			Options{Client: newYorkClient(t)})
		require.Len(t, triples, 2)
		assert.NotEqual(t, triples[0].Subject, triples[1].Subject)
		assert.True(t, rdf.IsBlank(triples[0].Subject))
	})

	t.Run("UnboundVariablesSkipTriple", func(t *testing.T) {
		triples := runTriples(t, `CONSTRUCT { ?c a ?t } WHERE { ?c foaf:name "York"@en OPTIONAL { ?c a ?t } }`,
			Options{Client: newYorkClient(t)})
		assert.Equal(t, []rdf.Triple{rdf.NewTriple(york, rdf.RDFType, city)}, triples)
	})

	t.Run("Describe", func(t *testing.T) {
		triples := runTriples(t, `DESCRIBE dbpedia:Leeds`, Options{Client: newYorkClient(t)})
		assert.Equal(t, []rdf.Triple{rdf.NewTriple(leeds, name, leedsName)}, triples)
	})
}

func TestAsk(t *testing.T) {
	assert.True(t, runAsk(t, `ASK { ?c foaf:name "York"@en }`, Options{Client: newYorkClient(t)}))
	assert.False(t, runAsk(t, `ASK { ?c foaf:name "Paris"@en }`, Options{Client: newYorkClient(t)}))
}

func TestExecuteErrors(t *testing.T) {
	ctx := testContext(t)
	client := newYorkClient(t)

	_, err := Execute(ctx, `SELECT ?x WHERE { ?x ?y }`, Options{Client: client})
	var invalid *InvalidQueryError
	assert.True(t, errors.As(err, &invalid), "got %v", err)

	_, err = Execute(ctx, `SELECT ?x WHERE { ?x ?y ?z } GROUP BY ?x`, Options{Client: client})
	var unsupported *UnsupportedQueryError
	assert.True(t, errors.As(err, &unsupported), "got %v", err)

	_, err = Execute(ctx, prologue+`SELECT ?x WHERE { ?x ?y ?z FILTER(foaf:check(?x)) }`, Options{Client: client})
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	_, err = Execute(ctx, `SELECT ?x WHERE { ?x ?y ?z }`, Options{})
	assert.Error(t, err)

	_, err = Execute(ctx, `SELECT ?x WHERE { ?x ?y ?z }`, Options{Client: client, Planner: "greedy"})
	assert.ErrorContains(t, err, `unknown planner "greedy" (use reorder or clustering)`)

	_, err = Execute(ctx, `SELECT ?x WHERE { ?x ?y ?z }`, Options{
		Client:     client,
		Planner:    PlannerClustering,
		Clustering: clustering.Config{Store: "disk"},
	})
	assert.ErrorContains(t, err, `unknown triple store "disk"`)
}

func TestExecuteQueryFilterWithoutExpression(t *testing.T) {
	ctx := testContext(t)
	q := &Query{Type: Select, Variables: []string{"*"}, Limit: -1, Where: []Group{{Type: GroupFilter}}}
	var err error
	require.NotPanics(t, func() {
		_, err = ExecuteQuery(ctx, q, Options{Client: newYorkClient(t)})
	})
	var unsupported *UnsupportedQueryError
	require.True(t, errors.As(err, &unsupported), "got %v", err)
	assert.ErrorContains(t, err, "filter without expression")
}

func TestExecuteQuery(t *testing.T) {
	q, err := ParseAlgebraJSON([]byte(yorkAlgebra))
	require.NoError(t, err)
	ctx := testContext(t)
	res, err := ExecuteQuery(ctx, q, Options{Client: newYorkClient(t)})
	require.NoError(t, err)
	defer res.Close()

	rows, err := iterator.ToSlice(ctx, res.Rows)
	require.NoError(t, err)
	// Descending IRI order starts at Person_9, which the offset skips.
	require.Len(t, rows, 5)
	assert.Equal(t, personIRI(8), rows[0]["?p"])
	assert.Equal(t, []string{"?p", "?c"}, res.Variables)
	assert.Zero(t, res.Failures())
}

func TestQueryAnnotations(t *testing.T) {
	rec := annotations.NewRecorder(nil)
	rows := run(t, `SELECT ?c WHERE { ?c foaf:name "York"@en }`, Options{Client: newYorkClient(t), Annotations: rec})
	require.Len(t, rows, 2)

	require.Len(t, rec.Named(annotations.QueryInvoked), 1)
	complete := rec.Named(annotations.QueryComplete)
	require.Len(t, complete, 1)
	assert.Equal(t, true, complete[0].Data["success"])
	assert.Equal(t, 2, complete[0].Data["results.count"])
}

func TestClusteringOptions(t *testing.T) {
	client := newYorkClient(t)
	a := &assembler{opts: Options{
		Client:     client,
		Planner:    PlannerClustering,
		BufferSize: 7,
		Clustering: clustering.Config{PageSize: 4, Store: clustering.StoreBadger},
	}}
	got := a.clusteringOptions(engine.Options{Client: client, Optional: true})
	assert.Equal(t, 7, got.BufferSize)
	assert.Equal(t, clustering.StoreBadger, got.Config.Store)
	assert.Equal(t, 4, got.Config.PageSize)
	assert.True(t, got.Optional)
}
