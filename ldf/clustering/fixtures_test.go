package clustering

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

var (
	birthPlace = rdf.DBpediaOWL + "birthPlace"
	name       = rdf.FOAF + "name"
	artist     = rdf.DBpediaOWL + "Artist"
	city       = rdf.DBpediaOWL + "City"
	york       = rdf.DBpedia + "York"
	yorkCanada = rdf.DBpedia + "York,_Toronto"
	leeds      = rdf.DBpedia + "Leeds"
	nowhere    = rdf.DBpedia + "Nowhere"
	yorkName   = rdf.NewLangLiteral("York", "en")

	typeArtist   = rdf.NewTriple("?p", rdf.RDFType, artist)
	birthPlaceOf = rdf.NewTriple("?p", birthPlace, "?c")
	nameYork     = rdf.NewTriple("?c", name, yorkName)
	typeCity     = rdf.NewTriple("?x", rdf.RDFType, city)
)

const (
	yorkBindings = 19
	yorkArtists  = 10
	yorkPeople   = 15
	leedsPeople  = 10
)

// yorkData holds 15 people born in York, 4 born in York, Toronto and 10
// born in Leeds. Every other person is an artist.
func yorkData() []rdf.Triple {
	triples := []rdf.Triple{
		rdf.NewTriple(york, name, yorkName),
		rdf.NewTriple(yorkCanada, name, yorkName),
		rdf.NewTriple(leeds, name, rdf.NewLangLiteral("Leeds", "en")),
		rdf.NewTriple(york, rdf.RDFType, city),
	}
	person := 0
	add := func(n int, place string) {
		for i := 0; i < n; i++ {
			p := fmt.Sprintf("%sPerson_%d", rdf.DBpedia, person)
			triples = append(triples, rdf.NewTriple(p, birthPlace, place))
			if person%2 == 0 {
				triples = append(triples, rdf.NewTriple(p, rdf.RDFType, artist))
			}
			person++
		}
	}
	add(yorkPeople, york)
	add(4, yorkCanada)
	add(leedsPeople, leeds)
	return triples
}

func newYorkClient(t *testing.T) (*fragments.MemoryClient, *iterator.Scheduler) {
	t.Helper()
	sched := newScheduler(t)
	return fragments.NewMemoryClient(sched, yorkData()), sched
}

func newScheduler(t *testing.T) *iterator.Scheduler {
	sched := iterator.NewScheduler()
	t.Cleanup(sched.Close)
	return sched
}

func collect(t *testing.T, it iterator.Iterator[rdf.Bindings]) []rdf.Bindings {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := iterator.ToSlice(ctx, it)
	require.NoError(t, err)
	return items
}

func drain(t *testing.T, sched *iterator.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sched.Drain(ctx))
}

// testNode builds a node without streams, enough for joins over a store.
func testNode(id int, pattern rdf.Triple) *Node {
	return &Node{id: id, pattern: pattern, vars: variables(pattern)}
}

func keys(items []rdf.Bindings) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = b.Key()
	}
	return out
}
