package engine

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
	york       = rdf.DBpedia + "York"
	yorkCanada = rdf.DBpedia + "York,_Toronto"
	leeds      = rdf.DBpedia + "Leeds"
	yorkName   = rdf.NewLangLiteral("York", "en")

	typeArtist   = rdf.NewTriple("?p", rdf.RDFType, artist)
	birthPlaceOf = rdf.NewTriple("?p", birthPlace, "?c")
	nameYork     = rdf.NewTriple("?c", name, yorkName)
)

const (
	yorkBindings = 19 // people born in a place named York
	yorkArtists  = 10
)

// yorkData holds 15 people born in York, 4 born in York, Toronto and 10
// born in Leeds. Every other person is an artist.
func yorkData() []rdf.Triple {
	triples := []rdf.Triple{
		rdf.NewTriple(york, name, yorkName),
		rdf.NewTriple(yorkCanada, name, yorkName),
		rdf.NewTriple(leeds, name, rdf.NewLangLiteral("Leeds", "en")),
		rdf.NewTriple(york, rdf.RDFType, rdf.DBpediaOWL+"City"),
	}
	person := 0
	add := func(n int, city string) {
		for i := 0; i < n; i++ {
			p := fmt.Sprintf("%sPerson_%d", rdf.DBpedia, person)
			triples = append(triples, rdf.NewTriple(p, birthPlace, city))
			if person%2 == 0 {
				triples = append(triples, rdf.NewTriple(p, rdf.RDFType, artist))
			}
			person++
		}
	}
	add(15, york)
	add(4, yorkCanada)
	add(10, leeds)
	return triples
}

func newYorkClient(t *testing.T) (*fragments.MemoryClient, *iterator.Scheduler) {
	t.Helper()
	sched := iterator.NewScheduler()
	t.Cleanup(sched.Close)
	return fragments.NewMemoryClient(sched, yorkData()), sched
}

func collect(t *testing.T, it Bindings) []rdf.Bindings {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := iterator.ToSlice(ctx, it)
	require.NoError(t, err)
	return items
}

// failingClient fails the fragment of one pattern.
type failingClient struct {
	*fragments.MemoryClient
	fail rdf.Triple
}

func (c *failingClient) FragmentByPattern(pattern rdf.Triple) fragments.Fragment {
	if pattern.Key() != c.fail.Key() {
		return c.MemoryClient.FragmentByPattern(pattern)
	}
	sched := c.Scheduler()
	buf := iterator.NewBuffer[rdf.Triple](sched, "FailingFragment")
	buf.Properties().Set(fragments.PropMetadata, fragments.FailedMetadata)
	sched.Defer(func() {
		buf.Fail(fmt.Errorf("could not retrieve %s (500)", pattern))
		buf.End()
	})
	return buf
}

func newScheduler(t *testing.T) *iterator.Scheduler {
	sched := iterator.NewScheduler()
	t.Cleanup(sched.Close)
	return sched
}

func bindingsOf(sched *iterator.Scheduler, items []rdf.Bindings) Bindings {
	return iterator.NewSlice(sched, items)
}
