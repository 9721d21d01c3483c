package fragments

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

func TestNew(t *testing.T) {
	sched := iterator.NewScheduler()
	defer sched.Close()
	srv := newTPFServer(t, people(1), 10)

	_, err := New(sched, nil)
	assert.ErrorIs(t, err, ErrNoSources)

	single, err := New(sched, []string{srv.startURL()})
	require.NoError(t, err)
	assert.IsType(t, &FragmentsClient{}, single)

	multi, err := New(sched, []string{srv.startURL(), srv.startURL()})
	require.NoError(t, err)
	assert.IsType(t, &FederatedClient{}, multi)
}

func TestFederatedClient(t *testing.T) {
	t.Run("MergesAndSumsCounts", func(t *testing.T) {
		a := newTPFServer(t, people(3), 2)
		b := newTPFServer(t, people(5), 2)
		sched := iterator.NewScheduler()
		defer sched.Close()
		c, err := NewFederatedClient(sched, []string{a.startURL(), b.startURL()})
		require.NoError(t, err)
		ctx := testContext(t)

		f := c.FragmentByPattern(personType)
		triples, err := iterator.ToSlice(ctx, f)
		require.NoError(t, err)
		assert.Len(t, triples, 8)
		m, ok := MetadataOf(f)
		require.True(t, ok)
		assert.Equal(t, Metadata{TotalTriples: 8, Known: true}, m)
	})

	t.Run("SkipsBoundVariantsOfEmptyPatterns", func(t *testing.T) {
		a := newTPFServer(t, people(2), 10)
		b := newTPFServer(t, nil, 10)
		sched := iterator.NewScheduler()
		defer sched.Close()
		c, err := NewFederatedClient(sched, []string{a.startURL(), b.startURL()})
		require.NoError(t, err)
		ctx := testContext(t)

		_, err = iterator.ToSlice(ctx, c.FragmentByPattern(personType))
		require.NoError(t, err)
		require.NoError(t, sched.Drain(ctx))
		before := b.requestCount()

		bound := rdf.NewTriple(rdf.DBpedia+"Person_0", rdf.RDFType, rdf.DBpediaOWL+"Person")
		triples, err := iterator.ToSlice(ctx, c.FragmentByPattern(bound))
		require.NoError(t, err)
		assert.Len(t, triples, 1)
		require.NoError(t, sched.Drain(ctx))
		assert.Equal(t, before, b.requestCount(), "the empty interface is not asked again")
	})

	t.Run("ToleratesAllButOneFailure", func(t *testing.T) {
		a := newTPFServer(t, people(2), 10)
		b := newTPFServer(t, nil, 10)
		b.setStatus(http.StatusNotFound)
		sched := iterator.NewScheduler()
		defer sched.Close()
		c, err := NewFederatedClient(sched, []string{a.startURL(), b.startURL()})
		require.NoError(t, err)
		ctx := testContext(t)

		f := c.FragmentByPattern(personType)
		triples, err := iterator.ToSlice(ctx, f)
		require.NoError(t, err)
		assert.Len(t, triples, 2)
		assert.Positive(t, c.Failures())
		m, _ := MetadataOf(f)
		assert.Equal(t, int64(2), m.TotalTriples)
	})

	t.Run("FailsWhenAllFail", func(t *testing.T) {
		a := newTPFServer(t, nil, 10)
		b := newTPFServer(t, nil, 10)
		a.setStatus(http.StatusNotFound)
		b.setStatus(http.StatusNotFound)
		sched := iterator.NewScheduler()
		defer sched.Close()
		c, err := NewFederatedClient(sched, []string{a.startURL(), b.startURL()})
		require.NoError(t, err)

		_, err = iterator.ToSlice(testContext(t), c.FragmentByPattern(personType))
		assert.ErrorContains(t, err, "(404)")
	})
}
