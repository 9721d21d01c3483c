package clustering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

func TestClusterVote(t *testing.T) {
	client, sched := newYorkClient(t)
	node := func(id int, p rdf.Triple, count int64) *Node {
		return newNode(id, sched, client, p, count, DefaultConfig, zap.NewNop())
	}
	noTriples := func(*Node) int { return 0 }

	t.Run("CheapestEmptySupplier", func(t *testing.T) {
		births, names := node(0, birthPlaceOf, 29), node(1, nameYork, 2)
		cl := &Cluster{v: "?c", nodes: []*Node{births, names}}
		assert.Empty(t, cl.filters())
		assert.ElementsMatch(t, []*Node{births, names}, cl.suppliers())
		assert.Same(t, names, cl.vote(noTriples))
	})

	t.Run("FiltersFirst", func(t *testing.T) {
		births, names := node(0, birthPlaceOf, 29), node(1, nameYork, 2)
		cities := node(2, rdf.NewTriple("?c", rdf.RDFType, city), 1)
		cities.switchTo("?c")
		cl := &Cluster{v: "?c", nodes: []*Node{births, names, cities}}

		// A filter waiting for values cannot be advanced.
		assert.Same(t, names, cl.vote(noTriples))

		bs, ok := cities.binding()
		require.True(t, ok)
		bs.Feed([]string{york})
		assert.Equal(t, []*Node{cities}, cl.filters())
		assert.Same(t, cities, cl.vote(noTriples))
	})

	t.Run("FewestTriples", func(t *testing.T) {
		births, names := node(0, birthPlaceOf, 29), node(1, nameYork, 2)
		births.full.tripleCount, names.full.tripleCount = 3, 1
		cl := &Cluster{v: "?c", nodes: []*Node{births, names}}
		stored := map[*Node]int{births: 3, names: 10}
		assert.Same(t, births, cl.vote(func(n *Node) int { return stored[n] }))
	})

	t.Run("NothingUsable", func(t *testing.T) {
		cities := node(0, rdf.NewTriple("?c", rdf.RDFType, city), 1)
		cities.switchTo("?c")
		cl := &Cluster{v: "?c", nodes: []*Node{cities}}
		assert.Empty(t, cl.suppliers())
		assert.Nil(t, cl.vote(noTriples))
	})
}

func TestMinBy(t *testing.T) {
	a, b := testNode(0, birthPlaceOf), testNode(1, nameYork)
	inf := func(*Node) float64 { return math.Inf(1) }
	assert.Same(t, a, minBy([]*Node{a, b}, inf), "infinite values still pick a node")
	assert.Same(t, b, minBy([]*Node{a, b}, func(n *Node) float64 { return float64(-n.id) }))
	assert.Nil(t, minBy(nil, inf))
}

func TestNodeRoles(t *testing.T) {
	client, sched := newYorkClient(t)
	n := newNode(0, sched, client, birthPlaceOf, 29, DefaultConfig, zap.NewNop())
	assert.Equal(t, "", n.BindVar())
	assert.ElementsMatch(t, []string{"?p", "?c"}, n.supplyVars())
	assert.False(t, n.hungry())

	n.switchTo("?c")
	assert.Equal(t, "?c", n.BindVar())
	assert.True(t, n.supplies("?p"))
	assert.False(t, n.supplies("?c"))
	assert.Equal(t, "?c", n.waitingFor())
	assert.Contains(t, n.String(), "(?c)")

	bs, _ := n.binding()
	bs.Feed([]string{york})
	n.abandon()
	n.switchTo("?c")
	fresh, _ := n.binding()
	assert.NotSame(t, bs, fresh, "an abandoned binding starts over")
	assert.True(t, fresh.Hungry())

	n.switchTo("")
	assert.Same(t, Stream(n.full), n.Active())
	n.close()
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig, Config{}.withDefaults())
	cfg := Config{PageSize: 3}.withDefaults()
	assert.Equal(t, 3, cfg.PageSize)
	assert.Equal(t, DefaultConfig.SwitchMargin, cfg.SwitchMargin)

	assert.Equal(t, []string{"?s", "_:b"}, variables(rdf.NewTriple("?s", "http://p", "_:b")))
}
