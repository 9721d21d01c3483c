package clustering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
)

// newSwitchController builds a controller where nameYork downloads and
// birthPlaceOf binds ?c. Downloading all 1000 birthplaces takes 10 pages;
// binding ?c is estimated at bindCost requests.
func newSwitchController(t *testing.T, bindCost float64) (*Controller, *Node, *annotations.Collector) {
	t.Helper()
	client, sched := newYorkClient(t)
	rec := annotations.NewRecorder(nil)
	store := NewMemoryStore()
	cfg := DefaultConfig
	c := &Controller{
		sched:    sched,
		opts:     Options{Client: client, Annotations: rec},
		cfg:      cfg,
		logger:   zap.NewNop(),
		clusters: make(map[string]*Cluster),
		store:    store,
		cache:    NewJoinCache(store),
		emitted:  make(map[string]bool),
	}
	t.Cleanup(c.shutdown)

	supplier := newNode(0, sched, client, nameYork, 2, cfg, c.logger)
	bound := newNode(1, sched, client, birthPlaceOf, 1000, cfg, c.logger)
	bound.switchTo("?c")
	bs, ok := bound.binding()
	require.True(t, ok)
	bs.cost = bindCost

	c.nodes = []*Node{supplier, bound}
	c.updateDependencies()
	require.Equal(t, "?c", bound.BindVar())
	require.Equal(t, 10.0, bound.full.Cost())
	return c, bound, rec
}

func TestSwitchCostly(t *testing.T) {
	tests := []struct {
		name     string
		bindCost float64
		switches bool
	}{
		{"Cheaper", 4, false},
		{"WithinMargin", 10.5, false},
		{"BeyondMargin", 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, bound, rec := newSwitchController(t, tt.bindCost)
			c.switchCostly()

			switches := rec.Named(annotations.ClusterSwitch)
			if !tt.switches {
				assert.Empty(t, switches)
				assert.Equal(t, "?c", bound.BindVar(), "a node within the margin stays bound")
				return
			}
			require.Len(t, switches, 1)
			assert.Equal(t, birthPlaceOf.QuickString(), switches[0].Data["node"])
			assert.Equal(t, "?c", switches[0].Data["from"])
			assert.Empty(t, bound.BindVar())
			assert.Same(t, bound, c.nodes[0], "downloads go first")
			assert.Empty(t, bound.dependencies)
		})
	}

	t.Run("UnknownCost", func(t *testing.T) {
		c, bound, rec := newSwitchController(t, 0)
		bs, _ := bound.binding()
		bs.cost = bs.remaining // still infinite before any value is probed
		c.switchCostly()
		assert.Empty(t, rec.Named(annotations.ClusterSwitch))
		assert.Equal(t, "?c", bound.BindVar())
	})
}
