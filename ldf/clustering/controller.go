package clustering

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/codec"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Controller evaluates one connected graph pattern. It owns a node per
// pattern and a cluster per variable, and repeats a round of voting,
// reading one step of the winning node, feeding the bound nodes and
// joining everything read so far. Solutions are emitted as soon as the
// join contains them.
type Controller struct {
	sched  *iterator.Scheduler
	opts   Options
	cfg    Config
	logger *zap.Logger

	nodes    []*Node // evaluation order
	clusters map[string]*Cluster
	vars     []string // cluster variables, sorted

	store   TripleStore
	cache   *JoinCache
	out     *iterator.Buffer[rdf.Bindings]
	emitted map[string]bool

	started  bool
	running  bool
	finished bool
	rounds   int
}

// NewController probes the count of every pattern and starts evaluating
// the connected graph pattern. The returned iterator yields its
// solutions. If a pattern has no matches, there are none.
func NewController(sched *iterator.Scheduler, patterns []rdf.Triple, opts Options) iterator.Iterator[rdf.Bindings] {
	c := &Controller{
		sched:    sched,
		opts:     opts,
		cfg:      opts.Config.withDefaults(),
		logger:   opts.logger(),
		clusters: make(map[string]*Cluster),
		out:      iterator.NewBuffer[rdf.Bindings](sched, "ClusteringController"),
		emitted:  make(map[string]bool),
	}
	c.out.OnDemand(c.demand)
	c.out.OnClose(c.shutdown)

	store, err := opts.newStore()
	if err != nil {
		c.out.Fail(err)
		c.out.End()
		return c.out
	}
	c.store = store
	c.cache = NewJoinCache(store)
	c.probe(slices.Clone(patterns))
	return c.out
}

// probe requests the count of every pattern and builds the nodes once all
// are known.
func (c *Controller) probe(patterns []rdf.Triple) {
	counts := make([]int64, len(patterns))
	remaining := len(patterns)
	empty := false
	for i, p := range patterns {
		i, p := i, p
		fragment := c.opts.Client.FragmentByPattern(p)
		fragments.AwaitMetadata(fragment, func(m fragments.Metadata) {
			fragment.Close()
			if empty || c.finished {
				return
			}
			if !m.Known || m.Failed || m.TotalTriples == 0 {
				empty = true
				c.finish()
				return
			}
			counts[i] = m.TotalTriples
			if remaining--; remaining == 0 {
				c.build(patterns, counts)
				c.start()
			}
		})
	}
}

func (c *Controller) build(patterns []rdf.Triple, counts []int64) {
	order := make([]int, len(patterns))
	for i := range order {
		order[i] = i
	}
	// A fixed order keeps ties deterministic.
	sort.SliceStable(order, func(a, b int) bool {
		return patterns[order[a]].QuickString() < patterns[order[b]].QuickString()
	})
	for id, i := range order {
		n := newNode(id, c.sched, c.opts.Client, patterns[i], counts[i], c.cfg, c.logger)
		c.nodes = append(c.nodes, n)
		for _, v := range n.vars {
			cl, ok := c.clusters[v]
			if !ok {
				cl = &Cluster{v: v}
				c.clusters[v] = cl
				c.vars = append(c.vars, v)
			}
			cl.nodes = append(cl.nodes, n)
		}
	}
	sort.Strings(c.vars)
}

// start assigns the initial roles. The cheapest node downloads; from its
// variables outward every other node binds the variable through which it
// was reached. Bound nodes that are tiny compared to their suppliers
// download instead, and the others bind the variable with the cheapest
// supplier.
func (c *Controller) start() {
	first := minBy(c.nodes, func(n *Node) float64 { return n.full.Cost() })

	queue := slices.Clone(first.vars)
	done := []string{}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		done = append(done, v)
		members := slices.Clone(c.clusters[v].nodes)
		sort.SliceStable(members, func(a, b int) bool { return members[a].full.Count() < members[b].full.Count() })
		for _, n := range members {
			if n == first || n.active != Stream(n.full) {
				continue
			}
			n.switchTo(v)
			for _, w := range n.vars {
				if !slices.Contains(done, w) && !slices.Contains(queue, w) {
					queue = append(queue, w)
				}
			}
		}
	}

	for changed, round := true, 0; changed && round <= len(c.nodes)*len(c.vars); round++ {
		changed = false
		for _, n := range c.nodes {
			v := n.waitingFor()
			if v == "" {
				continue
			}
			small := true
			for _, s := range c.clusters[v].suppliers() {
				if n.full.Count() >= s.full.Count()/c.cfg.FullDownloadRatio {
					small = false
					break
				}
			}
			if small {
				n.switchTo("")
				changed = true
				continue
			}
			if w := c.cheapestSupplied(n); w != v {
				n.switchTo(w)
				changed = true
			}
		}
	}

	c.order()
	c.updateDependencies()
	for _, n := range c.nodes {
		c.logger.Debug("initial role", zap.Stringer("node", n), zap.Float64("count", n.full.Count()))
	}
	c.started = true
	c.running = true
	c.read(first)
}

// cheapestSupplied returns the variable of n whose cheapest other
// supplier has the lowest count.
func (c *Controller) cheapestSupplied(n *Node) string {
	best, bestCount := n.vars[0], math.Inf(1)
	for _, v := range n.vars {
		count := math.Inf(1)
		for _, s := range c.clusters[v].suppliers() {
			if s != n {
				count = math.Min(count, s.full.Count())
			}
		}
		if count < bestCount {
			best, bestCount = v, count
		}
	}
	return best
}

// order sorts the nodes for evaluation: downloading nodes by count, then
// repeatedly the cheapest node connected to those before it.
func (c *Controller) order() {
	var ordered, rest []*Node
	for _, n := range c.nodes {
		if n.BindVar() == "" {
			ordered = append(ordered, n)
		} else {
			rest = append(rest, n)
		}
	}
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].full.Count() < ordered[b].full.Count() })

	var vars []string
	for _, n := range ordered {
		vars = appendNew(vars, n.vars...)
	}
	for len(rest) > 0 {
		candidates := slices.DeleteFunc(slices.Clone(rest), func(n *Node) bool { return !n.sharesVariable(vars) })
		if len(candidates) == 0 {
			candidates = rest
		}
		best := minBy(candidates, func(n *Node) float64 { return n.full.Count() })
		ordered = append(ordered, best)
		vars = appendNew(vars, best.vars...)
		rest = slices.DeleteFunc(rest, func(n *Node) bool { return n == best })
	}
	c.nodes = ordered
}

// updateDependencies computes, for every bound node, the earlier nodes
// that supply its variable and everything earlier connected to them. A
// bound node without an earlier supplier could never be fed, so it binds
// another variable or downloads.
func (c *Controller) updateDependencies() {
	for i, n := range c.nodes {
		earlier := c.nodes[:i]
		v := n.BindVar()
		if v == "" {
			n.dependencies = nil
			continue
		}
		if !anySupplies(earlier, v) {
			alt, altCount := "", math.Inf(1)
			for _, w := range n.vars {
				for _, s := range earlier {
					if w != v && s.supplies(w) && s.full.Count() < altCount {
						alt, altCount = w, s.full.Count()
					}
				}
			}
			n.abandon()
			c.resetNode(n)
			n.switchTo(alt)
			if alt == "" {
				n.dependencies = nil
				continue
			}
			v = alt
		}
		n.dependencies = dependencies(earlier, v)
	}
}

func anySupplies(nodes []*Node, v string) bool {
	for _, n := range nodes {
		if n.supplies(v) {
			return true
		}
	}
	return false
}

func dependencies(earlier []*Node, v string) []*Node {
	var deps []*Node
	var vars []string
	for _, n := range earlier {
		if n.supplies(v) {
			deps = append(deps, n)
			vars = appendNew(vars, n.vars...)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, n := range earlier {
			if !slices.Contains(deps, n) && n.sharesVariable(vars) {
				deps = append(deps, n)
				vars = appendNew(vars, n.vars...)
				changed = true
			}
		}
	}
	return deps
}

// demand is called when the consumer wants more solutions.
func (c *Controller) demand() {
	if !c.started || c.running || c.finished {
		return
	}
	c.vote()
}

// vote asks every cluster for a node and reads the winner. Bound nodes
// win over the nodes they depend on, and among the rest the node with the
// fewest triples wins. Without any vote the pattern is exhausted.
func (c *Controller) vote() {
	if c.finished {
		return
	}
	c.running = true
	start := time.Now()

	var votes []*Node
	for _, v := range c.vars {
		n := c.clusters[v].vote(c.count)
		if n == nil {
			continue
		}
		c.opts.Annotations.AddTiming(annotations.ClusterVote, start, map[string]interface{}{
			"cluster": v,
			"node":    n.String(),
		})
		if !slices.Contains(votes, n) {
			votes = append(votes, n)
		}
	}

	var deps []*Node
	for _, n := range votes {
		if n.BindVar() != "" {
			deps = append(deps, n.dependencies...)
		}
	}
	candidates := slices.DeleteFunc(slices.Clone(votes), func(n *Node) bool { return slices.Contains(deps, n) })
	if len(candidates) == 0 {
		c.logger.Debug("clustering finished", zap.Int("rounds", c.rounds), zap.Int("results", len(c.emitted)))
		c.finish()
		return
	}
	c.read(minBy(candidates, func(n *Node) float64 { return float64(c.count(n)) }))
}

func (c *Controller) count(n *Node) int {
	return c.store.Count(n.id)
}

// read advances n by one step, then updates the bound nodes, considers a
// switch and emits new solutions.
func (c *Controller) read(n *Node) {
	c.rounds++
	n.active.Read(func(page []rdf.Triple) {
		if c.finished {
			return
		}
		if err := c.store.Add(n.id, page); err != nil {
			c.fail(err)
			return
		}
		c.update(0, func() {
			if c.finished {
				return
			}
			c.switchCostly()
			pushed, err := c.emit()
			if err != nil {
				c.fail(err)
				return
			}
			c.running = false
			if pushed == 0 {
				c.sched.Defer(c.vote)
			}
		})
	})
}

// update feeds every bound node the values its dependencies found, in
// evaluation order, and refreshes its estimates.
func (c *Controller) update(i int, done func()) {
	if c.finished {
		return
	}
	if i == len(c.nodes) {
		done()
		return
	}
	next := func() { c.update(i+1, done) }
	n := c.nodes[i]
	bs, ok := n.binding()
	if !ok {
		next()
		return
	}

	values, err := c.cache.Values(n.dependencies, bs.BindVar())
	if err != nil {
		c.fail(err)
		return
	}
	complete := true
	for _, d := range n.dependencies {
		if !d.Ended() {
			complete = false
			break
		}
	}
	estimate := c.estimate(n.dependencies, len(values))
	if estimate < float64(len(values)) && !complete {
		// The server counts were too low.
		estimate = float64(len(values) + 1)
	}
	bs.Feed(values)
	bs.Stabilize(func() {
		bs.UpdateRemaining(estimate-float64(len(values)), complete)
		next()
	})
}

// estimate extrapolates the number of values the dependencies will find
// from how many of their triples matched so far.
func (c *Controller) estimate(deps []*Node, values int) float64 {
	if values == 0 {
		return math.Inf(1)
	}
	estimate := 0.0
	for _, d := range deps {
		rate := 0.0
		if tc := d.active.TripleCount(); tc > 0 {
			rate = float64(values) / float64(tc)
		}
		e := rate * d.active.Count()
		if math.IsNaN(e) {
			e = math.Inf(1)
		}
		estimate = math.Max(estimate, e)
	}
	return estimate
}

// switchCostly switches the cheapest bound node whose cost exceeds its
// full download by more than the margin. At most one node switches per
// round.
func (c *Controller) switchCostly() {
	var bound []*Node
	for _, n := range c.nodes {
		if n.BindVar() != "" {
			bound = append(bound, n)
		}
	}
	sort.SliceStable(bound, func(a, b int) bool { return bound[a].full.Count() < bound[b].full.Count() })

	for _, n := range bound {
		cost := n.active.Cost()
		if math.IsInf(cost, 0) || cost <= c.cfg.SwitchMargin*n.full.Cost() {
			continue
		}
		from := n.BindVar()
		c.logger.Debug("switching to download",
			zap.Stringer("node", n), zap.Float64("cost", cost), zap.Float64("download", n.full.Cost()))
		c.opts.Annotations.AddEvent(annotations.ClusterSwitch, map[string]interface{}{
			"node": n.pattern.QuickString(),
			"from": from,
			"to":   "download",
		})
		n.abandon()
		c.resetNode(n)
		n.switchTo("")

		// Downloads go first so that every bound node may depend on them.
		c.nodes = slices.DeleteFunc(c.nodes, func(x *Node) bool { return x == n })
		at := slices.IndexFunc(c.nodes, func(x *Node) bool { return x.BindVar() == "" })
		if at < 0 {
			at = len(c.nodes)
		}
		c.nodes = slices.Insert(c.nodes, at, n)
		c.updateDependencies()
		return
	}
}

// resetNode forgets the triples of n.
func (c *Controller) resetNode(n *Node) {
	if c.store.Count(n.id) == 0 {
		return
	}
	if err := c.store.Reset(n.id); err != nil {
		c.fail(err)
		return
	}
	c.cache.Reset(n.id)
}

// emit joins all nodes and pushes the solutions not emitted before.
func (c *Controller) emit() (int, error) {
	start := time.Now()
	results, err := c.cache.Match(c.nodes)
	if err != nil {
		return 0, err
	}
	if c.opts.Annotations.Enabled() {
		names := make([]string, len(c.nodes))
		for i, n := range c.nodes {
			names[i] = n.pattern.QuickString()
		}
		c.opts.Annotations.AddTiming(annotations.ClusterJoin, start, map[string]interface{}{
			"nodes":          strings.Join(names, " "),
			"bindings.count": len(results),
		})
	}
	pushed := 0
	for _, b := range results {
		key := codec.Digest(b.Key())
		if c.emitted[key] {
			continue
		}
		c.emitted[key] = true
		c.out.Push(b)
		pushed++
	}
	return pushed, nil
}

func (c *Controller) fail(err error) {
	c.out.Fail(err)
	c.finish()
}

// finish ends the output and releases all streams.
func (c *Controller) finish() {
	if c.finished {
		return
	}
	c.finished = true
	c.running = false
	c.out.End()
	c.shutdown()
}

func (c *Controller) shutdown() {
	c.finished = true
	for _, n := range c.nodes {
		n.close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Debug("closing triple store", zap.Error(err))
		}
		c.store = nil
	}
}
