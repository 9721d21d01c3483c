package clustering

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// row is one join result together with the position, per node, of the
// triple it was built from.
type row struct {
	bindings rdf.Bindings
	indices  map[int]int
}

// cacheEntry is the join of a set of nodes as it was when the nodes held
// counts triples each.
type cacheEntry struct {
	nodes  []int
	counts map[int]int
	rows   []row
}

// JoinCache joins the triples of sets of nodes and remembers the result
// of every subset it computed. A later join of an overlapping set starts
// from the largest subset whose result is still current and extends a
// cached result with only the triples that arrived since.
type JoinCache struct {
	store   TripleStore
	entries map[string]*cacheEntry
}

// NewJoinCache creates a cache over the triples of store.
func NewJoinCache(store TripleStore) *JoinCache {
	return &JoinCache{store: store, entries: make(map[string]*cacheEntry)}
}

// Reset drops every result that involves node. It must be called when
// the triples of the node are reset.
func (c *JoinCache) Reset(node int) {
	for key, e := range c.entries {
		if slices.Contains(e.nodes, node) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached results.
func (c *JoinCache) Len() int {
	return len(c.entries)
}

// Match returns the join of the triples of nodes.
func (c *JoinCache) Match(nodes []*Node) ([]rdf.Bindings, error) {
	rows, err := c.join(nodes)
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Bindings, len(rows))
	for i, r := range rows {
		out[i] = r.bindings
	}
	return out, nil
}

// Values returns the distinct values of v in the join of nodes, in order
// of first appearance.
func (c *JoinCache) Values(nodes []*Node, v string) ([]string, error) {
	rows, err := c.join(nodes)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var values []string
	for _, r := range rows {
		if val, ok := r.bindings[v]; ok && !seen[val] {
			seen[val] = true
			values = append(values, val)
		}
	}
	return values, nil
}

func (c *JoinCache) join(nodes []*Node) ([]row, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	var (
		ids     []int
		vars    []string
		rows    []row
		started bool
	)
	remaining := slices.Clone(nodes)
	if best := c.bestEntry(nodes); best != nil {
		ids = slices.Clone(best.nodes)
		rows = best.rows
		started = true
		remaining = slices.DeleteFunc(remaining, func(n *Node) bool { return slices.Contains(ids, n.id) })
		for _, n := range nodes {
			if slices.Contains(ids, n.id) {
				vars = appendNew(vars, n.vars...)
			}
		}
	}

	for len(remaining) > 0 {
		if started && len(rows) == 0 {
			return nil, nil
		}
		i := c.next(remaining, ids, vars, rows, started)
		node := remaining[i]
		remaining = slices.Delete(remaining, i, i+1)

		next := append(slices.Clone(ids), node.id)
		slices.Sort(next)
		var err error
		rows, err = c.extend(next, node, rows, started)
		if err != nil {
			return nil, err
		}
		ids = next
		vars = appendNew(vars, node.vars...)
		started = true
	}
	return rows, nil
}

// extend computes the join of the nodes ids from the current join of all
// of them except node. With a cached result for ids, only the pairs that
// involve a triple newer than the cached snapshot are computed: fresh rows
// with the old triples of node, and all rows with its new triples.
func (c *JoinCache) extend(ids []int, node *Node, rows []row, started bool) ([]row, error) {
	key := entryKey(ids)
	count := c.store.Count(node.id)
	entry := c.entries[key]

	var joined []row
	switch {
	case entry == nil:
		triples, err := c.store.Triples(node.id, 0, count)
		if err != nil {
			return nil, err
		}
		joined = joinTriples(rows, started, node, triples, 0)

	case !started:
		old := entry.counts[node.id]
		triples, err := c.store.Triples(node.id, old, count)
		if err != nil {
			return nil, err
		}
		joined = append(slices.Clip(entry.rows), joinTriples(nil, false, node, triples, old)...)

	default:
		old := entry.counts[node.id]
		var fresh []row
		for _, r := range rows {
			for id, idx := range r.indices {
				if idx >= entry.counts[id] {
					fresh = append(fresh, r)
					break
				}
			}
		}
		oldTriples, err := c.store.Triples(node.id, 0, old)
		if err != nil {
			return nil, err
		}
		newTriples, err := c.store.Triples(node.id, old, count)
		if err != nil {
			return nil, err
		}
		joined = slices.Clip(entry.rows)
		joined = append(joined, joinTriples(fresh, true, node, oldTriples, 0)...)
		joined = append(joined, joinTriples(rows, true, node, newTriples, old)...)
	}

	counts := make(map[int]int, len(ids))
	for _, id := range ids {
		counts[id] = c.store.Count(id)
	}
	c.entries[key] = &cacheEntry{nodes: ids, counts: counts, rows: joined}
	return joined, nil
}

// bestEntry returns the largest cached subset of nodes whose result is
// current.
func (c *JoinCache) bestEntry(nodes []*Node) *cacheEntry {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.id
	}
	var best *cacheEntry
	for _, e := range c.entries {
		if best != nil && len(e.nodes) <= len(best.nodes) {
			continue
		}
		if len(e.nodes) > len(ids) || !c.current(e) {
			continue
		}
		subset := true
		for _, id := range e.nodes {
			if !slices.Contains(ids, id) {
				subset = false
				break
			}
		}
		if subset {
			best = e
		}
	}
	return best
}

func (c *JoinCache) current(e *cacheEntry) bool {
	for _, id := range e.nodes {
		if e.counts[id] != c.store.Count(id) {
			return false
		}
	}
	return true
}

// next picks the node to join next: a node connected to what was joined
// so far, preferring the one with the least new work.
func (c *JoinCache) next(remaining []*Node, ids []int, vars []string, rows []row, started bool) int {
	best, bestCost := -1, math.Inf(1)
	for i, n := range remaining {
		if started && !n.sharesVariable(vars) {
			continue
		}
		if cost := c.cost(n, ids, rows); best < 0 || cost < bestCost {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		// Nothing connected: a cross product is unavoidable.
		return 0
	}
	return best
}

// cost estimates the work of joining n. Without a cached result it is
// the size of the product; with one it is the number of triples that
// arrived since, for n and for the most changed node already joined.
func (c *JoinCache) cost(n *Node, ids []int, rows []row) float64 {
	count := c.store.Count(n.id)
	next := append(slices.Clone(ids), n.id)
	slices.Sort(next)
	entry, ok := c.entries[entryKey(next)]
	if !ok {
		if len(ids) == 0 {
			return float64(count) * float64(count)
		}
		return float64(count) * float64(len(rows))
	}
	diff := 0
	for _, id := range ids {
		diff = max(diff, c.store.Count(id)-entry.counts[id])
	}
	return float64(count-entry.counts[n.id]) + float64(diff)
}

// joinTriples joins rows with the bindings of the triples of node. offset
// is the position of the first triple. When started is false the rows are
// ignored and the triple bindings are the result.
func joinTriples(rows []row, started bool, node *Node, triples []rdf.Triple, offset int) []row {
	if len(triples) == 0 || (started && len(rows) == 0) {
		return nil
	}
	right := make([]row, 0, len(triples))
	for i, t := range triples {
		b, err := rdf.FindBindings(node.pattern, t)
		if err != nil {
			continue
		}
		right = append(right, row{bindings: b, indices: map[int]int{node.id: offset + i}})
	}
	if !started || len(right) == 0 {
		return right
	}

	var keys []string
	for _, v := range node.vars {
		if _, ok := rows[0].bindings[v]; ok {
			keys = append(keys, v)
		}
	}
	index := make(map[string][]row, len(right))
	for _, r := range right {
		k := joinKey(r.bindings, keys)
		index[k] = append(index[k], r)
	}

	var joined []row
	for _, l := range rows {
		for _, r := range index[joinKey(l.bindings, keys)] {
			joined = append(joined, mergeRows(l, r))
		}
	}
	return joined
}

func mergeRows(l, r row) row {
	b := l.bindings.Clone()
	for k, v := range r.bindings {
		b[k] = v
	}
	indices := make(map[int]int, len(l.indices)+len(r.indices))
	for k, v := range l.indices {
		indices[k] = v
	}
	for k, v := range r.indices {
		indices[k] = v
	}
	return row{bindings: b, indices: indices}
}

func joinKey(b rdf.Bindings, keys []string) string {
	if len(keys) == 1 {
		return b[keys[0]]
	}
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(b[k])
		sb.WriteByte(0)
	}
	return sb.String()
}

func entryKey(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func appendNew(vars []string, add ...string) []string {
	for _, v := range add {
		if !slices.Contains(vars, v) {
			vars = append(vars, v)
		}
	}
	return vars
}
