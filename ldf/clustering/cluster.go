package clustering

// Cluster groups the nodes that share a variable.
type Cluster struct {
	v     string
	nodes []*Node
}

// Variable returns the variable of the cluster.
func (c *Cluster) Variable() string { return c.v }

// suppliers returns the nodes that find values for the variable.
func (c *Cluster) suppliers() []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if n.supplies(c.v) {
			out = append(out, n)
		}
	}
	return out
}

// filters returns the nodes that bind the variable and supply nothing
// else, which can only remove values.
func (c *Cluster) filters() []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if len(n.supplyVars()) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// vote picks the node the cluster wants advanced next, or nil when no
// node can make progress. Filters go first. Otherwise a supplier that has
// read nothing yet wins by cost, and after that the supplier with the
// fewest triples. count returns the triples a node holds.
func (c *Cluster) vote(count func(*Node) int) *Node {
	usable := func(n *Node) bool { return !n.Ended() && !n.hungry() }

	for _, n := range c.filters() {
		if usable(n) {
			return n
		}
	}

	var suppliers, empty []*Node
	for _, n := range c.suppliers() {
		if !usable(n) {
			continue
		}
		suppliers = append(suppliers, n)
		if n.active.TripleCount() == 0 {
			empty = append(empty, n)
		}
	}
	if len(empty) > 0 {
		return minBy(empty, func(n *Node) float64 { return n.active.Cost() })
	}
	if len(suppliers) > 0 {
		return minBy(suppliers, func(n *Node) float64 { return float64(count(n)) })
	}
	return nil
}

// minBy returns the first node with the smallest value. Unlike a plain
// comparison against infinity it still picks a node when every value is
// infinite.
func minBy(nodes []*Node, value func(*Node) float64) *Node {
	if len(nodes) == 0 {
		return nil
	}
	best, bestVal := nodes[0], value(nodes[0])
	for _, n := range nodes[1:] {
		if v := value(n); v < bestVal {
			best, bestVal = n, v
		}
	}
	return best
}
