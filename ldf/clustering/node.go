package clustering

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Node is one triple pattern of the graph pattern together with the
// stream it currently reads from.
type Node struct {
	id      int
	pattern rdf.Triple
	vars    []string

	full   *DownloadStream
	active Stream
	binds  map[string]*BindingStream

	// dependencies are the nodes whose join feeds the values of a
	// binding stream. They always precede the node in evaluation order.
	dependencies []*Node

	newBinding func(v string) *BindingStream
}

func newNode(id int, sched *iterator.Scheduler, client fragments.Client, pattern rdf.Triple, count int64, cfg Config, logger *zap.Logger) *Node {
	n := &Node{
		id:      id,
		pattern: pattern,
		vars:    variables(pattern),
		full:    newDownloadStream(sched, client, pattern, count, cfg, logger),
		binds:   make(map[string]*BindingStream),
	}
	n.active = n.full
	n.newBinding = func(v string) *BindingStream {
		return newBindingStream(sched, client, pattern, v, cfg, logger)
	}
	return n
}

// ID returns the index of the node in its controller.
func (n *Node) ID() int { return n.id }

// Pattern returns the triple pattern of the node.
func (n *Node) Pattern() rdf.Triple { return n.pattern }

// BindVar returns the variable the node binds, or "" while it downloads.
func (n *Node) BindVar() string { return n.active.BindVar() }

// Active returns the stream the node reads from.
func (n *Node) Active() Stream { return n.active }

// Ended reports whether the active stream has ended.
func (n *Node) Ended() bool { return n.active.Ended() }

// Cost returns the remaining cost of the active stream.
func (n *Node) Cost() float64 { return n.active.Cost() }

// switchTo makes the node bind v, or download when v is "".
func (n *Node) switchTo(v string) {
	if v == "" {
		n.active = n.full
		return
	}
	bs, ok := n.binds[v]
	if !ok {
		bs = n.newBinding(v)
		n.binds[v] = bs
	}
	n.active = bs
}

// binding returns the active binding stream, if any.
func (n *Node) binding() (*BindingStream, bool) {
	bs, ok := n.active.(*BindingStream)
	return bs, ok
}

// supplies reports whether the node finds values for v.
func (n *Node) supplies(v string) bool {
	return slices.Contains(n.vars, v) && n.BindVar() != v
}

// supplyVars returns the variables the node finds values for.
func (n *Node) supplyVars() []string {
	bound := n.BindVar()
	return slices.DeleteFunc(slices.Clone(n.vars), func(v string) bool { return v == bound })
}

// hungry reports whether the node waits for values to bind.
func (n *Node) hungry() bool {
	bs, ok := n.binding()
	return ok && bs.Hungry()
}

// waitingFor returns the variable a hungry node waits for.
func (n *Node) waitingFor() string {
	if n.hungry() {
		return n.BindVar()
	}
	return ""
}

// sharesVariable reports whether the node has one of vars.
func (n *Node) sharesVariable(vars []string) bool {
	for _, v := range n.vars {
		if slices.Contains(vars, v) {
			return true
		}
	}
	return false
}

// abandon closes the active binding stream, so that binding its variable
// again starts from scratch.
func (n *Node) abandon() {
	if bs, ok := n.binding(); ok {
		bs.Close()
		delete(n.binds, bs.BindVar())
	}
}

func (n *Node) close() {
	n.full.Close()
	for _, bs := range n.binds {
		bs.Close()
	}
}

func (n *Node) String() string {
	if v := n.BindVar(); v != "" {
		return n.pattern.QuickString() + " (" + v + ")"
	}
	return n.pattern.QuickString()
}
