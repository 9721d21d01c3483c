package clustering

import (
	"slices"

	"github.com/wbrown/janus-ldf/ldf/engine"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// NewGraphIterator extends every inflow binding with the solutions of a
// basic graph pattern, evaluated by a clustering controller per connected
// sub-pattern. Sub-patterns of a single triple pattern use the plain
// triple pattern iterator, and the solutions of disconnected
// sub-patterns are cross joined.
func NewGraphIterator(parent engine.Bindings, patterns []rdf.Triple, opts Options) engine.Bindings {
	switch len(patterns) {
	case 0:
		return iterator.NewPassthrough(parent.Scheduler(), parent)
	case 1:
		single := opts.engineOptions()
		single.Optional = opts.Optional
		return engine.NewTriplePatternIterator(parent, patterns[0], single)
	}
	g := &graph{sched: parent.Scheduler(), patterns: slices.Clone(patterns), opts: opts}
	return iterator.NewMultiTransform(parent, g.create, opts.multiTransform())
}

type graph struct {
	sched    *iterator.Scheduler
	patterns []rdf.Triple
	opts     Options
}

func (g *graph) create(bindings rdf.Bindings) (engine.Bindings, error) {
	var solutions engine.Bindings
	for _, sub := range rdf.FindConnectedPatterns(bindings.ApplyAll(g.patterns)) {
		var it engine.Bindings
		if len(sub) == 1 {
			it = engine.NewTriplePatternIterator(engine.Single(g.sched, nil), sub[0], g.opts.engineOptions())
		} else {
			it = NewController(g.sched, sub, g.opts)
		}
		if solutions == nil {
			solutions = it
		} else {
			solutions = NewCrossJoinIterator(solutions, it)
		}
	}

	return iterator.NewTransform(g.sched, solutions, func(s rdf.Bindings, push func(rdf.Bindings), done func()) error {
		merged := bindings.Clone()
		for k, v := range s {
			merged[k] = v
		}
		push(merged)
		done()
		return nil
	}, iterator.TransformOptions[rdf.Bindings]{}), nil
}
