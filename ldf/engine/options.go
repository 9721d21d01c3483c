// Package engine evaluates basic graph patterns against a fragments
// client. Bindings flow through a pipeline of triple pattern iterators whose
// order is chosen per binding from the counts the server reports.
package engine

import (
	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Bindings is a stream of variable bindings.
type Bindings = iterator.Iterator[rdf.Bindings]

// Options configures the pattern iterators.
type Options struct {
	Client      fragments.Client       // Source of fragments (required)
	Logger      *zap.Logger            // Warnings for failed fragments (default: no-op)
	Annotations *annotations.Collector // Execution events (optional)
	BufferSize  int                    // Open transformers per multi-transform (0 = iterator.DefaultBufferSize)
	Optional    bool                   // Emit inflow bindings that yield no results unchanged
	Hints       []RegexHint            // Substring candidates for the cheapest-first choice
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// nested returns the options for the stages inside a pipeline, which are
// never optional themselves.
func (o Options) nested() Options {
	o.Optional = false
	return o
}

func (o Options) multiTransform() iterator.MultiTransformOptions[rdf.Bindings, rdf.Bindings] {
	opts := iterator.MultiTransformOptions[rdf.Bindings, rdf.Bindings]{BufferSize: o.BufferSize}
	if o.Optional {
		opts.Optional = func(b rdf.Bindings) rdf.Bindings { return b }
	}
	return opts
}

// Single returns a stream holding only the empty binding, the start of
// every pipeline.
func Single(sched *iterator.Scheduler, b rdf.Bindings) Bindings {
	if b == nil {
		b = rdf.Bindings{}
	}
	return iterator.NewSingle(sched, b)
}
