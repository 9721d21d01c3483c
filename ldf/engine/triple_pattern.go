package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// NewTriplePatternIterator extends every inflow binding with the matches of
// pattern. For each binding the bound pattern's fragment is requested, and
// each of its triples that agrees with the binding yields an extended
// binding. Triples that conflict are skipped. Fragment errors are logged and
// otherwise treated as an empty fragment.
func NewTriplePatternIterator(parent Bindings, pattern rdf.Triple, opts Options) *iterator.MultiTransform[rdf.Bindings, rdf.Bindings] {
	logger := opts.logger()
	sched := parent.Scheduler()
	mopts := opts.multiTransform()
	mopts.TransformerError = func(_ rdf.Bindings, err error) error {
		logger.Warn("fragment failed, continuing without it",
			zap.String("pattern", pattern.String()), zap.Error(err))
		return nil
	}

	create := func(bindings rdf.Bindings) (Bindings, error) {
		bound := bindings.Apply(pattern)
		fragment := opts.Client.FragmentByPattern(bound)
		if opts.Annotations.Enabled() {
			start := time.Now()
			fragments.AwaitMetadata(fragment, func(m fragments.Metadata) {
				opts.Annotations.AddTiming(annotations.PatternFragment, start, map[string]interface{}{
					"pattern": bound.String(),
					"count":   m.TotalTriples,
				})
			})
		}
		return iterator.NewTransform(sched, fragment, func(triple rdf.Triple, push func(rdf.Bindings), done func()) error {
			if extended, err := bindings.Extend(pattern, triple); err == nil {
				push(extended)
			}
			done()
			return nil
		}, iterator.TransformOptions[rdf.Bindings]{}), nil
	}

	return iterator.NewMultiTransform(parent, create, mopts)
}
