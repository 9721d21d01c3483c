package engine

import (
	"slices"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// NewReorderingGraphPatternIterator extends every inflow binding with the
// matches of a basic graph pattern. For each binding the bound pattern is
// split into connected sub-patterns; within the smallest one, the fragment
// counts of all patterns are probed and the pattern with the fewest matches
// is evaluated first. The remaining patterns are reordered again for every
// binding the first stage produces.
func NewReorderingGraphPatternIterator(parent Bindings, patterns []rdf.Triple, opts Options) Bindings {
	switch {
	case len(patterns) == 0:
		return iterator.NewPassthrough(parent.Scheduler(), parent)
	case len(patterns) == 1 && len(opts.Hints) == 0:
		return NewTriplePatternIterator(parent, patterns[0], opts)
	}
	r := &reorderer{sched: parent.Scheduler(), patterns: slices.Clone(patterns), opts: opts}
	return iterator.NewMultiTransform(parent, r.createTransformer, opts.multiTransform())
}

type reorderer struct {
	sched    *iterator.Scheduler
	patterns []rdf.Triple
	opts     Options
}

// candidate is a possible first stage: a triple pattern or a substring hint.
type candidate struct {
	pattern rdf.Triple
	hint    *RegexHint
}

func (c candidate) String() string {
	if c.hint != nil {
		return c.hint.String()
	}
	return c.pattern.String()
}

func (r *reorderer) createTransformer(bindings rdf.Bindings) (Bindings, error) {
	bound := bindings.ApplyAll(r.patterns)

	// Order the sub-patterns so that the one with the fewest patterns and
	// distinct variables comes last.
	subs := rdf.FindConnectedPatterns(bound)
	score := func(sub []rdf.Triple) int {
		return len(bound)*len(rdf.DistinctVariables(sub)) + len(sub)
	}
	sort.SliceStable(subs, func(i, j int) bool { return score(subs[i]) > score(subs[j]) })
	sub := subs[len(subs)-1]
	others := subs[:len(subs)-1]

	hints := r.hintsFor(sub)
	if len(sub) == 1 && len(hints) == 0 {
		return r.pipeline(bindings, candidate{pattern: sub[0]}, nil, others), nil
	}

	// The first stage is only known once the counts are in, so the
	// pipeline is attached to a placeholder later.
	pipeline := iterator.NewTransform(r.sched, nil, func(b rdf.Bindings, push func(rdf.Bindings), done func()) error {
		push(b)
		done()
		return nil
	}, iterator.TransformOptions[rdf.Bindings]{})

	probe := func(withHints bool) {
		candidates := make([]candidate, 0, len(sub)+len(hints))
		for _, p := range sub {
			candidates = append(candidates, candidate{pattern: p})
		}
		if withHints {
			for i := range hints {
				candidates = append(candidates, candidate{hint: &hints[i]})
			}
		}
		r.probe(pipeline, bindings, sub, others, candidates)
	}
	if len(hints) > 0 {
		r.opts.Client.AwaitFreeText(probe)
	} else {
		probe(false)
	}
	return pipeline, nil
}

// probe requests the count of every candidate and starts the pipeline with
// the cheapest. A pattern without matches, or whose fragment failed, means
// the sub-pattern has no solutions for this binding. A hint without a count
// is simply not considered.
func (r *reorderer) probe(pipeline *iterator.Transform[rdf.Bindings, rdf.Bindings], bindings rdf.Bindings, sub []rdf.Triple, others [][]rdf.Triple, candidates []candidate) {
	logger := r.opts.logger()
	start := time.Now()
	remaining := len(candidates)
	best, minCount := -1, int64(0)
	counts := make([]string, len(candidates))
	finished := false

	for i, c := range candidates {
		i, c := i, c
		var fragment fragments.Fragment
		if c.hint != nil {
			fragment = r.opts.Client.FragmentBySubstring(c.hint.Substring)
		} else {
			fragment = r.opts.Client.FragmentByPattern(c.pattern)
			fragment.OnError(func(err error) {
				logger.Warn("count probe failed", zap.String("pattern", c.pattern.String()), zap.Error(err))
			})
		}
		fragments.AwaitMetadata(fragment, func(m fragments.Metadata) {
			fragment.Close()
			if finished {
				return
			}
			usable := m.Known && !m.Failed
			switch {
			case c.hint == nil && (!usable || m.TotalTriples == 0):
				finished = true
				pipeline.Close()
				return
			case usable && (best < 0 || m.TotalTriples < minCount):
				best, minCount = i, m.TotalTriples
			}
			if usable {
				counts[i] = strconv.FormatInt(m.TotalTriples, 10)
			} else {
				counts[i] = "?"
			}
			if remaining--; remaining > 0 {
				return
			}
			finished = true
			chosen := candidates[best]
			r.opts.Annotations.AddTiming(annotations.ReorderChoice, start, map[string]interface{}{
				"pattern": chosen.String(),
				"counts":  counts,
			})
			rest := sub
			if chosen.hint == nil {
				rest = slices.DeleteFunc(slices.Clone(sub), func(p rdf.Triple) bool { return p == chosen.pattern })
			}
			pipeline.SetSource(r.pipeline(bindings, chosen, rest, others))
		})
	}
}

// pipeline chains the chosen first stage, the rest of its sub-pattern and
// the other sub-patterns, smallest first.
func (r *reorderer) pipeline(bindings rdf.Bindings, first candidate, rest []rdf.Triple, others [][]rdf.Triple) Bindings {
	opts := r.opts.nested()
	var p Bindings
	start := Single(r.sched, bindings)
	if first.hint != nil {
		p = NewRegexIterator(start, *first.hint, opts)
		hint := *first.hint
		opts.Hints = slices.DeleteFunc(slices.Clone(opts.Hints), func(h RegexHint) bool { return h == hint })
	} else {
		p = NewTriplePatternIterator(start, first.pattern, opts)
	}
	if len(rest) > 0 {
		p = NewReorderingGraphPatternIterator(p, rest, opts)
	}
	for i := len(others) - 1; i >= 0; i-- {
		p = NewReorderingGraphPatternIterator(p, others[i], opts)
	}
	return p
}

// hintsFor returns the hints on variables of sub that are still unbound.
func (r *reorderer) hintsFor(sub []rdf.Triple) []RegexHint {
	if len(r.opts.Hints) == 0 {
		return nil
	}
	vars := rdf.DistinctVariables(sub)
	var hints []RegexHint
	for _, h := range r.opts.Hints {
		if slices.Contains(vars, h.Variable) {
			hints = append(hints, h)
		}
	}
	return hints
}
