package sparql

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/clustering"
	"github.com/wbrown/janus-ldf/ldf/engine"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

type assembler struct {
	opts Options
}

// groups chains the iterators of a list of groups. The regex filters of
// the list become substring hints for its graph patterns; the filters
// themselves still apply.
func (a *assembler) groups(source engine.Bindings, groups []Group, eopts engine.Options) (engine.Bindings, error) {
	for _, g := range groups {
		if g.Type != GroupFilter || g.Expression == nil {
			continue
		}
		if hint, ok := regexHint(*g.Expression); ok {
			eopts.Hints = append(slices.Clone(eopts.Hints), hint)
		}
	}
	var err error
	for _, g := range groups {
		if source, err = a.group(source, g, eopts); err != nil {
			return nil, err
		}
	}
	return source, nil
}

func (a *assembler) group(source engine.Bindings, g Group, eopts engine.Options) (engine.Bindings, error) {
	child := eopts
	child.Optional = false

	switch g.Type {
	case GroupBGP:
		return a.bgp(source, g.Triples, eopts), nil

	case GroupGroup:
		return a.groups(source, g.Patterns, child)

	case GroupOptional:
		child.Optional = true
		return a.groups(source, g.Patterns, child)

	case GroupUnion:
		cloneable := iterator.NewCloneable(source)
		branches := make([]engine.Bindings, len(g.Patterns))
		for i, p := range g.Patterns {
			branch, err := a.group(cloneable.Clone(), p, child)
			if err != nil {
				return nil, err
			}
			branches[i] = branch
		}
		return iterator.NewUnion(source.Scheduler(), branches), nil

	case GroupFilter:
		if g.Expression == nil {
			return nil, errors.New("filter without expression")
		}
		eval, err := CompileExpression(*g.Expression)
		if err != nil {
			return nil, err
		}
		logger := a.opts.logger()
		// a binding is rejected when the expression is 0, false or fails
		return iterator.NewFilter(source, func(b rdf.Bindings) (bool, error) {
			value, err := eval(b)
			if err != nil {
				logger.Debug("filter rejected binding", zap.String("filter", g.Expression.String()), zap.Error(err))
				return false, nil
			}
			return Accepts(value), nil
		}), nil
	}
	return nil, fmt.Errorf("unsupported group type: %s", g.Type)
}

func (a *assembler) bgp(source engine.Bindings, triples []rdf.Triple, eopts engine.Options) engine.Bindings {
	if a.opts.Planner == PlannerClustering {
		return clustering.NewGraphIterator(source, triples, a.clusteringOptions(eopts))
	}
	return engine.NewReorderingGraphPatternIterator(source, triples, eopts)
}

func (a *assembler) clusteringOptions(eopts engine.Options) clustering.Options {
	return clustering.Options{
		Client:      eopts.Client,
		Logger:      eopts.Logger,
		Annotations: eopts.Annotations,
		Config:      a.opts.Clustering,
		Optional:    eopts.Optional,
		BufferSize:  a.opts.BufferSize,
	}
}

// regexHint returns the substring hint of regex(?var, "literal"[, "flags"])
func regexHint(e Expression) (engine.RegexHint, bool) {
	if e.Type != ExprOperation || e.Operator != "regex" || len(e.Args) < 2 {
		return engine.RegexHint{}, false
	}
	for _, arg := range e.Args {
		if !arg.IsTerm() {
			return engine.RegexHint{}, false
		}
	}
	pattern := e.Args[1].Term
	if !rdf.IsLiteral(pattern) {
		return engine.RegexHint{}, false
	}
	flags := ""
	if len(e.Args) == 3 {
		flags = rdf.LiteralValue(e.Args[2].Term)
	}
	return engine.NewRegexHint(e.Args[0].Term, rdf.LiteralValue(pattern), flags)
}
