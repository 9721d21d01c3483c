package sparql

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/codec"
	"github.com/wbrown/janus-ldf/ldf/engine"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Row is one SELECT solution. Unbound variables have no entry.
type Row map[string]string

// Result holds the result iterator of a query. Exactly one of Rows,
// Triples and Boolean is set, depending on Type.
type Result struct {
	Type      QueryType
	Variables []string                      // projected variables of SELECT and DESCRIBE
	Rows      iterator.Iterator[Row]        // SELECT
	Triples   iterator.Iterator[rdf.Triple] // CONSTRUCT and DESCRIBE
	Boolean   iterator.Iterator[bool]       // ASK

	client fragments.Client
	stop   func() bool
}

// Scheduler returns the scheduler that drives the result.
func (r *Result) Scheduler() *iterator.Scheduler {
	return r.client.Scheduler()
}

// Failures returns the number of fragment pages that failed so far. A
// non-zero count means the results may be incomplete.
func (r *Result) Failures() int {
	return r.client.Failures()
}

// Close stops the query.
func (r *Result) Close() {
	if r.stop != nil {
		r.stop()
	}
	switch {
	case r.Rows != nil:
		r.Rows.Close()
	case r.Triples != nil:
		r.Triples.Close()
	case r.Boolean != nil:
		r.Boolean.Close()
	}
}

// Execute parses a query and prepares its result. Cancelling ctx aborts
// the requests of the client.
func Execute(ctx context.Context, text string, opts Options) (*Result, error) {
	opts.Annotations.AddEvent(annotations.QueryInvoked, map[string]interface{}{"query": text})
	q, err := ParseWithPrefixes(text, opts.Prefixes)
	if err != nil {
		return nil, err
	}
	return prepare(ctx, q, text, opts)
}

// ExecuteQuery prepares the result of an already parsed query.
func ExecuteQuery(ctx context.Context, q *Query, opts Options) (*Result, error) {
	return prepare(ctx, q, "", opts)
}

func prepare(ctx context.Context, q *Query, text string, opts Options) (*Result, error) {
	if opts.Client == nil {
		return nil, errors.New("sparql: no fragments client")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	res, err := build(q, opts)
	if err != nil {
		var invalid *InvalidQueryError
		var unsupportedErr *UnsupportedQueryError
		if errors.As(err, &invalid) || errors.As(err, &unsupportedErr) {
			return nil, err
		}
		return nil, &UnsupportedQueryError{Query: text, Err: err}
	}
	res.client = opts.Client
	res.stop = context.AfterFunc(ctx, opts.Client.Abort)
	return res, nil
}

func build(q *Query, opts Options) (*Result, error) {
	sched := opts.Client.Scheduler()
	eopts := engine.Options{
		Client:      opts.Client,
		Logger:      opts.Logger,
		Annotations: opts.Annotations,
		BufferSize:  opts.BufferSize,
	}

	where := q.Where
	template := q.Template
	vars := q.ProjectedVariables()
	if q.Type == Describe {
		template = describeTemplate(vars)
		where = append(slices.Clone(where), Group{Type: GroupBGP, Triples: template})
	}

	a := &assembler{opts: opts}
	graph, err := a.groups(engine.Single(sched, nil), where, eopts)
	if err != nil {
		return nil, err
	}
	for i := len(q.Order) - 1; i >= 0; i-- {
		cmp, err := orderComparator(q.Order[i])
		if err != nil {
			return nil, err
		}
		graph = iterator.NewSort(graph, cmp, opts.SortWindow)
	}

	res := &Result{Type: q.Type, Variables: vars}
	switch q.Type {
	case Select:
		var rows iterator.Iterator[Row] = newSelect(graph, q.Variables)
		if q.Distinct {
			rows = iterator.NewDistinct(rows, func(r Row) string { return codec.Digest(rdf.Bindings(r).Key()) }, opts.DistinctWindow)
		}
		rows = slice(rows, q)
		res.Rows = completion(rows, opts)
	case Construct, Describe:
		var triples iterator.Iterator[rdf.Triple] = newConstruct(graph, template)
		if q.Distinct {
			triples = iterator.NewDistinct(triples, func(t rdf.Triple) string { return codec.Digest(t.String()) }, opts.DistinctWindow)
		}
		triples = slice(triples, q)
		res.Triples = completion(triples, opts)
	case Ask:
		res.Boolean = completion[bool](newAsk(graph), opts)
	default:
		return nil, fmt.Errorf("no iterator available for query type: %s", q.Type)
	}
	return res, nil
}

func slice[T any](it iterator.Iterator[T], q *Query) iterator.Iterator[T] {
	if q.Offset == 0 && q.Limit < 0 {
		return it
	}
	return iterator.NewLimit(it, q.Offset, q.Limit)
}

// completion reports the end of the query as an annotation
func completion[T any](it iterator.Iterator[T], opts Options) iterator.Iterator[T] {
	if !opts.Annotations.Enabled() {
		return it
	}
	start := time.Now()
	count := 0
	reported := false
	report := func(err error) {
		if reported {
			return
		}
		reported = true
		data := map[string]interface{}{
			"success":          err == nil,
			"results.count":    count,
			"fragments.failed": opts.Client.Failures(),
		}
		if err != nil {
			data["error"] = err.Error()
		}
		opts.Annotations.AddTiming(annotations.QueryComplete, start, data)
	}
	counted := iterator.NewTransform(it.Scheduler(), it, func(item T, push func(T), done func()) error {
		count++
		push(item)
		done()
		return nil
	}, iterator.TransformOptions[T]{Flush: func(func(T)) { report(nil) }})
	counted.OnError(report)
	return counted
}

// newSelect projects the bindings onto the selected variables, or onto
// all variables for "*". Skolem IRIs become blank nodes again.
func newSelect(source engine.Bindings, variables []string) iterator.Iterator[Row] {
	star := len(variables) == 1 && variables[0] == "*"
	t := iterator.NewTransform(source.Scheduler(), source, func(b rdf.Bindings, push func(Row), done func()) error {
		row := make(Row, len(variables))
		if star {
			for v, value := range b {
				if rdf.IsVariable(v) {
					row[v] = rdf.Deskolemize(value)
				}
			}
		} else {
			for _, v := range variables {
				if value, ok := b[v]; ok {
					row[v] = rdf.Deskolemize(value)
				}
			}
		}
		push(row)
		done()
		return nil
	}, iterator.TransformOptions[Row]{})
	return t
}

// newConstruct instantiates the template for every binding. Constant
// triples are emitted once, before all others. Blank nodes get fresh
// labels per binding, and triples with unbound variables are skipped.
func newConstruct(source engine.Bindings, template []rdf.Triple) iterator.Iterator[rdf.Triple] {
	var constants, patterns []rdf.Triple
	for _, t := range template {
		if t.HasVariables() || rdf.IsBlank(t.Subject) || rdf.IsBlank(t.Object) {
			patterns = append(patterns, t)
		} else {
			constants = append(constants, t)
		}
	}

	emitted := false
	emitConstants := func(push func(rdf.Triple)) {
		if !emitted {
			emitted = true
			for _, t := range constants {
				push(t)
			}
		}
	}
	blankID := 0
	return iterator.NewTransform(source.Scheduler(), source, func(b rdf.Bindings, push func(rdf.Triple), done func()) error {
		emitConstants(push)
		blanks := make(map[string]string)
		instantiate := func(term string) (string, bool) {
			switch {
			case rdf.IsVariable(term):
				value, ok := b[term]
				return rdf.Deskolemize(value), ok
			case rdf.IsBlank(term):
				label, ok := blanks[term]
				if !ok {
					label = "_:b" + strconv.Itoa(blankID)
					blankID++
					blanks[term] = label
				}
				return label, true
			}
			return term, true
		}
	patterns:
		for _, p := range patterns {
			terms := [3]string{p.Subject, p.Predicate, p.Object}
			for i, term := range terms {
				value, ok := instantiate(term)
				if !ok {
					continue patterns
				}
				terms[i] = value
			}
			push(rdf.NewTriple(terms[0], terms[1], terms[2]))
		}
		done()
		return nil
	}, iterator.TransformOptions[rdf.Triple]{Flush: emitConstants})
}

// describeTemplate describes every resource by all its triples
func describeTemplate(resources []string) []rdf.Triple {
	template := make([]rdf.Triple, len(resources))
	for i, r := range resources {
		n := strconv.Itoa(i)
		template[i] = rdf.NewTriple(r, "?__predicate"+n, "?__object"+n)
	}
	return template
}

// newAsk yields true once a binding exists and false if none does
func newAsk(source engine.Bindings) iterator.Iterator[bool] {
	answered := false
	return iterator.NewTransform(source.Scheduler(), iterator.NewLimit(source, 0, 1), func(_ rdf.Bindings, push func(bool), done func()) error {
		answered = true
		push(true)
		done()
		return nil
	}, iterator.TransformOptions[bool]{Flush: func(push func(bool)) {
		if !answered {
			push(false)
		}
	}})
}

// orderComparator compares bindings on one ORDER BY key. A value that
// cannot be evaluated sorts first.
func orderComparator(key OrderKey) (func(a, b rdf.Bindings) int, error) {
	eval, err := CompileExpression(key.Expression)
	if err != nil {
		return nil, err
	}
	value := func(b rdf.Bindings) string {
		v, err := eval(b)
		if err != nil {
			return ""
		}
		return v
	}
	return func(a, b rdf.Bindings) int {
		c := CompareOrder(value(a), value(b))
		if key.Descending {
			return -c
		}
		return c
	}, nil
}

// CompareOrder orders terms for ORDER BY: unbound, blank nodes, IRIs,
// then literals. Numbers compare by value, other literals by their
// lexical form.
func CompareOrder(a, b string) int {
	rank := func(t string) int {
		switch {
		case t == "":
			return 0
		case rdf.IsBlank(t):
			return 1
		case rdf.IsIRI(t):
			return 2
		}
		return 3
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	if rdf.IsLiteral(a) {
		if isNumeric(a) && isNumeric(b) {
			if c, err := compareTerms(a, b); err == nil && c != 0 {
				return c
			}
		}
		if c := strings.Compare(rdf.LiteralValue(a), rdf.LiteralValue(b)); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}
