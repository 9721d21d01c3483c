package clustering

import (
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// NewCrossJoinIterator combines every binding of left with every binding
// of right. Both sides are read completely before the first combination
// is emitted; errors of either side are passed on.
func NewCrossJoinIterator(left, right iterator.Iterator[rdf.Bindings]) iterator.Iterator[rdf.Bindings] {
	out := iterator.NewBuffer[rdf.Bindings](left.Scheduler(), "CrossJoinIterator")
	out.OnClose(func() {
		left.Close()
		right.Close()
	})

	var (
		sides [2][]rdf.Bindings
		ended [2]bool
		i, j  int
	)
	next := func() {
		l, r := sides[0], sides[1]
		if len(l) == 0 || j >= len(r) {
			out.End()
			return
		}
		merged := l[i].Clone()
		for k, v := range r[j] {
			merged[k] = v
		}
		if i++; i == len(l) {
			i, j = 0, j+1
		}
		out.Push(merged)
	}

	for s, it := range [2]iterator.Iterator[rdf.Bindings]{left, right} {
		s, it := s, it
		drain := func() {
			for {
				b, ok := it.Read()
				if !ok {
					return
				}
				sides[s] = append(sides[s], b)
			}
		}
		it.OnReadable(drain)
		it.OnError(out.Fail)
		it.OnEnd(func() {
			drain()
			ended[s] = true
			if ended[0] && ended[1] {
				out.OnDemand(next)
				next()
			}
		})
	}
	return out
}
