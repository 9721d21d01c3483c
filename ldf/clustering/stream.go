package clustering

import (
	"math"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Stream is one way for a node to obtain its triples. Costs are expressed
// in fragment requests.
type Stream interface {
	// Read fetches the next step of triples and calls done with them on
	// the scheduler. done receives nothing once the stream has ended.
	Read(done func([]rdf.Triple))
	// Ended reports whether the stream will produce no more triples.
	Ended() bool
	// Cost estimates the requests needed for the remaining triples.
	Cost() float64
	// Count estimates the total number of triples of the stream.
	Count() float64
	// Remaining estimates the triples not read yet.
	Remaining() float64
	// TripleCount is the number of triples read so far.
	TripleCount() int
	// BindVar is the variable the stream binds, or "" for a download.
	BindVar() string
	// Close releases the fragments of the stream.
	Close()
}

// DownloadStream reads the fragment of a pattern page by page.
type DownloadStream struct {
	sched    *iterator.Scheduler
	client   fragments.Client
	pattern  rdf.Triple
	pageSize int
	logger   *zap.Logger

	fragment    fragments.Fragment
	count       float64
	tripleCount int
	cost        float64
	ended       bool

	page    []rdf.Triple
	pending func([]rdf.Triple)
}

func newDownloadStream(sched *iterator.Scheduler, client fragments.Client, pattern rdf.Triple, count int64, cfg Config, logger *zap.Logger) *DownloadStream {
	return &DownloadStream{
		sched:    sched,
		client:   client,
		pattern:  pattern,
		pageSize: cfg.PageSize,
		logger:   logger,
		count:    float64(count),
		cost:     float64(count) / float64(cfg.PageSize),
	}
}

// Read implements Stream.
func (s *DownloadStream) Read(done func([]rdf.Triple)) {
	if s.ended {
		s.sched.Defer(func() { done(nil) })
		return
	}
	if s.fragment == nil {
		s.open(s.client.FragmentByPattern(s.pattern))
	}
	s.pending = done
	s.cost = math.Max(0, s.Remaining()-float64(s.pageSize)) / float64(s.pageSize)
	s.sched.Defer(s.pump)
}

// open attaches the fragment the stream reads from.
func (s *DownloadStream) open(fragment fragments.Fragment) {
	s.fragment = fragment
	fragment.OnReadable(s.pump)
	fragment.OnEnd(s.pump)
	fragment.OnError(func(err error) {
		s.logger.Warn("fragment failed, continuing without it",
			zap.String("pattern", s.pattern.String()), zap.Error(err))
	})
}

// pump collects triples until a page is full or the fragment has ended.
func (s *DownloadStream) pump() {
	if s.pending == nil {
		return
	}
	for len(s.page) < s.pageSize {
		t, ok := s.fragment.Read()
		if !ok {
			break
		}
		if _, err := rdf.FindBindings(s.pattern, t); err == nil {
			s.page = append(s.page, t)
		}
	}
	if len(s.page) < s.pageSize && !s.fragment.Ended() {
		return
	}

	page, done := s.page, s.pending
	s.page, s.pending = nil, nil
	s.tripleCount += len(page)
	if s.fragment.Ended() {
		s.ended = true
		s.count = float64(s.tripleCount)
		s.cost = 0
	} else if float64(s.tripleCount) >= s.count {
		// The server underestimated.
		s.count = float64(s.tripleCount + 1)
	}
	done(page)
}

// Ended implements Stream.
func (s *DownloadStream) Ended() bool { return s.ended }

// Cost implements Stream.
func (s *DownloadStream) Cost() float64 { return s.cost }

// Count implements Stream.
func (s *DownloadStream) Count() float64 { return s.count }

// Remaining implements Stream.
func (s *DownloadStream) Remaining() float64 {
	return math.Max(0, s.count-float64(s.tripleCount))
}

// TripleCount implements Stream.
func (s *DownloadStream) TripleCount() int { return s.tripleCount }

// BindVar implements Stream.
func (s *DownloadStream) BindVar() string { return "" }

// Close implements Stream.
func (s *DownloadStream) Close() {
	if s.fragment != nil {
		s.fragment.Close()
	}
	s.pending = nil
}

type bindResult struct {
	value string
	count int64
}

// BindingStream binds one variable of a pattern to the values fed to it
// and downloads the fragment of every bound pattern. Its estimates are
// extrapolated from the counts of the values probed so far and are only
// trusted once they are stable.
type BindingStream struct {
	sched   *iterator.Scheduler
	client  fragments.Client
	pattern rdf.Triple
	bindVar string
	cfg     Config
	logger  *zap.Logger

	pending []string
	seen    map[string]bool
	streams []*DownloadStream
	results []bindResult

	gotAllData  bool
	ended       bool
	tripleCount int
	cost        float64
	count       float64
	remaining   float64
}

func newBindingStream(sched *iterator.Scheduler, client fragments.Client, pattern rdf.Triple, bindVar string, cfg Config, logger *zap.Logger) *BindingStream {
	return &BindingStream{
		sched:     sched,
		client:    client,
		pattern:   pattern,
		bindVar:   bindVar,
		cfg:       cfg,
		logger:    logger,
		seen:      make(map[string]bool),
		cost:      math.Inf(1),
		count:     math.Inf(1),
		remaining: math.Inf(1),
	}
}

// Feed queues the values not fed before.
func (s *BindingStream) Feed(values []string) {
	for _, v := range values {
		if !s.seen[v] {
			s.seen[v] = true
			s.pending = append(s.pending, v)
		}
	}
}

// Hungry reports whether the stream can only continue after new values
// are fed.
func (s *BindingStream) Hungry() bool {
	return len(s.streams) == 0 && len(s.pending) == 0 && !s.ended
}

// resultsPerBinding is the average count of the probed values.
func resultsPerBinding(results []bindResult, gotAllData bool) float64 {
	if len(results) == 0 {
		if gotAllData {
			return 0
		}
		return math.Inf(1)
	}
	var sum float64
	for _, r := range results {
		sum += math.Max(1, float64(r.count))
	}
	return sum / float64(len(results))
}

// Stable reports whether the per-value average has settled: the latest
// probe moved it by less than a margin that narrows with every value.
func (s *BindingStream) Stable() bool {
	if s.gotAllData && len(s.pending) == 0 {
		return true
	}
	n := len(s.results)
	if n < s.cfg.StabilityMinResults {
		return false
	}
	prev := resultsPerBinding(s.results[:n-1], false)
	avg := resultsPerBinding(s.results, false)
	margin := s.cfg.StabilityMargin / math.Sqrt(float64(n)) * prev
	return math.Abs(prev-avg) < margin
}

// addBinding probes the fragment of the next pending value. Values whose
// fragment is empty or failed are recorded but not downloaded.
func (s *BindingStream) addBinding(done func()) {
	value := s.pending[0]
	s.pending = s.pending[1:]
	bound := rdf.Bindings{s.bindVar: value}.Apply(s.pattern)
	fragment := s.client.FragmentByPattern(bound)
	fragments.AwaitMetadata(fragment, func(m fragments.Metadata) {
		count := m.TotalTriples
		switch {
		case m.Failed:
			count = 0
		case !m.Known:
			count = int64(s.cfg.PageSize)
		}
		s.results = append(s.results, bindResult{value: value, count: count})
		if count == 0 {
			fragment.Close()
		} else {
			stream := newDownloadStream(s.sched, s.client, bound, count, s.cfg, s.logger)
			stream.open(fragment)
			s.streams = append(s.streams, stream)
		}
		s.sched.Defer(done)
	})
}

// Stabilize probes pending values until the estimates are stable or no
// values are left.
func (s *BindingStream) Stabilize(done func()) {
	if s.Stable() || len(s.pending) == 0 {
		done()
		return
	}
	s.addBinding(func() { s.Stabilize(done) })
}

// Read implements Stream. A step probes at least one new value when there
// is one, then reads a page of the oldest open value.
func (s *BindingStream) Read(done func([]rdf.Triple)) {
	s.read(done, false)
}

func (s *BindingStream) read(done func([]rdf.Triple), probed bool) {
	if s.ended || (len(s.pending) == 0 && len(s.streams) == 0) {
		s.sched.Defer(func() { done(nil) })
		return
	}
	if (!probed || !s.Stable() || len(s.streams) == 0) && len(s.pending) > 0 {
		s.addBinding(func() { s.read(done, true) })
		return
	}
	if len(s.streams) == 0 {
		s.sched.Defer(func() { done(nil) })
		return
	}
	stream := s.streams[0]
	stream.Read(func(page []rdf.Triple) {
		if stream.Ended() {
			s.streams = s.streams[1:]
		}
		s.cost = math.Max(0, s.cost-1)
		s.tripleCount += len(page)
		if s.gotAllData && len(s.streams) == 0 && len(s.pending) == 0 {
			s.ended = true
		}
		done(page)
	})
}

// UpdateRemaining refreshes the estimates given the number of values
// still expected from the suppliers. complete means the suppliers have
// ended and every value has been fed.
func (s *BindingStream) UpdateRemaining(remaining float64, complete bool) {
	s.gotAllData = complete
	s.ended = complete && len(s.pending) == 0 && len(s.streams) == 0
	if complete {
		remaining = 0
	}

	if !s.Stable() {
		s.remaining, s.cost, s.count = math.Inf(1), math.Inf(1), math.Inf(1)
		return
	}

	perValue := resultsPerBinding(s.results, s.gotAllData)
	upcoming := remaining + float64(len(s.pending))
	s.remaining, s.cost, s.count = 0, 0, 0
	for _, stream := range s.streams {
		s.remaining += stream.Remaining()
		s.cost += math.Ceil(stream.Remaining() / float64(s.cfg.PageSize))
	}
	for _, r := range s.results {
		s.count += float64(r.count)
	}
	s.remaining += scaled(upcoming, perValue)
	s.cost += scaled(upcoming, math.Ceil(perValue/float64(s.cfg.PageSize)))
	s.count += scaled(upcoming, perValue)
}

// scaled multiplies without turning an empty factor into NaN.
func scaled(n, per float64) float64 {
	if n == 0 || per == 0 {
		return 0
	}
	return n * per
}

// Ended implements Stream.
func (s *BindingStream) Ended() bool { return s.ended }

// Cost implements Stream.
func (s *BindingStream) Cost() float64 { return s.cost }

// Count implements Stream.
func (s *BindingStream) Count() float64 { return s.count }

// Remaining implements Stream.
func (s *BindingStream) Remaining() float64 { return s.remaining }

// TripleCount implements Stream.
func (s *BindingStream) TripleCount() int { return s.tripleCount }

// BindVar implements Stream.
func (s *BindingStream) BindVar() string { return s.bindVar }

// Close implements Stream.
func (s *BindingStream) Close() {
	for _, stream := range s.streams {
		stream.Close()
	}
	s.streams = nil
	s.pending = nil
}
