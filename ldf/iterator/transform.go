package iterator

// TransformFunc transforms one source item, pushing zero or more results.
// It must call done exactly once when finished; further calls are ignored.
// A returned error is emitted and counts as done.
type TransformFunc[S, T any] func(item S, push func(T), done func()) error

type transformStatus int

const (
	transformWaiting transformStatus = iota
	transformBusy
)

// Transform maps the items of a source with at most one transformation in
// flight. Its source can be supplied after construction.
type Transform[S, T any] struct {
	*base[T]
	source    Iterator[S]
	status    transformStatus
	transform TransformFunc[S, T]
	flush     func(push func(T))
	flushed   bool
}

// TransformOptions configures a Transform.
type TransformOptions[T any] struct {
	BufferSize int
	// Flush runs once after the last source item has been transformed.
	Flush func(push func(T))
}

// NewTransform creates a transforming iterator. source may be nil and set
// later with SetSource.
func NewTransform[S, T any](sched *Scheduler, source Iterator[S], fn TransformFunc[S, T], opts TransformOptions[T]) *Transform[S, T] {
	t := &Transform[S, T]{transform: fn, flush: opts.Flush}
	t.base = newBase[T](sched, "TransformIterator", opts.BufferSize, t.read)
	t.base.onClose = append(t.base.onClose, func() {
		if t.source != nil {
			t.source.Close()
		}
	})
	if source != nil {
		t.SetSource(source)
	}
	return t
}

// NewPassthrough creates an iterator that forwards its source unchanged.
func NewPassthrough[T any](sched *Scheduler, source Iterator[T]) *Transform[T, T] {
	t := NewTransform(sched, source, func(item T, push func(T), done func()) error {
		push(item)
		done()
		return nil
	}, TransformOptions[T]{})
	t.name = "PassthroughIterator"
	return t
}

// SetSource attaches the source. It panics if a source is already set.
func (t *Transform[S, T]) SetSource(source Iterator[S]) {
	if t.source != nil {
		panic("iterator: transform source already set")
	}
	t.source = source
	if t.closed {
		source.Close()
		return
	}
	follow(t.base, source)
}

// Source returns the current source, or nil.
func (t *Transform[S, T]) Source() Iterator[S] {
	return t.source
}

func (t *Transform[S, T]) read() error {
	if t.status != transformWaiting || t.source == nil {
		return nil
	}
	item, ok := t.source.Read()
	if !ok {
		if t.source.Ended() {
			t.flushAndEnd()
		}
		return nil
	}
	t.status = transformBusy
	called := false
	done := func() {
		if called {
			return
		}
		called = true
		t.status = transformWaiting
		if t.source.Ended() {
			t.flushAndEnd()
			return
		}
		t.fillBufferAsync()
	}
	if err := t.transform(item, t.push, done); err != nil {
		done()
		return err
	}
	return nil
}

func (t *Transform[S, T]) flushAndEnd() {
	if t.flushed {
		return
	}
	t.flushed = true
	if t.flush != nil {
		t.flush(t.push)
	}
	t.finish()
}
