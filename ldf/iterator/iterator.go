package iterator

import (
	"fmt"
	"math"
	"slices"
)

// DefaultBufferSize is the read-ahead bound used when none is given.
const DefaultBufferSize = 4

// Unbounded requests full materialisation of a source.
const Unbounded = math.MaxInt

// Iterator is a lazy asynchronous sequence of items.
//
// Read never blocks: it returns false when no item is available yet. A
// readable notification signals that Read may succeed; the end notification
// fires exactly once after the last item has been read. Registrations made
// after end are ignored.
type Iterator[T any] interface {
	Read() (T, bool)
	Ended() bool
	Close()
	OnReadable(fn func())
	OnEnd(fn func())
	OnError(fn func(error))
	Properties() *Properties
	Scheduler() *Scheduler
	String() string
}

// base implements buffering, read-ahead, notifications and properties.
// Concrete iterators embed it and supply a read hook that pushes zero or
// more items into the buffer.
type base[T any] struct {
	sched     *Scheduler
	name      string
	describe  func() string
	buffer    []T
	maxBuffer int
	readHook  func() error

	closing    bool // no further items will be pushed
	closed     bool
	endEmitted bool

	reading         bool
	filling         bool
	refill          bool
	fillPending     bool
	readablePending bool

	readable []func()
	end      []func()
	errs     []func(error)
	listened bool
	onListen []func()
	onClose  []func()

	props *Properties
}

func newBase[T any](sched *Scheduler, name string, bufferSize int, read func() error) *base[T] {
	if sched == nil {
		panic("iterator: nil scheduler")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &base[T]{
		sched:     sched,
		name:      name,
		maxBuffer: bufferSize,
		readHook:  read,
		props:     NewProperties(),
	}
}

// Read returns the next buffered item, pulling from the read hook when the
// buffer is empty.
func (b *base[T]) Read() (T, bool) {
	var zero T
	if len(b.buffer) == 0 && !b.closing {
		b.callRead()
	}
	if len(b.buffer) == 0 {
		if b.closing {
			b.fillBufferAsync()
		}
		return zero, false
	}
	item := b.buffer[0]
	b.buffer[0] = zero
	b.buffer = b.buffer[1:]
	b.fillBufferAsync()
	return item, true
}

// Ended reports whether no more items will ever be returned.
func (b *base[T]) Ended() bool {
	return b.closing && len(b.buffer) == 0
}

// Close discards buffered items and ends the iterator. It is idempotent.
func (b *base[T]) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.closing = true
	b.buffer = nil
	hooks := b.onClose
	b.onClose = nil
	for _, fn := range hooks {
		fn()
	}
	b.fillBufferAsync()
}

// OnReadable registers a listener for new data. The first registration
// starts read-ahead.
func (b *base[T]) OnReadable(fn func()) {
	if b.endEmitted {
		return
	}
	b.readable = append(b.readable, fn)
	if !b.listened {
		b.listened = true
		hooks := b.onListen
		b.onListen = nil
		for _, h := range hooks {
			h()
		}
	}
	if len(b.buffer) > 0 {
		b.signalReadable()
	}
	b.fillBufferAsync()
}

// OnEnd registers a listener that fires once when the iterator ends.
func (b *base[T]) OnEnd(fn func()) {
	if b.endEmitted {
		return
	}
	b.end = append(b.end, fn)
	if b.Ended() {
		b.fillBufferAsync()
	}
}

// OnError registers an error listener. Errors do not end the iterator.
func (b *base[T]) OnError(fn func(error)) {
	if b.endEmitted {
		return
	}
	b.errs = append(b.errs, fn)
}

// Properties returns the out-of-band property cells of the iterator.
func (b *base[T]) Properties() *Properties {
	return b.props
}

// Scheduler returns the scheduler driving the iterator.
func (b *base[T]) Scheduler() *Scheduler {
	return b.sched
}

func (b *base[T]) String() string {
	if b.describe != nil {
		return fmt.Sprintf("[%s %s]", b.name, b.describe())
	}
	return "[" + b.name + "]"
}

// push appends an item to the buffer. Pushes after end are dropped.
func (b *base[T]) push(item T) {
	if b.closing {
		return
	}
	b.buffer = append(b.buffer, item)
	b.signalReadable()
}

// finish marks that no further items will be pushed.
func (b *base[T]) finish() {
	if b.closing {
		return
	}
	b.closing = true
	b.fillBufferAsync()
}

func (b *base[T]) emitError(err error) {
	if err == nil {
		return
	}
	for _, fn := range slices.Clone(b.errs) {
		fn(err)
	}
}

func (b *base[T]) signalReadable() {
	if b.readablePending || b.endEmitted {
		return
	}
	b.readablePending = true
	b.sched.Defer(func() {
		b.readablePending = false
		for _, fn := range slices.Clone(b.readable) {
			if b.endEmitted {
				return
			}
			fn()
		}
	})
}

func (b *base[T]) callRead() {
	if b.reading {
		return
	}
	if b.readHook == nil {
		panic(fmt.Sprintf("iterator: %s does not implement a read hook", b.name))
	}
	b.reading = true
	err := b.readHook()
	b.reading = false
	if err != nil {
		b.emitError(err)
	}
}

func (b *base[T]) fillBuffer() {
	if b.filling {
		b.refill = true
		return
	}
	b.filling = true
	for {
		b.refill = false
		prev := -1
		for !b.closing && len(b.buffer) < b.maxBuffer && prev != len(b.buffer) {
			prev = len(b.buffer)
			b.callRead()
		}
		if !b.refill || b.closing {
			break
		}
	}
	b.filling = false
	if b.Ended() {
		b.emitEnd()
	}
}

func (b *base[T]) fillBufferAsync() {
	if b.fillPending || b.endEmitted {
		return
	}
	if len(b.buffer) >= b.maxBuffer && !b.Ended() {
		return
	}
	b.fillPending = true
	b.sched.Defer(func() {
		b.fillPending = false
		b.fillBuffer()
	})
}

func (b *base[T]) emitEnd() {
	if b.endEmitted {
		return
	}
	b.endEmitted = true
	listeners := b.end
	b.readable, b.end, b.errs, b.onListen = nil, nil, nil, nil
	for _, fn := range listeners {
		fn()
	}
}

// whenListened runs fn when the first readable listener registers, or
// immediately if one already has.
func (b *base[T]) whenListened(fn func()) {
	if b.listened {
		fn()
		return
	}
	b.onListen = append(b.onListen, fn)
}

// follow wires the common source subscriptions: read-ahead on demand, end
// and error propagation, and property inheritance.
func follow[S, T any](b *base[T], source Iterator[S]) {
	b.props.SetParent(source.Properties())
	source.OnEnd(b.fillBufferAsync)
	source.OnError(b.emitError)
	b.whenListened(func() { source.OnReadable(b.fillBufferAsync) })
	if source.Ended() {
		b.fillBufferAsync()
	}
}
