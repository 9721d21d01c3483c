package iterator

import "fmt"

// Generator is an iterator whose items come from a pull function.
type Generator[T any] struct {
	*base[T]
	next func() (T, bool, error)
}

// NewGenerator creates an iterator that calls next whenever its buffer
// needs an item. next reports false once the sequence is exhausted.
func NewGenerator[T any](sched *Scheduler, next func() (T, bool, error)) *Generator[T] {
	g := &Generator[T]{next: next}
	g.base = newBase[T](sched, "Generator", DefaultBufferSize, g.read)
	return g
}

func (g *Generator[T]) read() error {
	item, ok, err := g.next()
	if err != nil {
		return err
	}
	if !ok {
		g.finish()
		return nil
	}
	g.push(item)
	return nil
}

// NewEmpty creates an iterator that ends without items.
func NewEmpty[T any](sched *Scheduler) Iterator[T] {
	b := newBase[T](sched, "EmptyIterator", DefaultBufferSize, func() error { return nil })
	b.finish()
	return b
}

// NewSingle creates an iterator over one item.
func NewSingle[T any](sched *Scheduler, item T) Iterator[T] {
	it := NewSlice(sched, []T{item})
	it.name = "SingleIterator"
	return it
}

// NewSlice creates an iterator over the items of a slice.
func NewSlice[T any](sched *Scheduler, items []T) *Generator[T] {
	pos := 0
	g := NewGenerator(sched, func() (T, bool, error) {
		var zero T
		if pos >= len(items) {
			return zero, false, nil
		}
		pos++
		return items[pos-1], true, nil
	})
	g.name = "ArrayIterator"
	g.describe = func() string { return fmt.Sprintf("(%d items)", len(items)) }
	return g
}

// Buffer is a push-driven iterator: a producer appends items and ends it
// explicitly. It is used for data that arrives from background work.
type Buffer[T any] struct {
	*base[T]
	demand func()
}

// NewBuffer creates a push-driven iterator. The size only bounds read-ahead
// of downstream consumers; pushes are never refused before End.
func NewBuffer[T any](sched *Scheduler, name string) *Buffer[T] {
	b := &Buffer[T]{}
	b.base = newBase[T](sched, name, DefaultBufferSize, func() error {
		if b.demand != nil {
			b.demand()
		}
		return nil
	})
	return b
}

// OnDemand registers fn to be called whenever a consumer wants more items
// than are buffered. fn must not block; it typically starts background work
// whose results are pushed later.
func (b *Buffer[T]) OnDemand(fn func()) {
	b.demand = fn
}

// Push appends an item. It returns false if the buffer has ended.
func (b *Buffer[T]) Push(item T) bool {
	if b.closing {
		return false
	}
	b.push(item)
	return true
}

// End marks that no more items will be pushed.
func (b *Buffer[T]) End() {
	b.finish()
}

// Fail emits err to the error listeners without ending the buffer.
func (b *Buffer[T]) Fail(err error) {
	b.emitError(err)
}

// Closing reports whether End or Close has been called.
func (b *Buffer[T]) Closing() bool {
	return b.closing
}

// OnClose registers fn to run when the buffer is closed by a consumer.
func (b *Buffer[T]) OnClose(fn func()) {
	if b.closed {
		fn()
		return
	}
	b.onClose = append(b.onClose, fn)
}

// SetDescription sets the detail shown by String.
func (b *Buffer[T]) SetDescription(desc string) {
	b.describe = func() string { return desc }
}
