package iterator

import "slices"

// Cloneable records every item read from its source so that independent
// clones can each replay the sequence from the start. The source is read
// at most once per item, whatever the number of clones.
type Cloneable[T any] struct {
	source  Iterator[T]
	history []T
	clones  []*clone[T]
	err     error

	released bool
}

// NewCloneable wraps source. The source must not be read directly after
// this call.
func NewCloneable[T any](source Iterator[T]) *Cloneable[T] {
	c := &Cloneable[T]{source: source}
	source.OnReadable(c.wake)
	source.OnEnd(c.wake)
	source.OnError(func(err error) {
		if c.err == nil {
			c.err = err
		}
		for _, cl := range slices.Clone(c.clones) {
			cl.emitError(err)
		}
	})
	return c
}

// Source returns the wrapped iterator.
func (c *Cloneable[T]) Source() Iterator[T] {
	return c.source
}

// Ended reports whether the source has been completely read.
func (c *Cloneable[T]) Ended() bool {
	return c.source.Ended()
}

// Close closes the source and every open clone.
func (c *Cloneable[T]) Close() {
	c.source.Close()
	for _, cl := range slices.Clone(c.clones) {
		cl.Close()
	}
}

// Release closes the source once no clone is open, right away if there
// are none. Clones that are open keep reading until they are closed.
func (c *Cloneable[T]) Release() {
	c.released = true
	if len(c.clones) == 0 {
		c.source.Close()
	}
}

// Clone returns a new iterator that replays the source from the start.
// Errors the source emitted earlier are replayed to the clone.
func (c *Cloneable[T]) Clone() Iterator[T] {
	cl := &clone[T]{parent: c}
	cl.base = newBase[T](c.source.Scheduler(), "ClonedIterator", DefaultBufferSize, cl.read)
	cl.props.SetParent(c.source.Properties())
	cl.describe = c.source.String
	cl.base.onClose = append(cl.base.onClose, func() {
		c.clones = slices.DeleteFunc(c.clones, func(x *clone[T]) bool { return x == cl })
		if c.released && len(c.clones) == 0 {
			c.source.Close()
		}
	})
	c.clones = append(c.clones, cl)
	if c.err != nil {
		err := c.err
		cl.sched.Defer(func() { cl.emitError(err) })
	}
	if c.source.Ended() && len(c.history) == 0 {
		cl.finish()
	}
	return cl
}

func (c *Cloneable[T]) wake() {
	for _, cl := range slices.Clone(c.clones) {
		cl.fillBufferAsync()
	}
}

type clone[T any] struct {
	*base[T]
	parent *Cloneable[T]
	pos    int
}

func (cl *clone[T]) read() error {
	c := cl.parent
	if cl.pos < len(c.history) {
		cl.push(c.history[cl.pos])
		cl.pos++
		return nil
	}
	if item, ok := c.source.Read(); ok {
		c.history = append(c.history, item)
		cl.pos++
		cl.push(item)
		c.wake()
		return nil
	}
	if c.source.Ended() {
		cl.finish()
	}
	return nil
}
