package iterator

import "slices"

// UnionOptions configures a Union.
type UnionOptions struct {
	// SourceError, when set, receives source errors. A non-nil result is
	// emitted on the union.
	SourceError func(err error) error
}

// Union reads its sources round-robin and ends when all of them have.
type Union[T any] struct {
	*base[T]
	sources []Iterator[T]
	pos     int
}

// NewUnion creates a union over sources. All sources must share sched.
func NewUnion[T any](sched *Scheduler, sources []Iterator[T]) *Union[T] {
	return NewUnionWithOptions(sched, sources, UnionOptions{})
}

// NewUnionWithOptions creates a union whose source errors pass through
// opts.SourceError.
func NewUnionWithOptions[T any](sched *Scheduler, sources []Iterator[T], opts UnionOptions) *Union[T] {
	u := &Union[T]{sources: slices.Clone(sources)}
	u.base = newBase[T](sched, "UnionIterator", DefaultBufferSize, u.read)
	u.base.onClose = append(u.base.onClose, func() {
		for _, s := range u.sources {
			s.Close()
		}
		u.sources = nil
	})
	onError := u.emitError
	if opts.SourceError != nil {
		onError = func(err error) { u.emitError(opts.SourceError(err)) }
	}
	for _, s := range u.sources {
		s.OnReadable(u.fillBufferAsync)
		s.OnEnd(u.fillBufferAsync)
		s.OnError(onError)
	}
	if len(u.sources) == 0 {
		u.finish()
	}
	return u
}

// Sources returns the sources that have not ended yet.
func (u *Union[T]) Sources() []Iterator[T] {
	return slices.Clone(u.sources)
}

func (u *Union[T]) read() error {
	for attempts := len(u.sources); attempts > 0 && len(u.sources) > 0; attempts-- {
		if u.pos >= len(u.sources) {
			u.pos = 0
		}
		source := u.sources[u.pos]
		item, ok := source.Read()
		if source.Ended() {
			u.sources = slices.Delete(u.sources, u.pos, u.pos+1)
		} else {
			u.pos++
		}
		if ok {
			u.push(item)
			return nil
		}
	}
	if len(u.sources) == 0 {
		u.finish()
	}
	return nil
}
