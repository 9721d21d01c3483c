package iterator

import "fmt"

// Filter emits the source items that satisfy a predicate.
type Filter[T any] struct {
	*base[T]
	source Iterator[T]
	keep   func(item T) (bool, error)
}

// NewFilter creates a filtering iterator. A predicate error is emitted as
// an iterator error and the item is dropped.
func NewFilter[T any](source Iterator[T], keep func(item T) (bool, error)) *Filter[T] {
	f := &Filter[T]{source: source, keep: keep}
	f.base = newBase[T](source.Scheduler(), "FilterIterator", DefaultBufferSize, f.read)
	f.base.onClose = append(f.base.onClose, source.Close)
	follow(f.base, source)
	return f
}

func (f *Filter[T]) read() error {
	for {
		item, ok := f.source.Read()
		if !ok {
			if f.source.Ended() {
				f.finish()
			}
			return nil
		}
		keep, err := f.keep(item)
		if err != nil {
			return err
		}
		if keep {
			f.push(item)
			return nil
		}
	}
}

// NewDistinct drops items whose key was already seen. With a positive
// window only the last window distinct keys are remembered.
func NewDistinct[T any](source Iterator[T], key func(item T) string, window int) *Filter[T] {
	seen := make(map[string]struct{})
	var order []string
	f := NewFilter(source, func(item T) (bool, error) {
		k := key(item)
		if _, dup := seen[k]; dup {
			return false, nil
		}
		seen[k] = struct{}{}
		if window > 0 {
			order = append(order, k)
			if len(order) > window {
				delete(seen, order[0])
				order = order[1:]
			}
		}
		return true, nil
	})
	f.name = "DistinctIterator"
	return f
}

// Limit skips the first offset items and emits at most limit items.
type Limit[T any] struct {
	*base[T]
	source Iterator[T]
	skip   int
	limit  int
}

// NewLimit creates a slicing iterator. A negative limit means no limit. A
// zero limit ends immediately without touching the source.
func NewLimit[T any](source Iterator[T], offset, limit int) *Limit[T] {
	l := &Limit[T]{source: source, skip: max(offset, 0), limit: limit}
	l.base = newBase[T](source.Scheduler(), "LimitIterator", DefaultBufferSize, l.read)
	l.describe = func() string { return fmt.Sprintf("(offset %d, limit %d)", offset, limit) }
	if limit == 0 {
		l.finish()
		return l
	}
	l.base.onClose = append(l.base.onClose, source.Close)
	follow(l.base, source)
	return l
}

func (l *Limit[T]) read() error {
	for l.limit != 0 {
		item, ok := l.source.Read()
		if !ok {
			if l.source.Ended() {
				l.finish()
			}
			return nil
		}
		if l.skip > 0 {
			l.skip--
			continue
		}
		l.push(item)
		if l.limit > 0 {
			l.limit--
		}
		if l.limit == 0 {
			l.finish()
			l.source.Close()
		}
		return nil
	}
	l.finish()
	return nil
}
