package iterator

import "sort"

// WindowFunc transforms a window of items. It pushes zero or more outputs
// and returns the items to keep for the next window. When final is true
// the source has ended and retained items are discarded.
type WindowFunc[T any] func(window []T, final bool, push func(T)) []T

// WindowTransform accumulates up to size source items before invoking its
// window function. An Unbounded size collects the whole source.
type WindowTransform[T any] struct {
	*base[T]
	source Iterator[T]
	size   int
	window []T
	fn     WindowFunc[T]
}

// NewWindowTransform creates a windowed transform over source.
func NewWindowTransform[T any](source Iterator[T], size int, fn WindowFunc[T]) *WindowTransform[T] {
	if size <= 0 {
		size = Unbounded
	}
	w := &WindowTransform[T]{source: source, size: size, fn: fn}
	w.base = newBase[T](source.Scheduler(), "WindowTransformIterator", DefaultBufferSize, w.read)
	w.base.onClose = append(w.base.onClose, source.Close)
	follow(w.base, source)
	return w
}

func (w *WindowTransform[T]) read() error {
	for len(w.window) < w.size {
		item, ok := w.source.Read()
		if !ok {
			break
		}
		w.window = append(w.window, item)
	}
	if w.source.Ended() {
		if len(w.window) > 0 {
			w.fn(w.window, true, w.push)
		}
		w.window = nil
		w.finish()
		return nil
	}
	if len(w.window) >= w.size {
		w.window = w.fn(w.window, false, w.push)
	}
	return nil
}

// NewSort emits the source in ascending order of compare. With a bounded
// window only the window is kept sorted: once it is full the smallest
// item is emitted.
func NewSort[T any](source Iterator[T], compare func(a, b T) int, window int) *WindowTransform[T] {
	w := NewWindowTransform(source, window, func(items []T, final bool, push func(T)) []T {
		sort.SliceStable(items, func(i, j int) bool { return compare(items[i], items[j]) < 0 })
		if final {
			for _, item := range items {
				push(item)
			}
			return nil
		}
		push(items[0])
		return items[1:]
	})
	w.name = "SortIterator"
	return w
}
