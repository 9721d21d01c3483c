package iterator

import "context"

// ForEach drives the scheduler until it has passed every item of it to fn.
// It stops at the first error emitted by the iterator or returned by fn.
func ForEach[T any](ctx context.Context, it Iterator[T], fn func(T) error) error {
	var failure error
	finished := false
	it.OnError(func(err error) {
		if failure == nil {
			failure = err
		}
	})
	it.OnEnd(func() { finished = true })
	drain := func() {
		for failure == nil {
			item, ok := it.Read()
			if !ok {
				return
			}
			if err := fn(item); err != nil {
				failure = err
			}
		}
	}
	it.OnReadable(drain)
	err := it.Scheduler().Run(ctx, func() bool {
		return failure != nil || finished || it.Ended()
	})
	if failure != nil {
		it.Close()
		return failure
	}
	return err
}

// ToSlice collects all items of it.
func ToSlice[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var items []T
	err := ForEach(ctx, it, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}
