package iterator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiTransform(t *testing.T) {
	ctx := context.Background()

	t.Run("PreservesSourceOrder", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		it := NewMultiTransform(NewSlice(sched, ints(6)), func(v int) (Iterator[int], error) {
			return NewSlice(sched, []int{v * 10, v*10 + 1}), nil
		}, MultiTransformOptions[int, int]{})
		items, err := ToSlice(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, []int{10, 11, 20, 21, 30, 31, 40, 41, 50, 51, 60, 61}, items)
	})

	t.Run("BoundedOpenTransformers", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		created := 0
		var m *MultiTransform[int, int]
		m = NewMultiTransform(NewSlice(sched, ints(20)), func(v int) (Iterator[int], error) {
			created++
			assert.LessOrEqual(t, len(m.queue), DefaultBufferSize)
			return NewSingle(sched, v), nil
		}, MultiTransformOptions[int, int]{})
		items, err := ToSlice(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, ints(20), items)
		assert.Equal(t, 20, created)
	})

	t.Run("Optional", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		it := NewMultiTransform(NewSlice(sched, ints(4)), func(v int) (Iterator[int], error) {
			if v%2 == 0 {
				return NewEmpty[int](sched), nil
			}
			return NewSingle(sched, v*100), nil
		}, MultiTransformOptions[int, int]{Optional: func(v int) int { return -v }})
		items, err := ToSlice(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, []int{100, -2, 300, -4}, items)
	})

	t.Run("SwallowedTransformerErrors", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		var swallowed []int
		it := NewMultiTransform(NewSlice(sched, ints(2)), func(v int) (Iterator[int], error) {
			buf := NewBuffer[int](sched, "Failing")
			sched.Defer(func() {
				buf.Fail(assert.AnError)
				buf.Push(v)
				buf.End()
			})
			return buf, nil
		}, MultiTransformOptions[int, int]{
			TransformerError: func(v int, err error) error {
				swallowed = append(swallowed, v)
				return nil
			},
		})
		items, err := ToSlice(ctx, it)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, items)
		assert.Equal(t, []int{1, 2}, swallowed)
	})
}
