package iterator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		offset   int
		limit    int
		expected []int
	}{
		{"OffsetAndLimit", 2, 3, []int{3, 4, 5}},
		{"NoLimit", 4, -1, []int{5, 6}},
		{"OffsetBeyondSource", 10, 3, nil},
		{"LimitBeyondSource", 0, 10, []int{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := NewScheduler()
			defer sched.Close()
			items, err := ToSlice(ctx, NewLimit[int](NewSlice(sched, ints(6)), tt.offset, tt.limit))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, items)
		})
	}

	t.Run("ZeroLimitNeverReads", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		reads := 0
		source := NewGenerator(sched, func() (int, bool, error) {
			reads++
			return reads, true, nil
		})
		items, err := ToSlice(ctx, NewLimit[int](source, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, items)
		require.NoError(t, sched.Drain(ctx))
		assert.Equal(t, 0, reads)
	})

	t.Run("ClosesSourceAtLimit", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		reads := 0
		source := NewGenerator(sched, func() (int, bool, error) {
			reads++
			return reads, true, nil
		})
		items, err := ToSlice(ctx, NewLimit[int](source, 1, 2))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, items)
		assert.True(t, source.Ended())
	})
}

func TestDistinct(t *testing.T) {
	ctx := context.Background()
	key := func(v int) string { return string(rune('a' + v)) }

	t.Run("Full", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		items, err := ToSlice(ctx, NewDistinct[int](NewSlice(sched, []int{1, 2, 1, 3, 2, 1}), key, 0))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, items)
	})

	t.Run("Window", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		items, err := ToSlice(ctx, NewDistinct[int](NewSlice(sched, []int{1, 2, 1, 3, 4, 1}), key, 2))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 1}, items)
	})
}

func TestSort(t *testing.T) {
	ctx := context.Background()
	cmp := func(a, b int) int { return a - b }
	input := []int{5, 3, 9, 1, 7, 2}

	t.Run("Full", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		items, err := ToSlice(ctx, NewSort[int](NewSlice(sched, input), cmp, Unbounded))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 5, 7, 9}, items)
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		sched := NewScheduler()
		defer sched.Close()
		items, err := ToSlice(ctx, NewSort[int](NewSlice(sched, input), cmp, 3))
		require.NoError(t, err)
		assert.Equal(t, []int{3, 1, 5, 2, 7, 9}, items)
	})
}
