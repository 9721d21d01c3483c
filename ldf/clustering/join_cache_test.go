package clustering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

const (
	knows = "http://example.org/knows"
	label = "http://example.org/label"
	likes = "http://example.org/likes"
)

func person(i int) string { return fmt.Sprintf("http://example.org/person%d", i) }

func TestJoinCache(t *testing.T) {
	t.Run("Match", func(t *testing.T) {
		store := NewMemoryStore()
		a := testNode(0, rdf.NewTriple("?s", knows, "?o"))
		b := testNode(1, rdf.NewTriple("?o", label, "?n"))
		require.NoError(t, store.Add(a.id, []rdf.Triple{
			rdf.NewTriple(person(1), knows, person(2)),
			rdf.NewTriple(person(1), knows, person(3)),
		}))
		require.NoError(t, store.Add(b.id, []rdf.Triple{
			rdf.NewTriple(person(2), label, rdf.NewLiteral("two")),
		}))

		cache := NewJoinCache(store)
		got, err := cache.Match([]*Node{a, b})
		require.NoError(t, err)
		assert.Equal(t, []rdf.Bindings{{"?s": person(1), "?o": person(2), "?n": rdf.NewLiteral("two")}}, got)
		assert.Positive(t, cache.Len())

		require.NoError(t, store.Add(b.id, []rdf.Triple{rdf.NewTriple(person(3), label, rdf.NewLiteral("three"))}))
		require.NoError(t, store.Add(a.id, []rdf.Triple{rdf.NewTriple(person(4), knows, person(2))}))
		got, err = cache.Match([]*Node{a, b})
		require.NoError(t, err)
		assert.ElementsMatch(t, []rdf.Bindings{
			{"?s": person(1), "?o": person(2), "?n": rdf.NewLiteral("two")},
			{"?s": person(1), "?o": person(3), "?n": rdf.NewLiteral("three")},
			{"?s": person(4), "?o": person(2), "?n": rdf.NewLiteral("two")},
		}, got)
	})

	t.Run("Values", func(t *testing.T) {
		store := NewMemoryStore()
		a := testNode(0, rdf.NewTriple("?s", knows, "?o"))
		require.NoError(t, store.Add(a.id, []rdf.Triple{
			rdf.NewTriple(person(1), knows, person(3)),
			rdf.NewTriple(person(2), knows, person(3)),
			rdf.NewTriple(person(1), knows, person(2)),
		}))
		cache := NewJoinCache(store)
		values, err := cache.Values([]*Node{a}, "?o")
		require.NoError(t, err)
		assert.Equal(t, []string{person(3), person(2)}, values)

		values, err = cache.Values(nil, "?o")
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("Reset", func(t *testing.T) {
		store := NewMemoryStore()
		a := testNode(0, rdf.NewTriple("?s", knows, "?o"))
		b := testNode(1, rdf.NewTriple("?o", label, "?n"))
		c := testNode(2, rdf.NewTriple("?s", likes, "?x"))
		require.NoError(t, store.Add(a.id, []rdf.Triple{rdf.NewTriple(person(1), knows, person(2))}))
		require.NoError(t, store.Add(b.id, []rdf.Triple{rdf.NewTriple(person(2), label, rdf.NewLiteral("two"))}))
		require.NoError(t, store.Add(c.id, []rdf.Triple{rdf.NewTriple(person(1), likes, person(5))}))

		cache := NewJoinCache(store)
		_, err := cache.Match([]*Node{a, b})
		require.NoError(t, err)
		_, err = cache.Match([]*Node{c})
		require.NoError(t, err)
		before := cache.Len()

		require.NoError(t, store.Reset(b.id))
		cache.Reset(b.id)
		assert.Less(t, cache.Len(), before)

		got, err := cache.Match([]*Node{a, b, c})
		require.NoError(t, err)
		assert.Empty(t, got)

		require.NoError(t, store.Add(b.id, []rdf.Triple{rdf.NewTriple(person(2), label, rdf.NewLiteral("deux"))}))
		got, err = cache.Match([]*Node{a, b, c})
		require.NoError(t, err)
		assert.Equal(t, []rdf.Bindings{{
			"?s": person(1), "?o": person(2), "?n": rdf.NewLiteral("deux"), "?x": person(5),
		}}, got)
	})

	t.Run("IncrementalMatchesFresh", func(t *testing.T) {
		// Three nodes forming a chain; triples arrive in uneven batches
		// and every intermediate join must equal one computed from scratch.
		a := testNode(0, rdf.NewTriple("?a", knows, "?b"))
		b := testNode(1, rdf.NewTriple("?b", likes, "?c"))
		c := testNode(2, rdf.NewTriple("?c", label, "?l"))
		nodes := []*Node{a, b, c}

		var data [3][]rdf.Triple
		for i := 0; i < 30; i++ {
			data[0] = append(data[0], rdf.NewTriple(person(i%7), knows, person((i*3)%11)))
			data[1] = append(data[1], rdf.NewTriple(person(i%11), likes, person((i*5)%13)))
			data[2] = append(data[2], rdf.NewTriple(person(i%13), label, rdf.NewLiteral(fmt.Sprint(i))))
		}

		store := NewMemoryStore()
		cache := NewJoinCache(store)
		batches := [][3]int{{4, 0, 0}, {0, 5, 0}, {3, 3, 3}, {0, 0, 10}, {10, 2, 0}, {5, 10, 7}, {8, 10, 10}}
		var offsets [3]int
		for step, batch := range batches {
			for id, n := range batch {
				require.NoError(t, store.Add(id, data[id][offsets[id]:offsets[id]+n]))
				offsets[id] += n
			}
			got, err := cache.Match(nodes)
			require.NoError(t, err)
			want, err := NewJoinCache(store).Match(nodes)
			require.NoError(t, err)
			assert.ElementsMatch(t, keys(want), keys(got), "step %d", step)

			// Joins of subsets share the cache and must stay exact too.
			gotAB, err := cache.Match([]*Node{a, b})
			require.NoError(t, err)
			wantAB, err := NewJoinCache(store).Match([]*Node{a, b})
			require.NoError(t, err)
			assert.ElementsMatch(t, keys(wantAB), keys(gotAB), "step %d", step)
		}
		assert.Equal(t, [3]int{30, 30, 30}, offsets)
	})

	t.Run("CrossProductOfDisconnectedNodes", func(t *testing.T) {
		store := NewMemoryStore()
		a := testNode(0, rdf.NewTriple("?a", knows, person(0)))
		b := testNode(1, rdf.NewTriple("?b", likes, person(0)))
		require.NoError(t, store.Add(a.id, []rdf.Triple{
			rdf.NewTriple(person(1), knows, person(0)),
			rdf.NewTriple(person(2), knows, person(0)),
		}))
		require.NoError(t, store.Add(b.id, []rdf.Triple{rdf.NewTriple(person(3), likes, person(0))}))
		got, err := NewJoinCache(store).Match([]*Node{a, b})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
