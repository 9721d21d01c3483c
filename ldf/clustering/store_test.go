package clustering

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

func numbered(n int) []rdf.Triple {
	out := make([]rdf.Triple, n)
	for i := range out {
		out[i] = rdf.NewTriple(fmt.Sprintf("http://example.org/s%d", i), "http://example.org/p", rdf.NewLiteral(fmt.Sprint(i)))
	}
	return out
}

func TestTripleStores(t *testing.T) {
	stores := []struct {
		name string
		open func(t *testing.T) TripleStore
	}{
		{"Memory", func(t *testing.T) TripleStore { return NewMemoryStore() }},
		{"Badger", func(t *testing.T) TripleStore {
			s, err := NewBadgerStore()
			require.NoError(t, err)
			return s
		}},
	}

	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			t.Run("AddAndRange", func(t *testing.T) {
				s := tc.open(t)
				defer s.Close()
				triples := numbered(5)

				require.NoError(t, s.Add(0, triples[:3]))
				require.NoError(t, s.Add(1, triples[4:]))
				require.NoError(t, s.Add(0, triples[3:4]))
				require.NoError(t, s.Add(0, nil))

				assert.Equal(t, 4, s.Count(0))
				assert.Equal(t, 1, s.Count(1))
				assert.Equal(t, 0, s.Count(2))

				got, err := s.Triples(0, 1, 3)
				require.NoError(t, err)
				assert.Equal(t, triples[1:3], got)

				got, err = s.Triples(0, 2, 10)
				require.NoError(t, err)
				assert.Equal(t, triples[2:4], got, "the end is clamped")

				got, err = s.Triples(1, 0, 1)
				require.NoError(t, err)
				assert.Equal(t, triples[4:], got)

				got, err = s.Triples(0, 2, 2)
				require.NoError(t, err)
				assert.Empty(t, got)

				got, err = s.Triples(2, 0, 5)
				require.NoError(t, err)
				assert.Empty(t, got)
			})

			t.Run("InvalidRange", func(t *testing.T) {
				s := tc.open(t)
				defer s.Close()
				require.NoError(t, s.Add(0, numbered(4)))

				_, err := s.Triples(0, 3, 1)
				assert.Error(t, err)
				_, err = s.Triples(0, -1, 2)
				assert.Error(t, err)
			})

			t.Run("Reset", func(t *testing.T) {
				s := tc.open(t)
				defer s.Close()
				triples := numbered(6)
				require.NoError(t, s.Add(0, triples[:3]))
				require.NoError(t, s.Add(1, triples[3:]))

				require.NoError(t, s.Reset(0))
				assert.Equal(t, 0, s.Count(0))
				got, err := s.Triples(0, 0, 3)
				require.NoError(t, err)
				assert.Empty(t, got)
				assert.Equal(t, 3, s.Count(1), "other nodes are untouched")

				require.NoError(t, s.Add(0, triples[5:]))
				got, err = s.Triples(0, 0, 1)
				require.NoError(t, err)
				assert.Equal(t, triples[5:], got, "positions restart after a reset")
			})

			t.Run("KeepsArrivalOrder", func(t *testing.T) {
				s := tc.open(t)
				defer s.Close()
				triples := numbered(300)
				for i := 0; i < len(triples); i += 70 {
					require.NoError(t, s.Add(7, triples[i:min(i+70, len(triples))]))
				}
				got, err := s.Triples(7, 0, 300)
				require.NoError(t, err)
				assert.Equal(t, triples, got)
			})
		})
	}
}

func TestTripleEncoding(t *testing.T) {
	triples := []rdf.Triple{
		rdf.NewTriple("http://a", "http://b", rdf.NewLangLiteral("café", "fr")),
		rdf.NewTriple("_:b0", "http://b", rdf.NewTypedLiteral("4", rdf.XSD+"integer")),
		rdf.NewTriple("http://a", "http://b", `""`),
	}
	for _, tr := range triples {
		got, err := decodeTriple(encodeTriple(tr))
		require.NoError(t, err)
		assert.Equal(t, tr, got)
	}

	_, err := decodeTriple([]byte{0xff})
	assert.ErrorIs(t, err, errCorruptTriple)
}
