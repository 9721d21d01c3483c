package clustering

import (
	"fmt"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// TripleStore keeps the triples every node has downloaded, in the order
// they arrived. Nodes are identified by their index in the controller.
// Positions are stable until the node is reset, which is what lets the
// join cache refer to triples by index.
type TripleStore interface {
	// Add appends triples to those of node.
	Add(node int, triples []rdf.Triple) error
	// Triples returns the triples of node at positions [from, to).
	Triples(node int, from, to int) ([]rdf.Triple, error)
	// Count returns the number of triples of node.
	Count(node int) int
	// Reset forgets all triples of node.
	Reset(node int) error
	// Close releases the store.
	Close() error
}

// MemoryStore is a TripleStore backed by slices.
type MemoryStore struct {
	triples map[int][]rdf.Triple
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{triples: make(map[int][]rdf.Triple)}
}

// Add implements TripleStore.
func (s *MemoryStore) Add(node int, triples []rdf.Triple) error {
	s.triples[node] = append(s.triples[node], triples...)
	return nil
}

// Triples implements TripleStore.
func (s *MemoryStore) Triples(node int, from, to int) ([]rdf.Triple, error) {
	all := s.triples[node]
	from, to, err := clampRange(from, to, len(all))
	if err != nil {
		return nil, err
	}
	return all[from:to:to], nil
}

// Count implements TripleStore.
func (s *MemoryStore) Count(node int) int {
	return len(s.triples[node])
}

// Reset implements TripleStore.
func (s *MemoryStore) Reset(node int) error {
	delete(s.triples, node)
	return nil
}

// Close implements TripleStore.
func (s *MemoryStore) Close() error {
	s.triples = make(map[int][]rdf.Triple)
	return nil
}

func clampRange(from, to, n int) (int, int, error) {
	if from < 0 || from > to {
		return 0, 0, fmt.Errorf("invalid triple range [%d, %d)", from, to)
	}
	if to > n {
		to = n
	}
	if from > to {
		from = to
	}
	return from, to, nil
}
