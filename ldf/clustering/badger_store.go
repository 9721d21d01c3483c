package clustering

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// BadgerStore is a TripleStore backed by an in-memory BadgerDB. Keys are
// the node index followed by the position of the triple, both big endian,
// so a prefix scan returns a node's triples in arrival order.
type BadgerStore struct {
	db     *badger.DB
	counts map[int]int
}

// NewBadgerStore opens an in-memory store.
func NewBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	opts.MemTableSize = 8 << 20
	opts.BlockCacheSize = 8 << 20
	opts.DetectConflicts = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db, counts: make(map[int]int)}, nil
}

// Add implements TripleStore.
func (s *BadgerStore) Add(node int, triples []rdf.Triple) error {
	if len(triples) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	next := s.counts[node]
	for i, t := range triples {
		if err := wb.Set(tripleKey(node, next+i), encodeTriple(t)); err != nil {
			return fmt.Errorf("failed to write triple %d of node %d: %w", next+i, node, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush triples of node %d: %w", node, err)
	}
	s.counts[node] = next + len(triples)
	return nil
}

// Triples implements TripleStore.
func (s *BadgerStore) Triples(node int, from, to int) ([]rdf.Triple, error) {
	from, to, err := clampRange(from, to, s.counts[node])
	if err != nil || from == to {
		return nil, err
	}

	triples := make([]rdf.Triple, 0, to-from)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodePrefix(node)
		opts.PrefetchSize = to - from

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(tripleKey(node, from)); it.Valid(); it.Next() {
			item := it.Item()
			if keyPosition(item.Key()) >= to {
				break
			}
			err := item.Value(func(val []byte) error {
				t, err := decodeTriple(val)
				if err != nil {
					return err
				}
				triples = append(triples, t)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to decode triple of node %d: %w", node, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

// Count implements TripleStore.
func (s *BadgerStore) Count(node int) int {
	return s.counts[node]
}

// Reset implements TripleStore.
func (s *BadgerStore) Reset(node int) error {
	if s.counts[node] == 0 {
		return nil
	}
	if err := s.db.DropPrefix(nodePrefix(node)); err != nil {
		return fmt.Errorf("failed to drop triples of node %d: %w", node, err)
	}
	delete(s.counts, node)
	return nil
}

// Close implements TripleStore.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func nodePrefix(node int) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(node))
}

func tripleKey(node, pos int) []byte {
	return binary.BigEndian.AppendUint64(nodePrefix(node), uint64(pos))
}

func keyPosition(key []byte) int {
	return int(binary.BigEndian.Uint64(key[4:12]))
}

var errCorruptTriple = errors.New("corrupt triple encoding")

// encodeTriple writes the four terms, each prefixed with its length.
func encodeTriple(t rdf.Triple) []byte {
	var buf []byte
	for _, term := range [4]string{t.Subject, t.Predicate, t.Object, t.Graph} {
		buf = binary.AppendUvarint(buf, uint64(len(term)))
		buf = append(buf, term...)
	}
	return buf
}

func decodeTriple(buf []byte) (rdf.Triple, error) {
	var terms [4]string
	for i := range terms {
		n, size := binary.Uvarint(buf)
		if size <= 0 || uint64(len(buf)-size) < n {
			return rdf.Triple{}, errCorruptTriple
		}
		terms[i] = string(buf[size : size+int(n)])
		buf = buf[size+int(n):]
	}
	return rdf.Triple{Subject: terms[0], Predicate: terms[1], Object: terms[2], Graph: terms[3]}, nil
}
