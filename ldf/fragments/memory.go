package fragments

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// MemoryClient serves fragments from an in-memory dataset. It backs local
// files given as data sources and the fixtures of engine tests.
type MemoryClient struct {
	sched    *iterator.Scheduler
	triples  []rdf.Triple
	counts   map[string]int64
	requests map[string]int
	freeText bool
}

// NewMemoryClient creates a client over triples. Substring fragments are
// supported.
func NewMemoryClient(sched *iterator.Scheduler, triples []rdf.Triple) *MemoryClient {
	return &MemoryClient{
		sched:    sched,
		triples:  triples,
		counts:   make(map[string]int64),
		requests: make(map[string]int),
		freeText: true,
	}
}

// LoadFile parses an RDF file into a MemoryClient. The format follows the
// file extension: .nt, .nq, .ttl or .n3.
func LoadFile(sched *iterator.Scheduler, path string) (*MemoryClient, error) {
	var contentType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		contentType = "application/n-triples"
	case ".nq":
		contentType = "application/n-quads"
	case ".ttl", ".n3":
		contentType = "text/turtle"
	default:
		return nil, fmt.Errorf("fragments: unknown RDF file type %q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fragments: opening data file: %w", err)
	}
	defer f.Close()

	parser, _ := ParserFor(contentType)
	// no page URL: every triple is data
	page, err := parser.Parse(f, "")
	if err != nil {
		return nil, err
	}
	return NewMemoryClient(sched, append(page.Data, page.Metadata...)), nil
}

// SetCount overrides the count reported for the fragment of pattern.
func (m *MemoryClient) SetCount(pattern rdf.Triple, count int64) {
	m.counts[pattern.Key()] = count
}

// SetFreeText enables or disables substring fragments.
func (m *MemoryClient) SetFreeText(on bool) {
	m.freeText = on
}

// Requests returns how often the fragment of pattern was requested.
func (m *MemoryClient) Requests(pattern rdf.Triple) int {
	return m.requests[pattern.Key()]
}

// Scheduler implements Client.
func (m *MemoryClient) Scheduler() *iterator.Scheduler {
	return m.sched
}

// Failures implements Client. Memory fragments never fail.
func (m *MemoryClient) Failures() int {
	return 0
}

// Abort implements Client.
func (m *MemoryClient) Abort() {}

// SupportsFreeText implements Client.
func (m *MemoryClient) SupportsFreeText() bool {
	return m.freeText
}

// AwaitFreeText implements Client.
func (m *MemoryClient) AwaitFreeText(fn func(bool)) {
	fn(m.freeText)
}

// FragmentByPattern implements Client.
func (m *MemoryClient) FragmentByPattern(pattern rdf.Triple) Fragment {
	key := pattern.Key()
	m.requests[key]++
	norm := pattern.Normalize()
	var matches []rdf.Triple
	if !rdf.IsLiteral(norm.Subject) && !rdf.IsLiteral(norm.Predicate) {
		for _, t := range m.triples {
			if norm.Matches(t) {
				matches = append(matches, t)
			}
		}
	}
	return m.fragment(key, matches)
}

// FragmentBySubstring implements Client. Matching is case-insensitive on
// the values of literal objects.
func (m *MemoryClient) FragmentBySubstring(s string) Fragment {
	key := "substring " + s
	m.requests[key]++
	if !m.freeText {
		f := iterator.NewEmpty[rdf.Triple](m.sched)
		f.Properties().Set(PropMetadata, FailedMetadata)
		return f
	}
	needle := strings.ToLower(s)
	var matches []rdf.Triple
	for _, t := range m.triples {
		if rdf.IsLiteral(t.Object) && strings.Contains(strings.ToLower(rdf.LiteralValue(t.Object)), needle) {
			matches = append(matches, t)
		}
	}
	return m.fragment(key, matches)
}

func (m *MemoryClient) fragment(key string, matches []rdf.Triple) Fragment {
	f := iterator.NewSlice(m.sched, matches)
	count, ok := m.counts[key]
	if !ok {
		count = int64(len(matches))
	}
	f.Properties().Set(PropMetadata, Metadata{TotalTriples: count, Known: true})
	return f
}
