package fragments

import (
	"errors"
	"slices"

	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// ErrNoSources is returned when a federated client is created without
// start fragments.
var ErrNoSources = errors.New("fragments: no start fragments given")

// FederatedClient merges the fragments of several interfaces. Fragments of
// the same pattern are combined into one stream whose count is the sum of
// the individual counts.
type FederatedClient struct {
	sched   *iterator.Scheduler
	clients []*emptyTracking
	// number of child errors tolerated per fragment
	threshold int
}

// emptyTracking remembers the patterns for which its client returned no
// matches, so that bound variants of them are never requested.
type emptyTracking struct {
	Client
	empty []rdf.Triple
}

func (e *emptyTracking) knownEmpty(pattern rdf.Triple) bool {
	return slices.ContainsFunc(e.empty, pattern.IsBoundPatternOf)
}

// New creates a client for the given start fragments: a plain
// FragmentsClient for one URL, a FederatedClient otherwise.
func New(sched *iterator.Scheduler, startURLs []string, opts ...Option) (Client, error) {
	switch len(startURLs) {
	case 0:
		return nil, ErrNoSources
	case 1:
		return NewClient(sched, startURLs[0], opts...)
	}
	return NewFederatedClient(sched, startURLs, opts...)
}

// NewFederatedClient creates a client over every start fragment. A
// combined fragment fails only when all of its parts fail.
func NewFederatedClient(sched *iterator.Scheduler, startURLs []string, opts ...Option) (*FederatedClient, error) {
	if len(startURLs) == 0 {
		return nil, ErrNoSources
	}
	fc := &FederatedClient{sched: sched, threshold: len(startURLs) - 1}
	for _, u := range startURLs {
		c, err := NewClient(sched, u, opts...)
		if err != nil {
			return nil, err
		}
		fc.clients = append(fc.clients, &emptyTracking{Client: c})
	}
	return fc, nil
}

// Scheduler implements Client.
func (fc *FederatedClient) Scheduler() *iterator.Scheduler {
	return fc.sched
}

// Failures implements Client.
func (fc *FederatedClient) Failures() int {
	n := 0
	for _, c := range fc.clients {
		n += c.Failures()
	}
	return n
}

// Abort implements Client.
func (fc *FederatedClient) Abort() {
	for _, c := range fc.clients {
		c.Abort()
	}
}

// SupportsFreeText implements Client. It holds when any of the interfaces
// supports free-text queries.
func (fc *FederatedClient) SupportsFreeText() bool {
	for _, c := range fc.clients {
		if c.SupportsFreeText() {
			return true
		}
	}
	return false
}

// AwaitFreeText implements Client. fn is called once every interface
// has loaded its start fragment.
func (fc *FederatedClient) AwaitFreeText(fn func(bool)) {
	pending, supported := len(fc.clients), false
	for _, c := range fc.clients {
		c.AwaitFreeText(func(ok bool) {
			supported = supported || ok
			if pending--; pending == 0 {
				fn(supported)
			}
		})
	}
}

// FragmentByPattern implements Client.
func (fc *FederatedClient) FragmentByPattern(pattern rdf.Triple) Fragment {
	var parts []Fragment
	for _, c := range fc.clients {
		if c.knownEmpty(pattern) {
			continue
		}
		c := c
		f := c.FragmentByPattern(pattern)
		AwaitMetadata(f, func(m Metadata) {
			if m.Known && !m.Failed && m.TotalTriples == 0 {
				c.empty = append(c.empty, pattern)
			}
		})
		parts = append(parts, f)
	}
	return fc.compound(parts)
}

// FragmentBySubstring implements Client.
func (fc *FederatedClient) FragmentBySubstring(s string) Fragment {
	var parts []Fragment
	for _, c := range fc.clients {
		if c.SupportsFreeText() {
			parts = append(parts, c.FragmentBySubstring(s))
		}
	}
	return fc.compound(parts)
}

// compound merges parts. Its metadata is set once every part has reported
// its own; a count is known if any part knew one, and the compound only
// failed if all parts did.
func (fc *FederatedClient) compound(parts []Fragment) Fragment {
	if len(parts) == 0 {
		empty := iterator.NewEmpty[rdf.Triple](fc.sched)
		empty.Properties().Set(PropMetadata, EmptyMetadata)
		return empty
	}

	remaining := fc.threshold
	union := iterator.NewUnionWithOptions(fc.sched, parts, iterator.UnionOptions{
		SourceError: func(err error) error {
			if remaining > 0 {
				remaining--
				return nil
			}
			return err
		},
	})

	combined := Metadata{Failed: true}
	pending := len(parts)
	for _, part := range parts {
		AwaitMetadata(part, func(m Metadata) {
			combined.TotalTriples += m.TotalTriples
			combined.Known = combined.Known || m.Known
			combined.Failed = combined.Failed && m.Failed
			if pending--; pending == 0 {
				union.Properties().Set(PropMetadata, combined)
			}
		})
	}
	return union
}
