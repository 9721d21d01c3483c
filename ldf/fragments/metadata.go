// Package fragments retrieves Triple Pattern Fragments over HTTP and
// exposes them as iterators of triples with metadata and hypermedia
// controls attached as properties.
package fragments

import (
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Property keys set on fragments.
const (
	PropMetadata    = "metadata"
	PropControls    = "controls"
	PropStatusCode  = "statusCode"
	PropContentType = "contentType"
)

// Metadata describes a fragment as a whole.
type Metadata struct {
	// TotalTriples is the estimated number of matching triples.
	TotalTriples int64
	// Known is false when the server did not publish a count.
	Known bool
	// Failed is set when the fragment could not be loaded and is
	// therefore treated as empty.
	Failed bool
}

// EmptyMetadata is the metadata of a fragment known to have no matches.
var EmptyMetadata = Metadata{TotalTriples: 0, Known: true}

// FailedMetadata is the metadata of a fragment that could not be loaded.
var FailedMetadata = Metadata{TotalTriples: 0, Known: true, Failed: true}

// Fragment is a stream of the triples matching a pattern, spanning all
// pages of the fragment.
type Fragment = iterator.Iterator[rdf.Triple]

// Client retrieves fragments.
type Client interface {
	// FragmentByPattern returns the fragment of a triple pattern. Variables
	// and blank nodes are unbound positions.
	FragmentByPattern(pattern rdf.Triple) Fragment
	// FragmentBySubstring returns the fragment of triples whose literal
	// object contains s, for servers with free-text search.
	FragmentBySubstring(s string) Fragment
	// SupportsFreeText reports whether substring fragments can be
	// requested. It is false until the start fragment has loaded.
	SupportsFreeText() bool
	// AwaitFreeText calls fn once the start fragment has loaded, with
	// whether substring fragments can be requested.
	AwaitFreeText(fn func(bool))
	// Scheduler returns the scheduler fragments are driven by.
	Scheduler() *iterator.Scheduler
	// Failures returns the number of fragment pages that failed to load.
	Failures() int
	// Abort cancels all requests in flight.
	Abort()
}

// AwaitMetadata calls fn with the metadata of f once it is known.
func AwaitMetadata(f Fragment, fn func(Metadata)) {
	iterator.AwaitProperty(f.Properties(), PropMetadata, fn)
}

// MetadataOf returns the metadata of f if it has arrived.
func MetadataOf(f Fragment) (Metadata, bool) {
	return iterator.GetProperty[Metadata](f.Properties(), PropMetadata)
}

// ControlsOf returns the hypermedia controls of f if they have arrived.
func ControlsOf(f Fragment) (*Controls, bool) {
	return iterator.GetProperty[*Controls](f.Properties(), PropControls)
}
