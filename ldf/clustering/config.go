// Package clustering implements an adaptive planner for basic graph
// patterns. Every triple pattern becomes a node that either downloads its
// whole fragment page by page or binds one of its variables to the values
// the other nodes have found so far. A controller lets the variables vote
// on which node to advance next, joins everything downloaded, and switches
// a bound node to downloading once binding turns out to cost more.
package clustering

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/engine"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// Config holds the tunable coefficients of the planner. Zero fields take
// the values of DefaultConfig.
type Config struct {
	// SwitchMargin is how much more than a full download a bound node
	// may cost before it switches to downloading.
	SwitchMargin float64
	// PageSize is the number of triples per fragment page.
	PageSize int
	// FullDownloadRatio decides at start whether a node is small enough,
	// relative to the nodes supplying its variable, to download it outright.
	FullDownloadRatio float64
	// StabilityMinResults is the number of probed values a bound node
	// needs before its estimates are trusted.
	StabilityMinResults int
	// StabilityMargin scales the deviation tolerated between successive
	// per-value averages.
	StabilityMargin float64
	// Store names the triple store of each controller: StoreMemory
	// (default) or StoreBadger.
	Store string
}

// Triple stores selectable with Config.Store.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// DefaultConfig are the coefficients used when none are configured.
var DefaultConfig = Config{
	SwitchMargin:        1.1,
	PageSize:            100,
	FullDownloadRatio:   100,
	StabilityMinResults: 4,
	StabilityMargin:     0.98,
}

func (c Config) withDefaults() Config {
	if c.SwitchMargin <= 0 {
		c.SwitchMargin = DefaultConfig.SwitchMargin
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultConfig.PageSize
	}
	if c.FullDownloadRatio <= 0 {
		c.FullDownloadRatio = DefaultConfig.FullDownloadRatio
	}
	if c.StabilityMinResults <= 0 {
		c.StabilityMinResults = DefaultConfig.StabilityMinResults
	}
	if c.StabilityMargin <= 0 {
		c.StabilityMargin = DefaultConfig.StabilityMargin
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	return c
}

// Validate reports settings no controller can run with.
func (c Config) Validate() error {
	switch c.Store {
	case "", StoreMemory, StoreBadger:
		return nil
	}
	return fmt.Errorf("clustering: unknown triple store %q (use %s or %s)", c.Store, StoreMemory, StoreBadger)
}

// Options configures a graph iterator.
type Options struct {
	Client      fragments.Client       // Source of fragments (required)
	Logger      *zap.Logger            // Planner decisions at debug level (default: no-op)
	Annotations *annotations.Collector // Vote, switch and join events (optional)
	Config      Config                 // Planner coefficients
	Optional    bool                   // Emit inflow bindings without results unchanged
	BufferSize  int                    // Open controllers per multi-transform (0 = iterator.DefaultBufferSize)

	// Store creates the triple store of each controller. It overrides
	// Config.Store.
	Store func() (TripleStore, error)
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) newStore() (TripleStore, error) {
	if o.Store != nil {
		return o.Store()
	}
	switch o.Config.Store {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreBadger:
		return NewBadgerStore()
	}
	return nil, o.Config.Validate()
}

// engineOptions returns the options for single patterns, which are evaluated by
// the plain triple pattern iterator.
func (o Options) engineOptions() engine.Options {
	return engine.Options{
		Client:      o.Client,
		Logger:      o.Logger,
		Annotations: o.Annotations,
		BufferSize:  o.BufferSize,
	}
}

func (o Options) multiTransform() iterator.MultiTransformOptions[rdf.Bindings, rdf.Bindings] {
	opts := iterator.MultiTransformOptions[rdf.Bindings, rdf.Bindings]{BufferSize: o.BufferSize}
	if o.Optional {
		opts.Optional = func(b rdf.Bindings) rdf.Bindings { return b }
	}
	return opts
}

// variables returns the variables and blank nodes of a pattern, which are
// both joined on.
func variables(p rdf.Triple) []string {
	var vars []string
	for _, term := range p.Terms() {
		if rdf.IsVariableOrBlank(term) && !slices.Contains(vars, term) {
			vars = append(vars, term)
		}
	}
	return vars
}
