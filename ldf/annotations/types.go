// Package annotations provides a low-overhead event system for tracing
// query execution: fragment requests, pattern evaluation and planner
// decisions.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Query lifecycle
	QueryInvoked  = "query/invoked"
	QueryComplete = "query/completed"

	// Fragment client
	FragmentRequested = "fragment/requested"
	FragmentPage      = "fragment/page"
	FragmentFailed    = "fragment/failed"

	// Pattern evaluation
	PatternFragment = "pattern/fragment"
	ReorderChoice   = "reorder/choice"

	// Clustering planner
	ClusterVote   = "cluster/vote"
	ClusterSwitch = "cluster/switch"
	ClusterJoin   = "cluster/join"
)

// Event represents a single annotation event during query execution.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Additional event-specific data
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events and forwards them to a handler. A nil
// collector or one without handler discards events.
type Collector struct {
	handler Handler
	events  []Event
	keep    bool
	mu      sync.Mutex
}

// NewCollector creates a collector that forwards events to handler.
func NewCollector(handler Handler) *Collector {
	return &Collector{handler: handler}
}

// NewRecorder creates a collector that also keeps every event for later
// inspection through Events.
func NewRecorder(handler Handler) *Collector {
	return &Collector{handler: handler, keep: true}
}

// Enabled reports whether events are consumed.
func (c *Collector) Enabled() bool {
	return c != nil && (c.handler != nil || c.keep)
}

// Add records a new event.
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}
	if c.keep {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event that started at start and ends now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// AddEvent records an instantaneous event.
func (c *Collector) AddEvent(name string, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	now := time.Now()
	c.Add(Event{Name: name, Start: now, End: now, Data: data})
}

// Events returns the recorded events.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Named returns the recorded events with the given name.
func (c *Collector) Named(name string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the recorded events.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
