// Package annotate provides a low-overhead event-collection system for
// observing a run: substep phase boundaries, resolver cycle detection,
// entity discovery/spawn, and external-fetch retries. Grounded verbatim on
// the teacher's datalog/annotations package (Event/Handler/Collector with a
// pre-allocated data-map pool), with the query-execution event vocabulary
// replaced by this engine's stepper/resolver/entity lifecycle.
package annotate

import "sync"
import "time"

// Event names, hierarchically namespaced after the teacher's
// "phase/begin" style constants.
const (
	RunBegin       = "run/begin"
	RunComplete    = "run/complete"
	TimestepBegin  = "timestep/begin"
	TimestepPublish = "timestep/publish"
	SubstepBegin   = "substep/begin"
	SubstepComplete = "substep/complete"
	DiscoverySpawned = "discovery/spawned"
	ResolveCycle   = "resolve/cycle"
	AssertionResult = "assertion/result"
	ExternalFetchRetry = "external/fetch.retry"
	ExternalFetchFailed = "external/fetch.failed"
)

// Event is a single annotation record.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes annotation events as they occur.
type Handler func(Event)

// Collector accumulates events during a run, dispatching each to its
// Handler as it is added. A nil Handler makes the Collector a no-op;
// otherwise the event list is guarded by a mutex, since events from
// multiple patch workers may arrive concurrently.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	handler Handler
	events  []Event
}

// NewCollector builds a Collector. Passing a nil handler disables
// recording (Add becomes a cheap no-op).
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 128),
	}
}

// Add records an event and dispatches it to the handler, if any.
func (c *Collector) Add(e Event) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	if c.handler != nil {
		c.handler(e)
	}
}

// AddTiming records an event with Start/End/Latency computed from start.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.enabled {
		return
	}
	end := time.Now()
	c.Add(Event{Name: name, Start: start, End: end, Latency: end.Sub(start), Data: data})
}

// Events returns a copy of every event recorded so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Enabled reports whether this collector actually records events.
func (c *Collector) Enabled() bool { return c.enabled }
