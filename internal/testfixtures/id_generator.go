package testfixtures

import (
	"fmt"
	"sync"

	"github.com/example/calendar-sync/internal/event"
)

// EventIDGenerator produces deterministic event identifiers for tests,
// shaped like the production <creator>_<timestamp>_<suffix> ids.
type EventIDGenerator struct {
	mu      sync.Mutex
	counter uint64
}

// NewEventIDGenerator constructs a generator starting at one.
func NewEventIDGenerator() *EventIDGenerator {
	return &EventIDGenerator{}
}

// Next returns the next identifier for the given creator.
func (g *EventIDGenerator) Next(creator string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s_%d_%04d", creator, ReferenceTime().UnixMilli(), g.counter)
}

// NextFunc exposes Next as an event.IDGenerator for dependency injection.
func (g *EventIDGenerator) NextFunc() event.IDGenerator {
	if g == nil {
		return func(creator string) string { return creator + "_0_0000" }
	}
	return g.Next
}

// SetCounter overrides the internal counter, enabling deterministic resets.
func (g *EventIDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}
