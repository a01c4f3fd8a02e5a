package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out predictable notification ids ("evt-1", "evt-2", ...)
// so tests can assert on stored events.
type IDGenerator struct {
	prefix string
	issued atomic.Uint64
}

// NewIDGenerator returns a generator for prefix, "evt" when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "evt"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.issued.Add(1))
}

// NextFunc returns Next for injection into notify.WithIDGenerator.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}
