package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator hands out readable ids "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike engine.FixedGenerator it never runs out, which suits scenario runs
// whose id count is not known up front. Golden traces stay stable because
// the sequence is deterministic.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "id".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
//
// Implements engine.IDGenerator interface.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts the sequence.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
