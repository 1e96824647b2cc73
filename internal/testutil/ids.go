package testutil

import "sync"

// SequenceGenerator returns predetermined ids in order.
//
// Panics when the sequence is exhausted, so a test that creates more units
// than it planned for fails loudly.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceGenerator creates a generator that returns ids in order.
//
//	gen := NewSequenceGenerator("t1", "t2")
//	gen.Generate("any title") // "t1"
//	gen.Generate("any title") // "t2"
func NewSequenceGenerator(ids ...string) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

// Generate returns the next id. The title is ignored.
func (g *SequenceGenerator) Generate(string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("SequenceGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Calls returns how many ids have been handed out.
func (g *SequenceGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx
}
