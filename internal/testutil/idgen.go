package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/dbarchive/internal/schema"
)

// SequenceGenerator generates predictable public IDs of the form
// "<Class>/test-<n>".
//
// Unlike schema.UUIDGenerator, SequenceGenerator can be reset for test reuse,
// so the same tree imported twice receives identical public IDs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceGenerator creates a generator whose first ID ends in "test-1".
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Generate returns the next public ID for an instance of t.
//
// Implements schema.PublicIDGenerator.
func (g *SequenceGenerator) Generate(t *schema.Type) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s/test-%d", t.Name(), g.seq)
}

// Reset restarts the sequence.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedGenerator returns the same public ID every time. Importing a tree with
// more than one public object through it provokes duplicate public IDs.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a generator returning id. If id is empty,
// Generate returns "test-fixed".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "test-fixed"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed public ID.
func (g *FixedGenerator) Generate(*schema.Type) string {
	return g.id
}
