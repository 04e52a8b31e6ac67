package ledger

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// KeyGenerator produces unique opaque keys for ledger items.
type KeyGenerator interface {
	NewKey() string
}

// ULIDGenerator produces monotonic ULIDs.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULIDGenerator returns a generator seeded from crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewKey implements KeyGenerator.
func (g *ULIDGenerator) NewKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// SequenceGenerator yields prefix-1, prefix-2, ... and is meant for tests.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewKey implements KeyGenerator.
func (g *SequenceGenerator) NewKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "k"
	}
	return fmt.Sprintf("%s-%d", prefix, g.n)
}
