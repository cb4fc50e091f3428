// Package cache memoizes compiled plans by the sha256 of their source text.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

type call struct {
	done chan struct{}
	plan *scenario.Plan
	err  error
}

// InMemory holds up to max plans. Once full, new plans are still computed and
// returned but not stored. Concurrent requests for the same source share one
// computation.
type InMemory struct {
	mu       sync.Mutex
	max      int
	items    map[string]*scenario.Plan
	inflight map[string]*call
}

func NewInMemory(max int) *InMemory {
	return &InMemory{
		max:      max,
		items:    make(map[string]*scenario.Plan, max),
		inflight: map[string]*call{},
	}
}

// GetOrCompute returns the cached plan for src, computing it with fn on a
// miss. Errors and panics from fn are returned to every waiter and never
// cached.
func (c *InMemory) GetOrCompute(src string, fn func() (*scenario.Plan, error)) (*scenario.Plan, error) {
	key := hash(src)

	c.mu.Lock()
	if p, ok := c.items[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.plan, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				cl.err = fmt.Errorf("compile panicked: %v", r)
			}
		}()
		cl.plan, cl.err = fn()
	}()

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil && len(c.items) < c.max {
		c.items[key] = cl.plan
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.plan, cl.err
}

func (c *InMemory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
