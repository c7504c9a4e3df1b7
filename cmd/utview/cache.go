package main

import (
	"sync"
	"time"

	"github.com/libut/utview/internal/tracestore"
	"github.com/libut/utview/internal/viewport"
)

type (
	cachedTrace struct {
		collection *tracestore.Collection
		querier    *viewport.Querier
		lastAccess time.Time
	}

	// traceCache keeps reconstructed traces so repeated queries don't pay
	// for decoding and reconstruction again.
	traceCache struct {
		mu     sync.Mutex
		traces map[string]*cachedTrace
	}
)

func newTraceCache() *traceCache {
	return &traceCache{traces: make(map[string]*cachedTrace)}
}

func (c *traceCache) get(traceID string) (*cachedTrace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, exists := c.traces[traceID]
	if exists {
		t.lastAccess = time.Now()
	}
	return t, exists
}

func (c *traceCache) put(traceID string, collection *tracestore.Collection, indexThreshold int) *cachedTrace {
	t := &cachedTrace{
		collection: collection,
		querier:    viewport.NewQuerier(collection, indexThreshold),
		lastAccess: time.Now(),
	}
	c.mu.Lock()
	c.traces[traceID] = t
	c.mu.Unlock()
	return t
}

func (c *traceCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

func (c *traceCache) evictIdle(ttl time.Duration, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for id, t := range c.traces {
		if now.Sub(t.lastAccess) > ttl {
			delete(c.traces, id)
			n++
		}
	}
	return n
}
