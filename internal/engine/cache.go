package engine

import (
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/reginduce/internal/metrics"
	"github.com/ppiankov/reginduce/internal/model"
)

// entry is an immutable compile outcome; failures are cached too
type entry struct {
	compiled Compiled
	err      error
}

// Cache wraps an engine with a compiled-pattern cache keyed by the rendered pattern,
// which already carries any case-insensitive directive. Entries never expire and
// are inserted only if absent.
type Cache struct {
	engine  Engine
	entries *gocache.Cache
}

// NewCache wraps e. Wrapping a Cache returns it unchanged.
func NewCache(e Engine) *Cache {
	if c, ok := e.(*Cache); ok {
		return c
	}
	return &Cache{
		engine:  e,
		entries: gocache.New(gocache.NoExpiration, 0),
	}
}

// Kind returns the wrapped engine's kind
func (c *Cache) Kind() model.EngineKind {
	return c.engine.Kind()
}

// Compile returns the cached outcome for pattern, compiling on first use
func (c *Cache) Compile(pattern string) (Compiled, error) {
	if v, found := c.entries.Get(pattern); found {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		e := v.(*entry)
		return e.compiled, e.err
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	compiled, err := c.engine.Compile(pattern)
	fresh := &entry{compiled: compiled, err: err}

	// A concurrent caller may have won the race; keep its entry
	if addErr := c.entries.Add(pattern, fresh, gocache.NoExpiration); addErr != nil {
		if v, found := c.entries.Get(pattern); found {
			e := v.(*entry)
			return e.compiled, e.err
		}
	}
	return compiled, err
}

// Len returns the number of cached outcomes
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}
