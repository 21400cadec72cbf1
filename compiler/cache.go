package compiler

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/rcrowley/go-metrics"

	"github.com/chazu/logicproc/vm"
)

// DefaultCacheSize is the number of assembled sources a Cache keeps.
const DefaultCacheSize = 256

type cacheKey struct {
	src  string
	opts Options
}

type cacheEntry struct {
	prog  *vm.Program
	diags []Diagnostic
	err   error
}

// Cache memoizes Assemble. Many logic entities commonly share the same
// source; a hit returns the shared instruction slice with a private copy
// of the symbol table. Cache is safe for concurrent use.
type Cache struct {
	lru    *lru.Cache
	hits   metrics.Counter
	misses metrics.Counter
}

// NewCache returns a cache holding up to size programs. Hits and misses
// are counted in r when it is non-nil.
func NewCache(size int, r metrics.Registry) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	c := &Cache{lru: l}
	if r != nil {
		c.hits = metrics.GetOrRegisterCounter("logic.compile.cache.hits", r)
		c.misses = metrics.GetOrRegisterCounter("logic.compile.cache.misses", r)
	} else {
		c.hits = new(metrics.NilCounter)
		c.misses = new(metrics.NilCounter)
	}
	return c, nil
}

// Assemble behaves like the package-level Assemble.
func (c *Cache) Assemble(src string, opts Options) (*vm.Program, []Diagnostic, error) {
	key := cacheKey{src: src, opts: opts}
	if v, ok := c.lru.Get(key); ok {
		c.hits.Inc(1)
		e := v.(*cacheEntry)
		return cloneProgram(e.prog), e.diags, e.err
	}
	c.misses.Inc(1)
	prog, diags, err := Assemble(src, opts)
	c.lru.Add(key, &cacheEntry{prog: prog, diags: diags, err: err})
	return cloneProgram(prog), diags, err
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

func cloneProgram(p *vm.Program) *vm.Program {
	if p == nil {
		return nil
	}
	return p.Clone()
}
