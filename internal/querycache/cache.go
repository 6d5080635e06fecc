// Package querycache is the console's in-memory store of fetched record
// collections. Entries live until their kind is invalidated; there is no TTL.
package querycache

import (
	"context"
	"strconv"
	"sync"

	"github.com/phillip-england/cafesuite/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cached collection: a record kind and the filter value
// it was fetched with. The empty filter is the unfiltered collection.
type Key struct {
	Kind   domain.Kind
	Filter string
}

func (k Key) String() string {
	return string(k.Kind) + "\x00" + k.Filter
}

type FetchFunc func(ctx context.Context) (any, error)

type Cache struct {
	mu      sync.Mutex
	entries map[Key]any
	gens    map[domain.Kind]uint64
	group   singleflight.Group
}

func New() *Cache {
	return &Cache{
		entries: make(map[Key]any),
		gens:    make(map[domain.Kind]uint64),
	}
}

// Read returns the cached value for key, or runs fetch and stores its result.
// Concurrent reads of the same key share one fetch. A fetch that overlaps an
// invalidation of its kind still answers its callers but is not stored.
// Errors are never stored.
func (c *Cache) Read(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	if value, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return value, nil
	}
	gen := c.gens[key.Kind]
	c.mu.Unlock()

	// The generation is part of the flight key so a read issued after an
	// invalidation never joins a fetch that started before it.
	flight := key.String() + "\x00" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		c.mu.Lock()
		if value, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return value, nil
		}
		c.mu.Unlock()

		// Shared by every waiter, so one caller going away must not fail the rest.
		value, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[key.Kind] == gen {
			c.entries[key] = value
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Peek returns the cached value without fetching.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok
}

// Invalidate drops every entry of the given kinds, whatever their filter.
func (c *Cache) Invalidate(kinds ...domain.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range kinds {
		c.gens[kind]++
		for key := range c.entries {
			if key.Kind == kind {
				delete(c.entries, key)
			}
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
