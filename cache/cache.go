/*
Package cache implements stores for decoded frames so that reloading the same
source images skips decoding.

Entries are keyed by the SHA-1 of the encoded source file, as returned by Key.
Cached images are shared between callers and must be treated as read-only.
*/
package cache

import (
	"crypto/sha1"
	"fmt"
	"image"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the interface implemented by decoded frame stores.
type Cache interface {
	// Get returns the image stored under key, reporting whether it was
	// found.
	Get(key string) (*image.RGBA, bool, error)
	// Put stores m under key.
	Put(key string, m *image.RGBA) error
}

// Key returns the cache key for the encoded image b.
func Key(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}

// Memory is an in-process Cache with expiring entries.
type Memory struct {
	c *gocache.Cache
}

// NewMemory returns a Memory cache whose entries expire after expiration and
// are purged every cleanup interval.
func NewMemory(expiration, cleanup time.Duration) *Memory {
	return &Memory{
		c: gocache.New(expiration, cleanup),
	}
}

// Get implements Cache.
func (m *Memory) Get(key string) (*image.RGBA, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.(*image.RGBA), true, nil
}

// Put implements Cache.
func (m *Memory) Put(key string, img *image.RGBA) error {
	m.c.SetDefault(key, img)
	return nil
}

// Len returns the number of entries, including any expired entries not yet
// purged.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

type chain []Cache

// Chain returns a Cache that consults each of caches in order. A hit in a
// later cache is copied into every earlier one; Put writes to all of them.
func Chain(caches ...Cache) Cache {
	return chain(caches)
}

func (c chain) Get(key string) (*image.RGBA, bool, error) {
	for i, cache := range c {
		m, ok, err := cache.Get(key)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		for _, earlier := range c[:i] {
			if err := earlier.Put(key, m); err != nil {
				return nil, false, err
			}
		}
		return m, true, nil
	}
	return nil, false, nil
}

func (c chain) Put(key string, m *image.RGBA) error {
	for _, cache := range c {
		if err := cache.Put(key, m); err != nil {
			return err
		}
	}
	return nil
}
