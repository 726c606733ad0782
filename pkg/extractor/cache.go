// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache memoizes extraction results. Successes and failure fallbacks are
// cached alike so a retry of a known-bad document does not repeat failing
// network calls. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (Result, bool)
	Set(key string, res Result)
}

// memoryCache is the default Cache, backed by an expiring in-memory store.
type memoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates an in-memory cache. A non-positive ttl means
// entries never expire (session-lifetime memoization).
func NewMemoryCache(ttl time.Duration) Cache {
	if ttl <= 0 {
		return &memoryCache{c: gocache.New(gocache.NoExpiration, 0)}
	}
	return &memoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *memoryCache) Get(key string) (Result, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return Result{}, false
	}
	res, ok := v.(Result)
	return res, ok
}

func (m *memoryCache) Set(key string, res Result) {
	m.c.SetDefault(key, res)
}
