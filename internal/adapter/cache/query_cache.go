package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"fincheck/internal/domain"
	"fincheck/internal/port"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// QueryCache holds recent retrieval results keyed by query and top-k.
type QueryCache struct {
	lru *expirable.LRU[string, []domain.EvidenceItem]
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		lru: expirable.NewLRU[string, []domain.EvidenceItem](maxSize, nil, ttl),
	}
}

func cacheKey(query string, topK int) string {
	hash := sha256.Sum256([]byte(strconv.Itoa(topK) + "\x00" + query))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, topK int) ([]domain.EvidenceItem, bool) {
	items, ok := c.lru.Get(cacheKey(query, topK))
	if !ok {
		return nil, false
	}
	return append([]domain.EvidenceItem(nil), items...), true
}

func (c *QueryCache) Put(query string, topK int, items []domain.EvidenceItem) {
	c.lru.Add(cacheKey(query, topK), append([]domain.EvidenceItem(nil), items...))
}

// Invalidate drops every entry, e.g. after the index was rebuilt.
func (c *QueryCache) Invalidate() {
	c.lru.Purge()
}

func (c *QueryCache) Size() int {
	return c.lru.Len()
}

// CachedRetriever serves repeated queries from a QueryCache. Errors are not
// cached.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.EvidenceItem, error) {
	if items, hit := r.cache.Get(query, topK); hit {
		return items, nil
	}

	items, err := r.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, topK, items)
	return items, nil
}
