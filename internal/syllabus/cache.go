package syllabus

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
)

const cacheKeyPrefix = "planner:extract:"

// ByteCache stores opaque values with a TTL.
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedExtractor reuses previous extractions of identical documents.
// Cache failures are logged and never fail an extraction.
type CachedExtractor struct {
	next  *Extractor
	cache ByteCache
	ttl   time.Duration
}

// NewCachedExtractor wraps next. A nil cache disables caching.
func NewCachedExtractor(next *Extractor, cache ByteCache, ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{next: next, cache: cache, ttl: ttl}
}

// Extract returns cached topics for doc and r when present, otherwise runs
// the wrapped extractor and stores the result.
func (c *CachedExtractor) Extract(ctx context.Context, doc Document, r UnitRange) ([]curriculum.Topic, error) {
	if c.cache == nil {
		return c.next.Extract(doc, r)
	}

	key := CacheKey(doc.Data, r, c.next.Fingerprint())
	data, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("extraction cache read failed", "error", err)
	case ok:
		var topics []curriculum.Topic
		if err := json.Unmarshal(data, &topics); err == nil {
			slog.Debug("extraction cache hit", "document", doc.Name, "topics", len(topics))
			return topics, nil
		}
		slog.Warn("discarding corrupt extraction cache entry", "key", key)
	}

	topics, err := c.next.Extract(doc, r)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(topics); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			slog.Warn("extraction cache write failed", "error", err)
		}
	}
	return topics, nil
}

// CacheKey derives the cache key from the document bytes, the unit range
// and the extractor fingerprint, so a rule change misses old entries.
func CacheKey(data []byte, r UnitRange, fingerprint string) string {
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("%s%s:%s:%d-%d", cacheKeyPrefix, fingerprint, hex.EncodeToString(sum[:]), r.Start, r.End)
}

// extractorFingerprint hashes everything besides the document that shapes
// an extraction result.
func extractorFingerprint(rules curriculum.Rules, topicLimit, referenceLimit, flatLineLimit int) string {
	data, err := json.Marshal(struct {
		Rules  curriculum.Rules
		Limits [3]int
	}{rules, [3]int{topicLimit, referenceLimit, flatLineLimit}})
	if err != nil {
		// Rules holds only strings and numbers.
		panic(err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// MemoryCache is an in-process ByteCache for tests and single-node use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
