package runtime

import (
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// CacheEntry represents a cached template with metadata
type CacheEntry struct {
	Template  *Template
	Digest    [32]byte
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	if e.ExpiresAt.IsZero() {
		return false // No expiration set
	}
	return time.Now().After(e.ExpiresAt)
}

// SourceDigest returns the digest the cache uses to compare template sources
func SourceDigest(source string) [32]byte {
	return blake3.Sum256([]byte(source))
}

// TemplateCache provides thread-safe template caching with TTL support.
// Expired entries are kept until they are replaced so a reload whose source
// did not change can reuse the parsed template.
type TemplateCache struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
	ttl     time.Duration
	maxSize int
}

// NewTemplateCache creates a new template cache. A zero ttl never expires
// entries, a maxSize below one disables the size limit.
func NewTemplateCache(ttl time.Duration, maxSize int) *TemplateCache {
	return &TemplateCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a fresh template from the cache
func (c *TemplateCache) Get(name string) (*Template, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.entries[name]
	if !ok || entry.IsExpired() {
		return nil, false
	}
	return entry.Template, true
}

// Revalidate returns the cached template for name when its source digest
// matches, extending its lifetime.
func (c *TemplateCache) Revalidate(name string, digest [32]byte) (*Template, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[name]
	if !ok || entry.Digest != digest {
		return nil, false
	}

	entry.LoadedAt = time.Now()
	entry.ExpiresAt = c.expiry(entry.LoadedAt)
	return entry.Template, true
}

// Set stores a template in the cache
func (c *TemplateCache) Set(name string, template *Template, digest [32]byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[name]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[name] = &CacheEntry{
		Template:  template,
		Digest:    digest,
		LoadedAt:  now,
		ExpiresAt: c.expiry(now),
	}
}

// Delete removes a template from the cache
func (c *TemplateCache) Delete(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, name)
}

// Clear removes all entries from the cache
func (c *TemplateCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// Size returns the current number of cached entries
func (c *TemplateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// Clean removes expired entries from the cache
func (c *TemplateCache) Clean() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for name, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, name)
		}
	}
}

// SetTTL changes the lifetime of entries stored from now on
func (c *TemplateCache) SetTTL(ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.ttl = ttl
}

// SetMaxSize changes the size limit, evicting the oldest entries if needed
func (c *TemplateCache) SetMaxSize(maxSize int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxSize = maxSize
	for maxSize > 0 && len(c.entries) > maxSize {
		c.evictOldest()
	}
}

func (c *TemplateCache) expiry(from time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return from.Add(c.ttl)
}

// evictOldest removes the oldest entry from the cache
func (c *TemplateCache) evictOldest() {
	var oldestName string
	var oldestTime time.Time

	for name, entry := range c.entries {
		if oldestName == "" || entry.LoadedAt.Before(oldestTime) {
			oldestName = name
			oldestTime = entry.LoadedAt
		}
	}

	if oldestName != "" {
		delete(c.entries, oldestName)
	}
}
