package fingerprint

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DigestCache remembers file digests keyed by path, size and modification
// time so unchanged assets are not read again. Entries are evicted least
// recently used first once maxEntries is reached. A DigestCache is safe for
// concurrent use and may be shared by several Computers.
type DigestCache struct {
	entries    map[string]*cacheEntry
	mutex      sync.Mutex
	maxEntries int
	// LRU list with dummy head and tail
	head *cacheEntry
	tail *cacheEntry

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	key    string
	digest string
	prev   *cacheEntry
	next   *cacheEntry
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewDigestCache creates a cache holding at most maxEntries digests.
// A non-positive maxEntries defaults to 1024.
func NewDigestCache(maxEntries int) *DigestCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}

	c := &DigestCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		head:       &cacheEntry{},
		tail:       &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

func cacheKey(alg Algorithm, path string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", alg, path, size, modTime.UnixNano())
}

// Get returns the digest stored under key.
func (c *DigestCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)

		return "", false
	}

	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)

	return entry.digest, true
}

// Set stores digest under key, evicting the least recently used entry when
// the cache is full.
func (c *DigestCache) Set(key, digest string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.digest = digest
		c.moveToFront(entry)

		return
	}

	for len(c.entries) >= c.maxEntries && c.tail.prev != c.head {
		lru := c.tail.prev
		c.remove(lru)
		delete(c.entries, lru.key)
		atomic.AddInt64(&c.evictions, 1)
	}

	entry := &cacheEntry{key: key, digest: digest}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Stats returns the current counters.
func (c *DigestCache) Stats() CacheStats {
	c.mutex.Lock()
	n := len(c.entries)
	c.mutex.Unlock()

	return CacheStats{
		Entries:   n,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

func (c *DigestCache) addToFront(entry *cacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *DigestCache) remove(entry *cacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *DigestCache) moveToFront(entry *cacheEntry) {
	c.remove(entry)
	c.addToFront(entry)
}
