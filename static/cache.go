/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package static

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// cacheEntry is the cached form of one resolved file: its full contents
// plus the metadata needed to answer conditional requests without a
// fresh stat/read.
type cacheEntry struct {
	data     []byte
	mime     string
	etag     string
	modTime  time.Time
	size     int64
	storedAt time.Time
}

// CacheStats is a point-in-time snapshot of fileCache counters, exposed for
// monitoring (spec §4.8).
type CacheStats struct {
	TotalMemory int64
	EntryCount  int
	Hits        int64
	Misses      int64
	Evictions   int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when nothing has been
// requested yet.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// fileCache is the LRU cache bounded by both entry count (golang-lru's own
// size limit) and total byte size (max_cache_size, enforced here since
// golang-lru only counts entries). Entries older than ttl are treated as
// misses and reloaded on next access.
type fileCache struct {
	mu sync.Mutex

	lru        *lru.Cache
	maxBytes   int64
	ttl        time.Duration
	totalBytes int64
	hits       int64
	misses     int64
	evictions  int64
}

func newFileCache(maxEntries int, maxBytes int64, ttl time.Duration) (*fileCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}

	fc := &fileCache{maxBytes: maxBytes, ttl: ttl}

	c, err := lru.NewWithEvict(maxEntries, fc.onEvict)
	if err != nil {
		return nil, err
	}
	fc.lru = c
	return fc, nil
}

// onEvict runs under fc.mu (golang-lru invokes it synchronously from
// Add/Remove/RemoveOldest) and keeps totalBytes consistent with the
// entries actually held.
func (fc *fileCache) onEvict(_, value interface{}) {
	if e, ok := value.(*cacheEntry); ok {
		fc.totalBytes -= e.size
		fc.evictions++
	}
}

// get returns the cached entry for key, or nil if absent or expired. An
// expired entry is evicted immediately, counted as both an eviction and a
// miss.
func (fc *fileCache) get(key string) *cacheEntry {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	v, ok := fc.lru.Get(key)
	if !ok {
		fc.misses++
		return nil
	}
	e := v.(*cacheEntry)

	if fc.ttl > 0 && time.Since(e.storedAt) >= fc.ttl {
		fc.lru.Remove(key)
		fc.misses++
		return nil
	}

	fc.hits++
	return e
}

// put stores e under key, evicting by size first if it would push the
// cache over maxBytes.
func (fc *fileCache) put(key string, e *cacheEntry) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.maxBytes > 0 {
		for fc.totalBytes+e.size > fc.maxBytes && fc.lru.Len() > 0 {
			fc.lru.RemoveOldest()
		}
	}

	fc.totalBytes += e.size
	fc.lru.Add(key, e)
}

func (fc *fileCache) remove(key string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.lru.Remove(key)
}

func (fc *fileCache) stats() CacheStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return CacheStats{
		TotalMemory: fc.totalBytes,
		EntryCount:  fc.lru.Len(),
		Hits:        fc.hits,
		Misses:      fc.misses,
		Evictions:   fc.evictions,
	}
}
