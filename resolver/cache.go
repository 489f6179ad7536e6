package resolver

import (
	"time"
)

type cacheEntry struct {
	media      *ResolvedMedia
	insertedAt time.Time
}

func (m *ManagerCtx) getFromCache(key string) (*ResolvedMedia, bool) {
	m.cacheMu.RLock()
	entry, ok := m.cache[key]
	m.cacheMu.RUnlock()

	if !ok {
		return nil, false
	}

	// ttl is evaluated lazily on read, there is no sweeping timer
	if time.Since(entry.insertedAt) > m.config.CacheTTL {
		m.removeFromCache(key)
		return nil, false
	}

	return entry.media, true
}

// saveToCache replaces any previous entry atomically from the reader's point
// of view, concurrent refreshes of the same key converge on the last writer.
func (m *ManagerCtx) saveToCache(key string, media *ResolvedMedia) {
	m.cacheMu.Lock()
	m.cache[key] = cacheEntry{
		media:      media,
		insertedAt: time.Now(),
	}
	m.cacheMu.Unlock()
}

func (m *ManagerCtx) removeFromCache(key string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	delete(m.cache, key)
}
