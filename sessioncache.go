// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"sync"

	"github.com/rfbcore/vncengine/internal/arc"
)

// SessionCache is the client-side half of the session content cache
// protocol (encodings 100/101, CachedRect/CachedRectInit): the server
// assigns an 8-byte id to a previously-seen rectangle and may reference it
// again by id instead of resending pixels. Entries never survive past the
// connection that created them - unlike PersistentCache, nothing here is
// written to disk.
type SessionCache struct {
	mu      sync.Mutex
	arc     *arc.Cache[uint64]
	content map[uint64][]byte
	stats   CacheProtocolStats
}

// NewSessionCache creates a session cache with the given byte budget.
func NewSessionCache(maxBytes int) *SessionCache {
	return &SessionCache{
		arc:     arc.New[uint64](maxBytes),
		content: make(map[uint64][]byte),
	}
}

// Store records rgb (a tightly packed RGB888 rectangle) under id, evicting
// older entries as needed to stay within budget.
func (sc *SessionCache) Store(id uint64, rgb []byte) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	evicted := sc.arc.InsertResident(id, len(rgb))
	for _, evictedID := range evicted {
		delete(sc.content, evictedID)
	}
	sc.content[id] = rgb
}

// Fetch returns the cached content for id, recording an access for ARC's
// recency/frequency bookkeeping. Returns (nil, false) on a cache miss,
// which the caller should surface via newCacheMissError rather than a
// protocol error - the server is allowed to reference ids the client
// never learned of (e.g. after a reconnect).
func (sc *SessionCache) Fetch(id uint64) ([]byte, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	kind, ok := sc.arc.Lookup(id)
	if !ok || (kind != arc.ListT1 && kind != arc.ListT2) {
		return nil, false
	}
	sc.arc.OnHit(id)
	rgb, ok := sc.content[id]
	return rgb, ok
}

// Stats returns a copy of the accumulated bandwidth statistics.
func (sc *SessionCache) Stats() CacheProtocolStats {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.stats
}

func (sc *SessionCache) recordRef(rect RectangleHeader, spf PixelFormat) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	trackContentCacheRef(&sc.stats, rect, spf)
}

func (sc *SessionCache) recordInit(compressedBytes uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	trackContentCacheInit(&sc.stats, compressedBytes)
}
