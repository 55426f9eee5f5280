// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"crypto/sha256"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/rfbcore/vncengine/internal/arc"
)

var persistentCacheBucket = []byte("rects")

// PersistentCache is the client-side half of the persistent content cache
// protocol (a custom extension alongside CachedRect): rectangles are
// addressed by a content hash rather than a server-assigned id, so entries
// can be reused across reconnects and even across sessions against
// different servers showing the same content. Residency accounting is an
// in-memory ARC index; the pixel bytes themselves live in a bbolt database
// so the cache survives process restarts.
type PersistentCache struct {
	mu    sync.Mutex
	db    *bbolt.DB
	arc   *arc.Cache[[16]byte]
	stats CacheProtocolStats
}

// OpenPersistentCache opens (creating if necessary) a bbolt-backed
// persistent cache at path with the given byte budget.
func OpenPersistentCache(path string, maxBytes int) (*PersistentCache, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, transportError("OpenPersistentCache", "failed to open cache database", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(persistentCacheBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, transportError("OpenPersistentCache", "failed to initialize cache bucket", err)
	}

	return &PersistentCache{
		db:  db,
		arc: arc.New[[16]byte](maxBytes),
	}, nil
}

// Close flushes and closes the underlying database.
func (pc *PersistentCache) Close() error {
	return pc.db.Close()
}

// HashRect computes the content-addressing key for a rectangle: the first
// 16 bytes of its SHA-256 digest, which resolves the collision-risk open
// question with a cryptographically spread digest while keeping cache keys
// compact.
func HashRect(rgb []byte) [16]byte {
	sum := sha256.Sum256(rgb)
	var key [16]byte
	copy(key[:], sum[:16])
	return key
}

// Store persists rgb under its content hash, evicting older entries as
// needed, and returns the hash used as the cache key.
func (pc *PersistentCache) Store(rgb []byte) ([16]byte, error) {
	key := HashRect(rgb)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if kind, ok := pc.arc.Lookup(key); ok && (kind == arc.ListT1 || kind == arc.ListT2) {
		pc.arc.OnHit(key)
		return key, nil
	}

	evicted := pc.arc.InsertResident(key, len(rgb))
	err := pc.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(persistentCacheBucket)
		for _, evictedKey := range evicted {
			if err := b.Delete(evictedKey[:]); err != nil {
				return err
			}
		}
		return b.Put(key[:], rgb)
	})
	if err != nil {
		return key, transportError("PersistentCache.Store", "failed to persist cached rectangle", err)
	}
	return key, nil
}

// Fetch looks up the rectangle stored under hash. A (nil, false) return is
// a cache miss and is not itself an error: it happens whenever the server
// references a hash this client has never stored, e.g. a fresh persistent
// cache file or a hash collision with content evicted since.
func (pc *PersistentCache) Fetch(hash [16]byte) ([]byte, bool, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	kind, ok := pc.arc.Lookup(hash)
	if !ok || (kind != arc.ListT1 && kind != arc.ListT2) {
		return nil, false, nil
	}
	pc.arc.OnHit(hash)

	var rgb []byte
	err := pc.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(persistentCacheBucket)
		v := b.Get(hash[:])
		if v == nil {
			return nil
		}
		rgb = make([]byte, len(v))
		copy(rgb, v)
		return nil
	})
	if err != nil {
		return nil, false, transportError("PersistentCache.Fetch", "failed to read cached rectangle", err)
	}
	return rgb, rgb != nil, nil
}

// Stats returns a copy of the accumulated bandwidth statistics.
func (pc *PersistentCache) Stats() CacheProtocolStats {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats
}

func (pc *PersistentCache) recordRef(rect RectangleHeader, spf PixelFormat, hashLen uint64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	trackPersistentCacheRef(&pc.stats, rect, spf, hashLen)
}

func (pc *PersistentCache) recordInit(hashLen, compressedBytes uint64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	trackPersistentCacheInit(&pc.stats, hashLen, compressedBytes)
}
