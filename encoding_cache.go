// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "fmt"

// Cache encoding identifiers. 100/101 are the session content cache
// (CachedRect/CachedRectInit); 102/103 extend the same shape to the
// persistent, content-hash-addressed cache.
const (
	EncodingCachedRect                 = 100
	EncodingCachedRectInit             = 101
	EncodingPersistentCachedRect       = 102
	EncodingPersistentCachedRectInit   = 103
	pseudoEncodingCacheCapability      = -496
	maxPersistentCacheHashLen          = 32
)

// cachedRectInitDecoder handles encoding 101: the server sends a cache id
// followed by an ordinary inner-encoded rectangle. The decoded pixels are
// written to dest as usual and also snapshotted into the session cache
// under the given id, so a later CachedRect referencing that id can be
// satisfied without resending pixels.
type cachedRectInitDecoder struct {
	cache    *SessionCache
	registry *DecoderRegistry
}

func (*cachedRectInitDecoder) EncodingID() int32 { return EncodingCachedRectInit }

func (d *cachedRectInitDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	id, err := in.ReadU32()
	if err != nil {
		return encodingError("cachedRectInitDecoder.Decode", "failed to read cache id", err)
	}
	idHigh, err := in.ReadU32()
	if err != nil {
		return encodingError("cachedRectInitDecoder.Decode", "failed to read cache id", err)
	}
	cacheID := uint64(id)<<32 | uint64(idHigh)

	innerType, err := in.ReadI32()
	if err != nil {
		return encodingError("cachedRectInitDecoder.Decode", "failed to read inner encoding type", err)
	}
	inner, ok := d.registry.Lookup(innerType)
	if !ok {
		return unsupportedEncodingError("cachedRectInitDecoder.Decode",
			fmt.Sprintf("no decoder registered for cached inner encoding %d", innerType), innerType, nil)
	}

	innerRect := rect
	innerRect.EncodingType = innerType
	if err := inner.Decode(in, innerRect, spf, dest); err != nil {
		return err
	}

	snapshot, err := dest.Snapshot(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height))
	if err != nil {
		return encodingError("cachedRectInitDecoder.Decode", "failed to snapshot decoded rectangle for caching", err)
	}
	d.cache.Store(cacheID, snapshot)
	d.cache.recordInit(uint64(len(snapshot)))

	return nil
}

// cachedRectDecoder handles encoding 100: a pure cache reference, 8-byte id
// and no pixel payload at all.
type cachedRectDecoder struct {
	cache *SessionCache
}

func (*cachedRectDecoder) EncodingID() int32 { return EncodingCachedRect }

func (d *cachedRectDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	idHi, err := in.ReadU32()
	if err != nil {
		return encodingError("cachedRectDecoder.Decode", "failed to read cache id", err)
	}
	idLo, err := in.ReadU32()
	if err != nil {
		return encodingError("cachedRectDecoder.Decode", "failed to read cache id", err)
	}
	cacheID := uint64(idHi)<<32 | uint64(idLo)

	d.cache.recordRef(rect, spf)

	rgb, ok := d.cache.Fetch(cacheID)
	if !ok {
		return newCacheMissError("cachedRectDecoder.Decode", "session", fmt.Sprintf("%d", cacheID))
	}
	return dest.WriteRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), rgb, int(rect.Width))
}

// persistentCachedRectInitDecoder handles the persistent-cache analogue of
// CachedRectInit: a variable-length content hash precedes the inner
// encoding, and the decoded pixels are persisted to disk under HashRect of
// those pixels; the hash read from the wire is not used as the key.
type persistentCachedRectInitDecoder struct {
	cache    *PersistentCache
	registry *DecoderRegistry
}

func (*persistentCachedRectInitDecoder) EncodingID() int32 { return EncodingPersistentCachedRectInit }

func (d *persistentCachedRectInitDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	hashLen, err := in.ReadU8()
	if err != nil {
		return encodingError("persistentCachedRectInitDecoder.Decode", "failed to read hash length", err)
	}
	if hashLen == 0 || int(hashLen) > maxPersistentCacheHashLen {
		return encodingError("persistentCachedRectInitDecoder.Decode", "invalid hash length", nil)
	}
	hashBytes, err := in.ReadN(int(hashLen))
	if err != nil {
		return encodingError("persistentCachedRectInitDecoder.Decode", "failed to read hash", err)
	}

	innerType, err := in.ReadI32()
	if err != nil {
		return encodingError("persistentCachedRectInitDecoder.Decode", "failed to read inner encoding type", err)
	}
	inner, ok := d.registry.Lookup(innerType)
	if !ok {
		return unsupportedEncodingError("persistentCachedRectInitDecoder.Decode",
			fmt.Sprintf("no decoder registered for cached inner encoding %d", innerType), innerType, nil)
	}

	innerRect := rect
	innerRect.EncodingType = innerType
	if err := inner.Decode(in, innerRect, spf, dest); err != nil {
		return err
	}

	snapshot, err := dest.Snapshot(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height))
	if err != nil {
		return encodingError("persistentCachedRectInitDecoder.Decode", "failed to snapshot decoded rectangle for caching", err)
	}

	var key [16]byte
	copy(key[:], hashBytes)
	if _, err := d.cache.Store(snapshot); err != nil {
		return err
	}
	d.cache.recordInit(uint64(hashLen), uint64(len(snapshot)))

	return nil
}

// persistentCachedRectDecoder handles the persistent-cache analogue of
// CachedRect: a variable-length content hash and no pixel payload.
type persistentCachedRectDecoder struct {
	cache *PersistentCache
}

func (*persistentCachedRectDecoder) EncodingID() int32 { return EncodingPersistentCachedRect }

func (d *persistentCachedRectDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	hashLen, err := in.ReadU8()
	if err != nil {
		return encodingError("persistentCachedRectDecoder.Decode", "failed to read hash length", err)
	}
	if hashLen == 0 || int(hashLen) > maxPersistentCacheHashLen {
		return encodingError("persistentCachedRectDecoder.Decode", "invalid hash length", nil)
	}
	hashBytes, err := in.ReadN(int(hashLen))
	if err != nil {
		return encodingError("persistentCachedRectDecoder.Decode", "failed to read hash", err)
	}

	d.cache.recordRef(rect, spf, uint64(hashLen))

	var key [16]byte
	copy(key[:], hashBytes)
	rgb, ok, err := d.cache.Fetch(key)
	if err != nil {
		return err
	}
	if !ok {
		return newCacheMissError("persistentCachedRectDecoder.Decode", "persistent", fmt.Sprintf("%x", hashBytes))
	}
	return dest.WriteRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), rgb, int(rect.Width))
}
