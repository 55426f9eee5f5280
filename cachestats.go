// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "fmt"

// CacheProtocolStats accumulates bandwidth bookkeeping for one cache
// protocol (session or persistent), mirroring the classic TigerVNC viewer's
// BandwidthStats helper so end-of-run summaries are directly comparable.
type CacheProtocolStats struct {
	CachedRectBytes uint64
	CachedRectCount uint32

	CachedRectInitBytes uint64
	CachedRectInitCount uint32

	AlternativeBytes uint64
}

// estimateCompressed is a conservative ~10:1 compression assumption used to
// estimate what a rectangle would have cost without the cache.
func estimateCompressed(uncompressed uint64) uint64 {
	return uncompressed / 10
}

// BandwidthSaved returns the estimated bytes saved vs the alternative (no
// cache) baseline.
func (s *CacheProtocolStats) BandwidthSaved() uint64 {
	used := s.CachedRectBytes + s.CachedRectInitBytes
	if s.AlternativeBytes > used {
		return s.AlternativeBytes - used
	}
	return 0
}

// ReductionPercentage returns the estimated percentage reduction vs the
// alternative baseline.
func (s *CacheProtocolStats) ReductionPercentage() float64 {
	used := s.CachedRectBytes + s.CachedRectInitBytes
	if s.AlternativeBytes == 0 || used >= s.AlternativeBytes {
		return 0
	}
	return 100.0 * float64(s.AlternativeBytes-used) / float64(s.AlternativeBytes)
}

// FormatSummary renders a human-readable summary line under label.
func (s *CacheProtocolStats) FormatSummary(label string) string {
	return fmt.Sprintf("%s: %s bandwidth saving (%.1f%% reduction)", label, humanBytes(s.BandwidthSaved()), s.ReductionPercentage())
}

func humanBytes(b uint64) string {
	const (
		kib = 1024.0
		mib = 1024.0 * 1024.0
		gib = 1024.0 * 1024.0 * 1024.0
	)
	f := float64(b)
	switch {
	case f >= gib:
		return fmt.Sprintf("%.3f GiB", f/gib)
	case f >= mib:
		return fmt.Sprintf("%.3f MiB", f/mib)
	case f >= kib:
		return fmt.Sprintf("%.3f KiB", f/kib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// trackContentCacheRef records a CachedRect reference: 12-byte rect header
// plus 8-byte cache id actually sent, against an estimated alternative of a
// compressed raw rectangle.
func trackContentCacheRef(stats *CacheProtocolStats, rect RectangleHeader, spf PixelFormat) {
	bppBytes := uint64(spf.BPP) / 8
	pixels := uint64(rect.Width) * uint64(rect.Height)
	uncompressed := pixels * bppBytes
	const refBytes = 20
	alt := 16 + estimateCompressed(uncompressed)

	stats.CachedRectBytes += refBytes
	stats.AlternativeBytes += alt
	stats.CachedRectCount++
}

// trackContentCacheInit records a CachedRectInit: 12-byte header + 8-byte
// cache id + 4-byte encoding overhead, plus the encoded payload size.
func trackContentCacheInit(stats *CacheProtocolStats, compressedBytes uint64) {
	const overhead = 24
	stats.CachedRectInitBytes += overhead + compressedBytes
	stats.AlternativeBytes += 16 + compressedBytes
	stats.CachedRectInitCount++
}

// trackPersistentCacheRef records a PersistentCachedRect reference:
// 12-byte header + 1-byte hash length + hashLen bytes of hash.
func trackPersistentCacheRef(stats *CacheProtocolStats, rect RectangleHeader, spf PixelFormat, hashLen uint64) {
	bppBytes := uint64(spf.BPP) / 8
	pixels := uint64(rect.Width) * uint64(rect.Height)
	uncompressed := pixels * bppBytes
	overhead := uint64(12) + 1 + hashLen
	alt := 16 + estimateCompressed(uncompressed)

	stats.CachedRectBytes += overhead
	stats.AlternativeBytes += alt
	stats.CachedRectCount++
}

// trackPersistentCacheInit records a PersistentCachedRectInit: 12-byte
// header + 1-byte hash length + hashLen bytes + 4-byte inner encoding, plus
// the encoded payload size.
func trackPersistentCacheInit(stats *CacheProtocolStats, hashLen, compressedBytes uint64) {
	overhead := uint64(12) + 1 + hashLen + 4
	stats.CachedRectInitBytes += overhead + compressedBytes
	stats.AlternativeBytes += 16 + compressedBytes
	stats.CachedRectInitCount++
}
