// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package arc implements an Adaptive Replacement Cache core shared by the
// session and persistent caches. The algorithm (T1/T2 resident lists,
// B1/B2 ghost lists, an adaptively tuned target p_bytes) is ported from the
// reference rfb-encodings arc_cache implementation, generalized over the
// cache key type so both a uint64 session-cache id and a [16]byte
// content-hash can share one implementation.
package arc

import "container/list"

// ListKind identifies which of the four ARC lists a key currently occupies.
type ListKind int

const (
	// ListNone indicates the key is not tracked by the cache at all.
	ListNone ListKind = iota
	// ListT1 is the resident list of recently-used-once entries.
	ListT1
	// ListT2 is the resident list of frequently-used entries.
	ListT2
	// ListB1 is the ghost list of entries recently evicted from T1.
	ListB1
	// ListB2 is the ghost list of entries recently evicted from T2.
	ListB2
)

type entry struct {
	key  interface{}
	size int
}

// Cache implements the Adaptive Replacement Cache algorithm over a
// comparable key type. It tracks byte sizes, not entry counts: max_bytes is
// a budget in bytes, and each resident entry records its own size so that
// variable-sized cached rectangles are accounted for correctly.
type Cache[K comparable] struct {
	maxBytes     int
	currentBytes int
	pBytes       int

	t1 *list.List
	t2 *list.List
	b1 *list.List
	b2 *list.List

	// index maps a key to (list kind, element pointer within that list).
	index map[K]indexEntry[K]

	pendingEvictions []K
}

type indexEntry[K comparable] struct {
	kind ListKind
	elem *list.Element
}

// New creates an ARC cache with the given byte budget.
func New[K comparable](maxBytes int) *Cache[K] {
	return &Cache[K]{
		maxBytes: maxBytes,
		t1:       list.New(),
		t2:       list.New(),
		b1:       list.New(),
		b2:       list.New(),
		index:    make(map[K]indexEntry[K]),
	}
}

// MaxBytes returns the configured byte budget.
func (c *Cache[K]) MaxBytes() int { return c.maxBytes }

// CurrentBytes returns the sum of resident (T1+T2) entry sizes.
func (c *Cache[K]) CurrentBytes() int { return c.currentBytes }

// TargetT1Bytes returns the adaptively tuned target size for T1, in bytes.
func (c *Cache[K]) TargetT1Bytes() int { return c.pBytes }

// ListLengths returns the entry counts of T1, T2, B1, B2 in that order.
func (c *Cache[K]) ListLengths() (t1, t2, b1, b2 int) {
	return c.t1.Len(), c.t2.Len(), c.b1.Len(), c.b2.Len()
}

// Lookup reports the list key is tracked in without mutating any list
// ordering; ok is true only when key is resident (in T1 or T2). A ghost key
// in B1 or B2 is reported with its list kind and ok false. Use OnHit to
// record an access.
func (c *Cache[K]) Lookup(key K) (ListKind, bool) {
	e, ok := c.index[key]
	if !ok {
		return ListNone, false
	}
	return e.kind, e.kind == ListT1 || e.kind == ListT2
}

// OnHit records an access to a resident key: a T1 hit promotes the key to
// T2 (it has now been used more than once); a T2 hit simply moves it to the
// front of T2's recency order.
func (c *Cache[K]) OnHit(key K) {
	e, ok := c.index[key]
	if !ok {
		return
	}
	switch e.kind {
	case ListT1:
		ent := c.t1.Remove(e.elem).(*entry)
		newElem := c.t2.PushFront(ent)
		c.index[key] = indexEntry[K]{kind: ListT2, elem: newElem}
	case ListT2:
		c.t2.MoveToFront(e.elem)
	}
}

// InsertResident inserts a new key into T1 with the given byte size,
// evicting from T1/T2 via Replace until there is room. Returns the keys
// evicted to make space, in eviction order. Callers that also care about
// ghost-list hits should call OnGhostHitB1/OnGhostHitB2 before
// InsertResident for a key found in B1/B2.
func (c *Cache[K]) InsertResident(key K, sizeBytes int) []K {
	if existing, ok := c.index[key]; ok && (existing.kind == ListT1 || existing.kind == ListT2) {
		c.RemoveResident(key)
	}

	c.pendingEvictions = c.pendingEvictions[:0]
	for c.currentBytes+sizeBytes > c.maxBytes && (c.t1.Len()+c.t2.Len()) > 0 {
		if !c.replace() {
			break
		}
	}

	ent := &entry{key: key, size: sizeBytes}
	elem := c.t1.PushFront(ent)
	c.index[key] = indexEntry[K]{kind: ListT1, elem: elem}
	c.currentBytes += sizeBytes

	evicted := make([]K, len(c.pendingEvictions))
	copy(evicted, c.pendingEvictions)
	return evicted
}

// RemoveResident removes key from T1 or T2 (not from the ghost lists),
// returning its recorded size if it was present.
func (c *Cache[K]) RemoveResident(key K) (int, bool) {
	e, ok := c.index[key]
	if !ok || (e.kind != ListT1 && e.kind != ListT2) {
		return 0, false
	}
	ent := e.elem.Value.(*entry)
	switch e.kind {
	case ListT1:
		c.t1.Remove(e.elem)
	case ListT2:
		c.t2.Remove(e.elem)
	}
	c.currentBytes -= ent.size
	delete(c.index, key)
	return ent.size, true
}

// OnGhostHitB1 records a reference to a key found in B1 (a one-time-use
// entry came back): this biases the cache towards recency by growing
// pBytes.
func (c *Cache[K]) OnGhostHitB1(key K) {
	b1Len := c.b1.Len()
	b2Len := c.b2.Len()
	ratio := 1
	if b1Len > 0 {
		ratio = b2Len / b1Len
		if ratio < 1 {
			ratio = 1
		}
	}
	c.pBytes += ratio * c.averageEntrySizeBytes()
	if c.pBytes > c.maxBytes {
		c.pBytes = c.maxBytes
	}
	c.removeFromList(key, ListB1)
}

// OnGhostHitB2 records a reference to a key found in B2 (a frequently-used
// entry came back): this biases the cache towards frequency by shrinking
// pBytes.
func (c *Cache[K]) OnGhostHitB2(key K) {
	b1Len := c.b1.Len()
	b2Len := c.b2.Len()
	ratio := 1
	if b2Len > 0 {
		ratio = b1Len / b2Len
		if ratio < 1 {
			ratio = 1
		}
	}
	c.pBytes -= ratio * c.averageEntrySizeBytes()
	if c.pBytes < 0 {
		c.pBytes = 0
	}
	c.removeFromList(key, ListB2)
}

// TakePendingEvictions drains and returns the keys evicted by the most
// recent InsertResident call.
func (c *Cache[K]) TakePendingEvictions() []K {
	out := c.pendingEvictions
	c.pendingEvictions = nil
	return out
}

func (c *Cache[K]) averageEntrySizeBytes() int {
	n := c.t1.Len() + c.t2.Len()
	if n == 0 {
		return 1
	}
	avg := c.currentBytes / n
	if avg < 1 {
		avg = 1
	}
	return avg
}

// replace evicts one victim from T1 or T2 per the ARC decision rule,
// demoting it to the corresponding ghost list with size 0, and records it
// in pendingEvictions. Returns false if there was nothing to evict.
func (c *Cache[K]) replace() bool {
	t1Bytes := c.sumBytes(c.t1)

	var victimList *list.List
	var victimGhost ListKind
	if c.t1.Len() > 0 && (t1Bytes > c.pBytes || c.t2.Len() == 0) {
		victimList = c.t1
		victimGhost = ListB1
	} else if c.t2.Len() > 0 {
		victimList = c.t2
		victimGhost = ListB2
	} else {
		return false
	}

	back := victimList.Back()
	if back == nil {
		return false
	}
	ent := victimList.Remove(back).(*entry)
	c.currentBytes -= ent.size

	var ghostList *list.List
	if victimGhost == ListB1 {
		ghostList = c.b1
	} else {
		ghostList = c.b2
	}
	ghostEnt := &entry{key: ent.key, size: 0}
	ghostElem := ghostList.PushFront(ghostEnt)
	c.index[ent.key.(K)] = indexEntry[K]{kind: victimGhost, elem: ghostElem}

	c.pendingEvictions = append(c.pendingEvictions, ent.key.(K))
	return true
}

func (c *Cache[K]) sumBytes(l *list.List) int {
	total := 0
	for e := l.Front(); e != nil; e = e.Next() {
		total += e.Value.(*entry).size
	}
	return total
}

func (c *Cache[K]) removeFromList(key K, kind ListKind) {
	e, ok := c.index[key]
	if !ok || e.kind != kind {
		return
	}
	switch kind {
	case ListB1:
		c.b1.Remove(e.elem)
	case ListB2:
		c.b2.Remove(e.elem)
	}
	delete(c.index, key)
}

// RemoveAny removes key from whichever list currently holds it (resident or
// ghost), returning its size (0 for ghost entries).
func (c *Cache[K]) RemoveAny(key K) (int, bool) {
	e, ok := c.index[key]
	if !ok {
		return 0, false
	}
	switch e.kind {
	case ListT1, ListT2:
		return c.RemoveResident(key)
	case ListB1, ListB2:
		c.removeFromList(key, e.kind)
		return 0, true
	}
	return 0, false
}
