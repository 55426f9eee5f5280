// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package arc

import "testing"

func TestCache_BasicInsertAndEvict(t *testing.T) {
	c := New[uint64](100)

	evicted := c.InsertResident(1, 40)
	if len(evicted) != 0 {
		t.Fatalf("unexpected eviction on first insert: %v", evicted)
	}

	c.InsertResident(2, 40)
	if c.CurrentBytes() != 80 {
		t.Fatalf("CurrentBytes() = %d, want 80", c.CurrentBytes())
	}

	// A third 40-byte entry must evict to stay within the 100-byte budget.
	evicted = c.InsertResident(3, 40)
	if len(evicted) == 0 {
		t.Fatalf("expected an eviction when exceeding max_bytes")
	}
	if c.CurrentBytes() > c.MaxBytes() {
		t.Fatalf("CurrentBytes() = %d exceeds MaxBytes() = %d", c.CurrentBytes(), c.MaxBytes())
	}
}

func TestCache_OnHitPromotesT1ToT2(t *testing.T) {
	c := New[uint64](1000)
	c.InsertResident(1, 10)

	if kind, ok := c.Lookup(1); !ok || kind != ListT1 {
		t.Fatalf("expected key 1 in T1, got kind=%v ok=%v", kind, ok)
	}

	c.OnHit(1)

	if kind, ok := c.Lookup(1); !ok || kind != ListT2 {
		t.Fatalf("expected key 1 promoted to T2, got kind=%v ok=%v", kind, ok)
	}

	t1, t2, _, _ := c.ListLengths()
	if t1 != 0 || t2 != 1 {
		t.Fatalf("ListLengths() = (%d,%d,_,_), want (0,1,_,_)", t1, t2)
	}
}

func TestCache_GhostHitB1GrowsTargetT1(t *testing.T) {
	c := New[uint64](100)
	c.InsertResident(1, 50)
	c.InsertResident(2, 50)
	c.InsertResident(3, 50) // forces an eviction of key 1 into B1

	if _, ok := c.Lookup(1); ok {
		t.Fatalf("key 1 should no longer be resident")
	}

	before := c.TargetT1Bytes()
	c.OnGhostHitB1(1)
	after := c.TargetT1Bytes()

	if after <= before {
		t.Fatalf("OnGhostHitB1 should grow TargetT1Bytes: before=%d after=%d", before, after)
	}

	_, _, b1, _ := c.ListLengths()
	if b1 != 0 {
		t.Fatalf("expected key 1 removed from B1 after ghost hit, b1 len=%d", b1)
	}
}

func TestCache_GhostHitB2ShrinksTargetT1(t *testing.T) {
	c := New[uint64](50)
	c.InsertResident(1, 50)
	c.OnHit(1)              // promote to T2
	c.InsertResident(2, 50) // forces eviction; T1 is empty, so T2's tail (key 1) is evicted to B2
	c.InsertResident(3, 50)
	c.InsertResident(4, 50)

	before := c.TargetT1Bytes()
	if _, ok := c.Lookup(1); !ok {
		c.OnGhostHitB2(1)
		after := c.TargetT1Bytes()
		if after > before {
			t.Fatalf("OnGhostHitB2 should not grow TargetT1Bytes: before=%d after=%d", before, after)
		}
	}
}

func TestCache_RemoveResident(t *testing.T) {
	c := New[uint64](1000)
	c.InsertResident(1, 30)

	size, ok := c.RemoveResident(1)
	if !ok || size != 30 {
		t.Fatalf("RemoveResident() = (%d,%v), want (30,true)", size, ok)
	}
	if c.CurrentBytes() != 0 {
		t.Fatalf("CurrentBytes() = %d, want 0 after removal", c.CurrentBytes())
	}
	if _, ok := c.RemoveResident(1); ok {
		t.Fatalf("second RemoveResident() should report not found")
	}
}

func TestCache_NeverExceedsMaxBytes(t *testing.T) {
	c := New[uint64](500)
	for i := uint64(0); i < 50; i++ {
		c.InsertResident(i, 37)
		if c.CurrentBytes() > c.MaxBytes() {
			t.Fatalf("after inserting key %d: CurrentBytes()=%d exceeds MaxBytes()=%d", i, c.CurrentBytes(), c.MaxBytes())
		}
	}
}

func TestCache_ByteKeyType(t *testing.T) {
	c := New[[16]byte](1000)
	var k [16]byte
	k[0] = 0xAB
	c.InsertResident(k, 100)

	if kind, ok := c.Lookup(k); !ok || kind != ListT1 {
		t.Fatalf("expected [16]byte key resident in T1, got kind=%v ok=%v", kind, ok)
	}
}
