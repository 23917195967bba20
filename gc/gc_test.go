//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package gc

import (
	"testing"

	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/value"
)

// objectSize is the total header+body footprint every object placed in
// these tests occupies: with a body of exactly one word, it's a multiple
// of heap.HeapAlignment, so only the heap's one-time leading padding
// header (base isn't at the required header residue, every object body
// after it is) ever appears — nothing pads again between objects or
// across a compaction pass.
const objectSize = heap.HeaderSize + heap.WordSize

func newTestHeap(t *testing.T, size int64) *heap.Heap {
	t.Helper()
	h, err := heap.New(size)
	if err != nil {
		t.Fatalf("heap.New(%d): %v", size, err)
	}
	t.Cleanup(func() { h.Release() })
	return h
}

func placeObject(h *heap.Heap, scanSize int64) heap.Address {
	return h.PlaceObject(heap.WordSize, 0, scanSize)
}

func ptrTo(a heap.Address) value.Value {
	return value.TagPointer(value.PointerTag, uintptr(a))
}

// TestCollectReclaimsGarbageAndFixesReferences exercises the collector's
// core guarantee: an object that sits after unreachable garbage in
// address order must be slid down, and every surviving reference to it —
// root and internal — must follow.
func TestCollectReclaimsGarbageAndFixesReferences(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	big := bigobj.NewTable(4)
	col := New(h, big, 1000)

	placeObject(h, 0) // unreachable garbage, precedes both survivors
	a := placeObject(h, 1)
	b := placeObject(h, 0)

	h.Slots(a, 0, 1)[0] = ptrTo(b)
	roots := []value.Value{ptrTo(a)}

	res := col.Full(roots)
	if res.Phase != Compacted {
		t.Fatalf("Phase = %v, want Compacted", res.Phase)
	}
	if res.LiveBytes != 2*objectSize {
		t.Fatalf("LiveBytes = %d, want %d", res.LiveBytes, 2*objectSize)
	}
	if got, want := h.Pointer().Sub(h.Base()), heap.HeaderSize+2*objectSize; got != want {
		t.Fatalf("heap occupies %d bytes after compaction, want %d (leading padding + 2 objects)", got, want)
	}

	newA := heap.Address(value.UntagPointer(roots[0]))
	if got := newA.Sub(h.Base()); got != objectSize {
		t.Fatalf("root A relocated %d bytes past base, want %d (leading padding + A's own header)", got, objectSize)
	}
	newB := heap.Address(value.UntagPointer(h.Slots(newA, 0, 1)[0]))
	if got := newB.Sub(newA); got != objectSize {
		t.Fatalf("A's reference to B sits %d bytes after A's new address, want %d", got, objectSize)
	}
}

// TestCollectSweepsUnreachableBigObjects checks that a big object with
// no surviving reference is unmapped during the sweep, while a reachable
// one survives with its mark bit cleared for the next cycle.
func TestCollectSweepsUnreachableBigObjects(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	big := bigobj.NewTable(4)
	col := New(h, big, 1000)

	kept, err := big.Alloc(4096, 0, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := big.Alloc(4096, 0, 0); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	roots := []value.Value{ptrTo(kept.Body)}

	res := col.Full(roots)
	if res.BigObjectsFreed != 1 {
		t.Fatalf("BigObjectsFreed = %d, want 1", res.BigObjectsFreed)
	}
	big.SortByBody()
	if _, ok := big.Find(kept.Body); !ok {
		t.Fatal("reachable big object should survive")
	}
	if kept.Mark {
		t.Fatal("survivor's mark bit should be cleared after the cycle")
	}
}

// TestIncrementalMarkInterruptionLeavesHeapConsistent drives a mark
// phase with an already-elapsed deadline and checks the collector
// reports an interrupted cycle without having moved anything or left
// mark_next set on any header.
func TestIncrementalMarkInterruptionLeavesHeapConsistent(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	big := bigobj.NewTable(4)
	col := New(h, big, 0)

	var bodies []heap.Address
	for i := 0; i < 4; i++ {
		bodies = append(bodies, placeObject(h, 1))
	}
	for i := 0; i < 3; i++ {
		h.Slots(bodies[i], 0, 1)[0] = ptrTo(bodies[i+1])
	}
	roots := []value.Value{ptrTo(bodies[0])}
	before := h.Pointer()

	res := col.Incremental(roots, 0)
	if !res.Interrupted || res.Phase != Interrupted {
		t.Fatalf("Result = %+v, want an interrupted cycle", res)
	}
	if h.Pointer() != before {
		t.Fatalf("heap pointer moved during an interrupted mark: %v -> %v", before, h.Pointer())
	}
	h.ForEachHeader(func(addr heap.Address, hdr *heap.Header) bool {
		if hdr.MarkNext != 0 {
			t.Fatalf("header at %v left mark_next = %d after an interrupted cycle", addr, hdr.MarkNext)
		}
		return true
	})
}

// TestCompactionFlushesRelocationBufferMidPass forces the bounded
// relocation buffer (256 entries at this heap size) to fill, so a single
// compaction pass flushes it once mid-pass and once at the end, and checks
// every root still resolves to the correct, tightly packed address
// afterward.
func TestCompactionFlushesRelocationBufferMidPass(t *testing.T) {
	h := newTestHeap(t, heap.MinHeapSize)
	big := bigobj.NewTable(4)
	col := New(h, big, 1000)

	const n = 300 // comfortably more than this heap size's relocation buffer holds
	roots := make([]value.Value, n)
	for i := 0; i < n; i++ {
		placeObject(h, 0) // garbage, forces every live object below to shift
		live := placeObject(h, 0)
		roots[i] = ptrTo(live)
	}

	res := col.Full(roots)
	if res.Phase != Compacted {
		t.Fatalf("Phase = %v, want Compacted", res.Phase)
	}
	if got, want := h.Pointer().Sub(h.Base()), heap.HeaderSize+int64(n)*objectSize; got != want {
		t.Fatalf("heap occupies %d bytes, want %d", got, want)
	}
	for i, v := range roots {
		want := h.Base().Add((int64(i) + 1) * objectSize)
		if got := heap.Address(value.UntagPointer(v)); got != want {
			t.Fatalf("root %d relocated to %v, want %v", i, got, want)
		}
	}
}

// TestCompactInterruptionLeavesHeapConsistent forces compact to see an
// already-elapsed deadline on its very first iteration and checks that
// the pass backs out cleanly: the bump pointer lands back at the
// pre-compaction boundary rather than the slid-down position, so no
// still-live, not-yet-relocated object is ever offered to the allocator
// as free space, and every root still resolves to its (unmoved) object.
func TestCompactInterruptionLeavesHeapConsistent(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	big := bigobj.NewTable(4)
	col := New(h, big, 1000)

	placeObject(h, 0) // garbage, precedes both survivors
	a := placeObject(h, 1)
	b := placeObject(h, 0)
	h.Slots(a, 0, 1)[0] = ptrTo(b)
	roots := []value.Value{ptrTo(a)}

	if live, interrupted := col.mark(roots, 0, false); interrupted || live != 2*objectSize {
		t.Fatalf("mark(live=%d, interrupted=%v), want live=%d, interrupted=false", live, interrupted, 2*objectSize)
	}

	before := h.Pointer()
	if interrupted := col.compact(roots, platform.Now(), true); !interrupted {
		t.Fatal("compact did not report interrupted with an already-elapsed deadline")
	}
	if h.Pointer() != before {
		t.Fatalf("heap pointer = %v after an interrupted compact, want unchanged %v", h.Pointer(), before)
	}
	if got := heap.Address(value.UntagPointer(roots[0])); got != a {
		t.Fatalf("root A = %v after an interrupted compact, want unmoved %v", got, a)
	}
	if got := heap.Address(value.UntagPointer(h.Slots(a, 0, 1)[0])); got != b {
		t.Fatalf("A's reference to B = %v after an interrupted compact, want unmoved %v", got, b)
	}
}
