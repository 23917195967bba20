package gc

import (
	"math/bits"

	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/value"
)

// liveRef tracks one live object across a compaction pass: its fixed
// reference-scan window, and the body address fixups should currently
// use (its original address until compactPlace moves it, then its new
// one). Big objects never move, so cur stays the descriptor's own body
// address for its whole lifetime.
type liveRef struct {
	big        *bigobj.Descriptor
	cur        heap.Address
	scanOffset int64
	scanSize   int64
}

// compact performs the sliding compaction pass: every
// surviving inline object, in ascending address order, is copied down to
// the lowest free position, leaving no gaps; every reference to a moved
// object — on the operand stack and inside every other surviving
// object's scan window, inline or big — is rewritten to the object's new
// address via the bounded relocation buffer, flushed (applied and
// cleared) whenever it fills. A mid-pass flush happens before the next
// object is copied and only translates addresses below that object's
// body, so references to objects not yet moved are left as they are.
//
// Padding headers exist only to satisfy alignment and carry no content;
// compaction does not try to preserve a source object's original
// padding, it lets heap.NeedsPadding/WritePadding regenerate whatever
// padding the new position requires.
//
// A deadline check runs before each object is placed. On expiry, compact
// flushes the relocation buffer (bringing every live reference, moved or
// not, to a fully fixed-up state) and abandons the pass: refs[i:] are
// still at their pre-compaction addresses, so the bump pointer is set
// back to compactOldEnd rather than left at its slid-down position,
// which would otherwise offer the space those unmoved survivors occupy
// to the next allocation. The reclaimed space from the objects already
// moved this pass is given up; a later cycle's compact starts over and
// recovers it.
func (c *Collector) compact(roots []value.Value, deadline platform.Cycles, hasDeadline bool) (interrupted bool) {
	h := c.Heap
	c.compactOldEnd = h.Pointer()
	refs := c.buildLiveRefs()

	h.ResetRelocations()
	h.SetPointer(h.Base())

	for i := range refs {
		r := &refs[i]
		if hasDeadline && platform.Now() >= deadline {
			end := c.compactOldEnd
			if r.big == nil {
				end = r.cur
			}
			c.flush(refs, roots, end)
			h.SetPointer(c.compactOldEnd)
			return true
		}
		if r.big != nil {
			continue
		}
		srcBody := r.cur
		if h.RelocationsFull() {
			c.flush(refs, roots, srcBody)
		}
		srcHeader := heap.AddrOfHeader(srcBody)
		oldSlot := uint32(h.SlotIndex(srcBody))
		newBody := c.compactPlace(srcHeader)
		if newBody != srcBody {
			diff := oldSlot - uint32(h.SlotIndex(newBody))
			h.AppendRelocation(oldSlot, diff)
		}
		r.cur = newBody
	}
	c.flush(refs, roots, c.compactOldEnd)
	h.ZeroTail()
	return false
}

// compactPlace copies the object whose header is at srcHeader to the
// current bump pointer (inserting alignment padding first if needed)
// and returns its new body address. It reuses the same alignment
// machinery PlaceObject uses for fresh allocations.
func (c *Collector) compactPlace(srcHeader heap.Address) heap.Address {
	h := c.Heap
	if h.NeedsPadding() {
		h.WritePadding()
	}
	destHeader := h.Pointer()
	hdr := h.HeaderAt(srcHeader)
	total := int64(heap.HeaderSize) + int64(hdr.Size)*heap.WordSize
	if destHeader != srcHeader {
		copy(h.Bytes(destHeader, total), h.Bytes(srcHeader, total))
	}
	h.SetPointer(destHeader.Add(total))
	return heap.AddrOfBody(destHeader)
}

// buildLiveRefs walks the mark bitmap and the big-object table once,
// after mark and the big-object sweep complete and before any object has
// moved, capturing each survivor's fixed scan window. The sweep has
// already unmapped every unmarked big object and cleared the marks of the
// rest, so every descriptor still in the table is a survivor. Bitmap bits are body-address
// indexed (see heap.SetMark), so a word-parallel scan in ascending order
// yields exactly the ascending-address traversal sliding compaction
// requires.
func (c *Collector) buildLiveRefs() []liveRef {
	h := c.Heap
	var refs []liveRef
	words := h.Bitmap()
	for wi, w := range words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			w &= w - 1
			slot := int64(wi)*64 + int64(bit)
			body := h.AddressOfSlot(slot)
			hdr := h.HeaderAt(heap.AddrOfHeader(body))
			refs = append(refs, liveRef{
				cur:        body,
				scanOffset: int64(hdr.ScanOffset),
				scanSize:   int64(hdr.ScanSize),
			})
		}
	}
	c.BigObjects.ForEach(func(d *bigobj.Descriptor) {
		refs = append(refs, liveRef{
			big:        d,
			cur:        d.Body,
			scanOffset: d.ScanOffset,
			scanSize:   d.ScanSize,
		})
	})
	return refs
}

// flush applies every relocation currently buffered to the operand stack
// and to every surviving object's reference-shaped slots, then empties
// the buffer. Only inline addresses below end are translated: objects at
// or above end have not moved yet in this pass. Already-fixed-up (low, compacted) addresses never
// spuriously match a later batch's relocation entries: dest always
// trails far behind src, so every Src value buffered in one batch is
// higher than any address a prior batch already relocated to.
func (c *Collector) flush(refs []liveRef, roots []value.Value, end heap.Address) {
	for i, v := range roots {
		if value.IsPointer(v) {
			roots[i] = c.fixup(v, end)
		}
	}
	for i := range refs {
		r := &refs[i]
		var slots []value.Value
		if r.big != nil {
			slots = r.big.Slots(r.scanOffset, r.scanSize)
		} else {
			slots = c.Heap.Slots(r.cur, r.scanOffset, r.scanSize)
		}
		for j, v := range slots {
			if value.IsPointer(v) {
				slots[j] = c.fixup(v, end)
			}
		}
	}
	c.Heap.ResetRelocations()
}

// fixup translates a single pointer-class Value through the current
// relocation buffer, preserving its tag. Big-object and non-heap
// pointers are returned unchanged since only inline addresses ever move,
// and so are inline addresses at or above end.
func (c *Collector) fixup(v value.Value, end heap.Address) value.Value {
	addr := heap.Address(value.UntagPointer(v))
	if addr < c.Heap.Base() || addr >= end {
		return v
	}
	newAddr := c.Heap.ApplyRelocation(addr)
	if newAddr == addr {
		return v
	}
	return value.TagPointer(value.GetTag(v), uintptr(newAddr))
}
