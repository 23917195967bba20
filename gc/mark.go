package gc

import (
	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/value"
)

// workItem is one pending entry on the mark worklist: either an inline
// object (by body address, despite the field's name) or a big object
// (by descriptor). The
// worklist is an explicit Go slice rather than being threaded through
// the header's MarkNext field (see heap.Header's doc comment and
// DESIGN.md), which frees it from having to fit in 16 unused header bits.
type workItem struct {
	header heap.Address
	big    *bigobj.Descriptor
}

// mark performs the root-seeded reachability scan: for every
// pointer-class Value reachable from roots, classify its address as
// either an inline heap body, a big-object body, or neither (permanent,
// non-heap data the collector never touches), and drain a worklist of
// newly-discovered objects until nothing new is found or the deadline
// expires.
//
// Pointer validity: a candidate address is trusted as an
// object's body start only if it falls in [heap.Base(), heap.Pointer())
// or matches a big-object descriptor's body — the runtime never
// produces interior pointers (see spec Non-goals), so no "round down to
// object start" step is needed; the address a pointer carries already
// is an object's body address.
func (c *Collector) mark(roots []value.Value, deadline platform.Cycles, hasDeadline bool) (live int64, interrupted bool) {
	h := c.Heap
	h.ResetBitmap()
	c.BigObjects.ClearMarks()
	c.BigObjects.SortByBody()

	var worklist []workItem

	add := func(v value.Value) {
		if !value.IsPointer(v) {
			return
		}
		addr := heap.Address(value.UntagPointer(v))
		if addr >= h.Base() && addr < h.Pointer() {
			if h.TestMark(addr) {
				return
			}
			h.SetMark(addr)
			hdr := h.HeaderAt(heap.AddrOfHeader(addr))
			live += heap.HeaderSize + int64(hdr.Size)*heap.WordSize
			hdr.MarkNext = 1
			worklist = append(worklist, workItem{header: addr})
			return
		}
		if d, ok := c.BigObjects.Find(addr); ok {
			if d.Mark {
				return
			}
			d.Mark = true
			live += d.Size
			worklist = append(worklist, workItem{big: d})
		}
	}

	for _, v := range roots {
		add(v)
	}

	for len(worklist) > 0 {
		if hasDeadline && platform.Now() >= deadline {
			interrupted = true
			break
		}
		n := len(worklist) - 1
		item := worklist[n]
		worklist = worklist[:n]

		if item.big != nil {
			for _, v := range item.big.Slots(item.big.ScanOffset, item.big.ScanSize) {
				add(v)
			}
			continue
		}
		hdr := h.HeaderAt(heap.AddrOfHeader(item.header))
		hdr.MarkNext = 0
		for _, v := range h.Slots(item.header, int64(hdr.ScanOffset), int64(hdr.ScanSize)) {
			add(v)
		}
	}

	if interrupted {
		// Property 2 holds mark_next at zero outside a
		// collection even when a cycle is abandoned early: clear the
		// scratch bit on anything still queued rather than leaving it
		// set for an object the next cycle will rediscover from
		// scratch anyway.
		for _, item := range worklist {
			if item.big == nil {
				h.HeaderAt(heap.AddrOfHeader(item.header)).MarkNext = 0
			}
		}
	}
	return live, interrupted
}
