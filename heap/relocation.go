package heap

import "sort"

// ResetRelocations empties the relocation buffer without changing its
// capacity.
func (h *Heap) ResetRelocations() {
	h.relocs = h.relocs[:0]
}

// RelocationsFull reports whether the relocation buffer has reached its
// configured capacity and must be flushed ("When the relocation
// buffer fills mid-compaction, run a partial fixup").
func (h *Heap) RelocationsFull() bool {
	return len(h.relocs) >= h.relocsCap
}

// AppendRelocation records that the object at slot src moved down by diff
// slots. Entries must be appended in ascending src order.
func (h *Heap) AppendRelocation(src, diff uint32) {
	if h.RelocationsFull() {
		panic("heap: AppendRelocation on a full buffer; caller must flush first")
	}
	if n := len(h.relocs); n > 0 && h.relocs[n-1].Src > src {
		panic("heap: relocations must be appended in ascending src order")
	}
	h.relocs = append(h.relocs, Relocation{Src: src, Diff: diff})
}

// Relocations returns the relocation buffer's current contents.
func (h *Heap) Relocations() []Relocation {
	return h.relocs
}

// FindRelocation locates the relocation entry with the greatest Src <=
// slot. It returns ok=false if no such entry exists (the object was not
// moved by the relocations currently buffered). An empty buffer
// short-circuits to not-found rather than running the search.
func (h *Heap) FindRelocation(slot uint32) (diff uint32, ok bool) {
	if len(h.relocs) == 0 {
		return 0, false
	}
	i := sort.Search(len(h.relocs), func(i int) bool {
		return h.relocs[i].Src > slot
	})
	if i == 0 {
		return 0, false
	}
	return h.relocs[i-1].Diff, true
}

// ApplyRelocation maps an old body address to its new location using the
// current relocation buffer. Addresses the buffer doesn't cover are
// returned unchanged. body must be a body address (always SlotSize-aligned
// to base), never a header address: slots are counted in body-address
// units so that every slot index divides evenly.
func (h *Heap) ApplyRelocation(body Address) Address {
	slot := uint32(h.SlotIndex(body))
	diff, ok := h.FindRelocation(slot)
	if !ok {
		return body
	}
	return body.Add(-int64(diff) * SlotSize)
}
