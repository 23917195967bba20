package heap

// ForEachHeader walks every header from base to the bump pointer,
// including zero-sized padding headers, calling fn with each header's
// address. If fn returns false, iteration stops early.
func (h *Heap) ForEachHeader(fn func(addr Address, hdr *Header) bool) {
	a := h.base
	for a < h.pointer {
		hdr := h.HeaderAt(a)
		if !fn(a, hdr) {
			return
		}
		a = AddrOfBody(a).Add(int64(hdr.Size) * WordSize)
	}
}

// ZeroTail zeros every byte from the bump pointer to limit. Called after a
// full compaction pass completes ("Zero the now-free tail of
// the inline heap").
func (h *Heap) ZeroTail() {
	b := h.Bytes(h.pointer, h.limit.Sub(h.pointer))
	for i := range b {
		b[i] = 0
	}
}
