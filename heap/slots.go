package heap

import (
	"unsafe"

	"github.com/shaurz/ome/value"
)

// Slots returns a live, mutable view of count Value-sized words starting
// wordOffset words into the body at address body. The collector uses this
// both to read an object's references during marking and to rewrite them
// in place during compaction's reference fixup pass.
func (h *Heap) Slots(body Address, wordOffset, count int64) []value.Value {
	if count == 0 {
		return nil
	}
	off := body.Sub(h.base) + wordOffset*WordSize
	return unsafe.Slice((*value.Value)(unsafe.Pointer(&h.mapping.Bytes[off])), count)
}
