package bigobj

import (
	"unsafe"

	"github.com/shaurz/ome/value"
)

// Slots returns a live, mutable view of count Value-sized words starting
// wordOffset words into the descriptor's body, for the same read-during-
// mark, rewrite-during-fixup uses as heap.Heap.Slots.
func (d *Descriptor) Slots(wordOffset, count int64) []value.Value {
	if count == 0 {
		return nil
	}
	const wordSize = 8
	off := wordOffset * wordSize
	return unsafe.Slice((*value.Value)(unsafe.Pointer(&d.mapping.Bytes[off])), count)
}
