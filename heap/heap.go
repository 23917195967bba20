// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the inline heap's layout and metadata: headers,
// the bump pointer, the relocation buffer, and the mark bitmap.
package heap

import (
	"fmt"
	"unsafe"

	"github.com/shaurz/ome/platform"
)

// Address is an address into the inline heap's backing mapping. It exists,
// rather than a bare uintptr, so every offset computation reads as
// h.base.Add(...) / x.Sub(h.base) instead of raw pointer arithmetic.
type Address uintptr

func (a Address) Add(n int64) Address { return Address(int64(a) + n) }
func (a Address) Sub(b Address) int64 { return int64(a) - int64(b) }

// HeaderSize is the fixed size, in bytes, of every inline object header.
const HeaderSize = 8

// SlotSize is the granularity of the bitmap and the relocation buffer's
// src/diff units (spec glossary: "Slot — a 16-byte aligned index unit").
const SlotSize = 16

// HeapAlignment is the alignment every object body must satisfy.
const HeapAlignment = SlotSize

// Header is the 8-byte metadata word immediately preceding every inline
// object body. MarkNext is valid only while the collector's mark phase
// has this header queued; it is always zero outside a collection. The
// mark worklist itself lives in an explicit slice (see package gc) rather
// than overlaid on these bits, so MarkNext stays a plain 16-bit
// bookkeeping field set non-zero while an object is queued and cleared
// when the collection ends.
type Header struct {
	Size       uint16 // body size in words; 0 means a padding-only slot
	ScanOffset uint16 // word offset into the body where references start
	ScanSize   uint16 // number of reference-shaped words to scan
	MarkNext   uint16 // collector scratch; non-zero while queued for marking
}

// Relocation describes how far one object moved during a compaction pass.
// Src is the pre-compaction slot index of the object; Diff is the
// slot-distance it moved downward. Entries are appended in ascending Src
// order.
type Relocation struct {
	Src  uint32
	Diff uint32
}

// Heap owns the inline live region, its bump pointer, and its metadata.
type Heap struct {
	mapping      *platform.Mapping
	reservedSize int64

	base    Address // start of the live region; never changes after SetHeapBase
	pointer Address // bump pointer: next free byte
	limit   Address // end of the live region

	relocs    []Relocation
	relocsCap int

	bitmap     []uint64 // one bit per SlotSize-byte slot from base to base+size, as last passed to SetHeapBase
	bitmapBits int64
}

// MinHeapSize is the smallest reservation New accepts; a smaller
// reservation at startup is a fatal condition.
const MinHeapSize = 64 * 1024

// New reserves a block of OS memory and lays out a heap of the requested
// usable size within it. reservedSize bounds how far ResizeHeap may later
// grow the live region.
func New(reservedSize int64) (*Heap, error) {
	if reservedSize < MinHeapSize {
		return nil, fmt.Errorf("heap: reservation %d below MinHeapSize %d", reservedSize, MinHeapSize)
	}
	m, err := platform.Reserve(int(reservedSize))
	if err != nil {
		return nil, err
	}
	h := &Heap{mapping: m, reservedSize: int64(m.Size())}
	h.SetHeapBase(Address(m.Addr), reservedSize)
	return h, nil
}

// relocationSize is sizeof(Relocation) in bytes, used to size the
// relocation buffer from a fraction of the heap's usable bytes.
const relocationSize = 8

// SetHeapBase is the master sizing routine. It aligns size
// down to HeapAlignment, sizes the relocation buffer and mark bitmap from
// it, and carves their byte size off the high end: limit sits that many
// bytes below base+size. pointer is set to base unless it already lies in
// [base, limit]. It may be called again (by
// ResizeHeap) to re-derive metadata sizes for a larger usable size within
// the same reservation.
func (h *Heap) SetHeapBase(base Address, size int64) {
	size -= size % HeapAlignment

	relocsCap := int((size / 32) / relocationSize)
	if relocsCap < 1 {
		relocsCap = 1
	}
	bitmapBits := (size + SlotSize - 1) / SlotSize
	bitmapWords := (bitmapBits + 63) / 64
	metadata := int64(relocsCap)*relocationSize + bitmapWords*8

	h.base = base
	h.limit = base.Add(size - metadata)
	if h.pointer == 0 || h.pointer < h.base || h.pointer > h.limit {
		h.pointer = base
	}
	h.relocs = make([]Relocation, 0, relocsCap)
	h.relocsCap = relocsCap
	h.bitmapBits = bitmapBits
	h.bitmap = make([]uint64, bitmapWords)
}

// ResizeHeap expands the live region to newSize bytes, provided that stays
// within the original OS reservation. It preserves the current pointer
// offset.
func (h *Heap) ResizeHeap(newSize int64) error {
	if newSize <= h.limit.Sub(h.base) {
		return fmt.Errorf("heap: ResizeHeap(%d) is not larger than current size %d", newSize, h.limit.Sub(h.base))
	}
	if newSize > h.reservedSize {
		return fmt.Errorf("heap: ResizeHeap(%d) exceeds reservation %d", newSize, h.reservedSize)
	}
	offset := h.pointer.Sub(h.base)
	h.SetHeapBase(h.base, newSize)
	h.pointer = h.base.Add(offset)
	return nil
}

// Base returns the address of the first byte of the live region.
func (h *Heap) Base() Address { return h.base }

// Pointer returns the current bump pointer.
func (h *Heap) Pointer() Address { return h.pointer }

// SetPointer is used by the collector to rewind the bump pointer after
// compaction frees the tail of the heap.
func (h *Heap) SetPointer(p Address) { h.pointer = p }

// Limit returns the end of the live region (start of conceptual metadata).
func (h *Heap) Limit() Address { return h.limit }

// ReservedSize returns the size, in bytes, of the underlying OS mapping.
func (h *Heap) ReservedSize() int64 { return h.reservedSize }

// Size returns the current usable live-region size in bytes.
func (h *Heap) Size() int64 { return h.limit.Sub(h.base) }

// FreeBytes returns the number of unallocated bytes between pointer and
// limit.
func (h *Heap) FreeBytes() int64 { return h.limit.Sub(h.pointer) }

// Release returns the heap's OS mapping.
func (h *Heap) Release() error { return h.mapping.Release() }

// bodyPtr returns a Go pointer to the byte at address a within the
// mapping, for direct reads/writes of object bodies.
func (h *Heap) bodyPtr(a Address) unsafe.Pointer {
	off := a.Sub(h.base)
	if off < 0 || off >= int64(len(h.mapping.Bytes)) {
		panic("heap: address out of mapped range")
	}
	return unsafe.Pointer(&h.mapping.Bytes[off])
}

// HeaderAt returns the header stored at address a.
func (h *Heap) HeaderAt(a Address) *Header {
	return (*Header)(h.bodyPtr(a))
}

// Bytes returns a slice view of n bytes of the body starting at a, for
// raw copies during compaction.
func (h *Heap) Bytes(a Address, n int64) []byte {
	off := a.Sub(h.base)
	return h.mapping.Bytes[off : off+n]
}
