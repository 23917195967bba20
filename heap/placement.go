package heap

// WordSize is the size in bytes of one Value-sized word. Header.Size,
// Header.ScanOffset, and Header.ScanSize all count in this unit.
const WordSize = 8

// NeedsPadding reports whether placing a header at the current pointer
// would land it somewhere other than the one valid residue: a header
// always immediately precedes its body, so (header address + HeaderSize)
// mod HeapAlignment must be zero.
func (h *Heap) NeedsPadding() bool {
	return h.pointer.Sub(h.base)%HeapAlignment != HeaderSize
}

// WritePadding writes a zero-sized padding header at the current pointer
// and advances past it. Callers must check NeedsPadding first.
func (h *Heap) WritePadding() {
	*h.HeaderAt(h.pointer) = Header{}
	h.pointer = h.pointer.Add(HeaderSize)
}

// PlaceObject writes a new header for an object of the given body size (in
// bytes, already rounded by the caller to a multiple of WordSize) at the
// bump pointer, inserting an alignment padding header first if needed. It
// returns the body address. The caller is responsible for having verified
// FreeBytes() covers bodyBytes+2*HeaderSize before calling.
func (h *Heap) PlaceObject(bodyBytes int64, scanOffset, scanSize int64) Address {
	if bodyBytes%WordSize != 0 {
		panic("heap: PlaceObject body size must be a multiple of WordSize")
	}
	if h.NeedsPadding() {
		h.WritePadding()
	}
	headerAddr := h.pointer
	*h.HeaderAt(headerAddr) = Header{
		Size:       uint16(bodyBytes / WordSize),
		ScanOffset: uint16(scanOffset),
		ScanSize:   uint16(scanSize),
	}
	bodyAddr := headerAddr.Add(HeaderSize)
	h.pointer = bodyAddr.Add(bodyBytes)
	return bodyAddr
}

// AddrOfHeader returns the header address for an object body address.
func AddrOfHeader(body Address) Address { return body.Add(-HeaderSize) }

// AddrOfBody returns the body address for an object header address.
func AddrOfBody(header Address) Address { return header.Add(HeaderSize) }
