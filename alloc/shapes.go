package alloc

import (
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/value"
)

// AllocateSlots allocates an object whose entire body is n Value-sized
// reference slots (e.g. the backing store of a tuple or an object's
// instance variables), all scanned by the collector.
func (a *Allocator) AllocateSlots(tag value.Tag, n int64) (value.Value, error) {
	body, err := a.Allocate(n*heap.WordSize, 0, n)
	if err != nil {
		return 0, err
	}
	return value.TagPointer(tag, uintptr(body)), nil
}

// AllocateArray is AllocateSlots under the name generated code uses for
// a fixed-length array of Values.
func (a *Allocator) AllocateArray(tag value.Tag, elementCount int64) (value.Value, error) {
	return a.AllocateSlots(tag, elementCount)
}

// AllocateData allocates an object whose body is byteLen bytes of
// unscanned raw data (a byte string, a boxed number's digits, ...),
// rounded up to a whole number of words.
func (a *Allocator) AllocateData(tag value.Tag, byteLen int64) (value.Value, error) {
	words := (byteLen + heap.WordSize - 1) / heap.WordSize
	body, err := a.Allocate(words*heap.WordSize, 0, 0)
	if err != nil {
		return 0, err
	}
	return value.TagPointer(tag, uintptr(body)), nil
}

// AllocateString is AllocateData under the name generated code uses for
// a UTF-8 byte string body.
func (a *Allocator) AllocateString(tag value.Tag, byteLen int64) (value.Value, error) {
	return a.AllocateData(tag, byteLen)
}
