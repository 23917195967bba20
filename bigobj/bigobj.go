// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bigobj tracks objects too large for the inline heap: each is
// mapped directly from the OS and never moved, and addresses are mapped
// back to their owning object via a sorted descriptor table searched by
// binary search.
package bigobj

import (
	"fmt"
	"sort"

	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
)

// Descriptor describes one big object.
type Descriptor struct {
	mapping    *platform.Mapping
	Body       heap.Address
	Size       int64
	ScanOffset int64
	ScanSize   int64
	Mark       bool
}

// Table is the big-object descriptor table. A native implementation
// would grow it downward from the inline heap's limit, living physically
// inside the same reservation; this implementation keeps descriptors in
// an ordinary Go slice instead (no reservation-colocation benefit applies
// to a managed-language allocation) but preserves the observable
// constraint the physical placement existed to enforce: the table may
// not grow past a configured entry budget, simulating the point at which
// it would collide with the inline bump pointer. See DESIGN.md.
type Table struct {
	entries    []*Descriptor
	maxEntries int
}

// NewTable creates a table that refuses to grow past maxEntries
// descriptors.
func NewTable(maxEntries int) *Table {
	return &Table{maxEntries: maxEntries}
}

// Len returns the number of live descriptors.
func (t *Table) Len() int { return len(t.entries) }

// WouldCollide reports whether adding one more descriptor would exceed
// the table's budget ("guards the downward-growing descriptor
// table against colliding with the inline pointer").
func (t *Table) WouldCollide() bool {
	return len(t.entries) >= t.maxEntries
}

// Alloc maps a new big object of the given body size and reference
// layout, and adds its descriptor to the table.
func (t *Table) Alloc(size, scanOffset, scanSize int64) (*Descriptor, error) {
	if t.WouldCollide() {
		return nil, fmt.Errorf("bigobj: descriptor table full (%d entries)", t.maxEntries)
	}
	m, err := platform.Reserve(int(size))
	if err != nil {
		return nil, err
	}
	d := &Descriptor{
		mapping:    m,
		Body:       heap.Address(m.Addr),
		Size:       size,
		ScanOffset: scanOffset,
		ScanSize:   scanSize,
	}
	t.entries = append(t.entries, d)
	return d, nil
}

// SortByBody sorts the table by body address, a precondition for Find's
// binary search ("sort big-object descriptors by body so that
// they can be looked up by binary search").
func (t *Table) SortByBody() {
	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].Body < t.entries[j].Body
	})
}

// Find returns the descriptor whose body range contains addr, if any.
// The table must have been sorted with SortByBody since the last Alloc.
func (t *Table) Find(addr heap.Address) (*Descriptor, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Body > addr
	})
	if i == 0 {
		return nil, false
	}
	d := t.entries[i-1]
	if addr < d.Body || addr >= d.Body.Add(d.Size) {
		return nil, false
	}
	return d, true
}

// ClearMarks clears every descriptor's mark bit, in preparation for a new
// mark phase.
func (t *Table) ClearMarks() {
	for _, d := range t.entries {
		d.Mark = false
	}
}

// ForEach calls fn for every live descriptor.
func (t *Table) ForEach(fn func(*Descriptor)) {
	for _, d := range t.entries {
		fn(d)
	}
}

// Sweep unmaps every unmarked descriptor and clears the mark bit on
// survivors: descriptors are sorted by (mark, body), the unmarked prefix
// is unmapped, and the table shrinks to just the survivors.
func (t *Table) Sweep() (freed int, err error) {
	sort.Slice(t.entries, func(i, j int) bool {
		if t.entries[i].Mark != t.entries[j].Mark {
			return !t.entries[i].Mark && t.entries[j].Mark
		}
		return t.entries[i].Body < t.entries[j].Body
	})
	i := 0
	for i < len(t.entries) && !t.entries[i].Mark {
		if e := t.entries[i].mapping.Release(); e != nil && err == nil {
			err = e
		}
		i++
	}
	freed = i
	survivors := t.entries[i:]
	for _, d := range survivors {
		d.Mark = false
	}
	t.entries = append(t.entries[:0:0], survivors...)
	return freed, err
}

// ReleaseAll unmaps every remaining big object, used during context
// teardown: every OS mapping this table owns has exactly one release
// site, here.
func (t *Table) ReleaseAll() error {
	var firstErr error
	for _, d := range t.entries {
		if err := d.mapping.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.entries = nil
	return firstErr
}

// Bytes returns a slice view of the body's bytes, for scanning/copying.
func (d *Descriptor) Bytes() []byte {
	return d.mapping.Bytes
}
