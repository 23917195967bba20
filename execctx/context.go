// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package execctx implements the per-thread execution context: the
// operand stack that roots the collector, the traceback ring that shares
// its backing region, and the Heap/big-object-table pair the mutator
// allocates from.
package execctx

import (
	"unsafe"

	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/traceback"
	"github.com/shaurz/ome/value"
)

// GCStats accumulates collector diagnostics for a context, printed by
// cmd/ome after a scenario succeeds.
type GCStats struct {
	Cycles          int
	Interruptions   int
	CompactsSkipped int
	LiveBytes       int64
	BigObjectsFreed int
	LastDuration    platform.Cycles
}

// Context is one thread's execution state. The operand
// stack grows upward from the low end of region; the traceback ring
// grows downward from the high end. Because they share one backing
// allocation, the traceback ring's growth is bounded by however much of
// region the operand stack currently occupies, and vice versa.
type Context struct {
	region         []byte
	stackPointer   int64 // bytes of region used by the operand stack, from the low end
	tracebackCount int64 // number of uint32 entries currently on the traceback ring

	Heap       *heap.Heap
	BigObjects *bigobj.Table
	Table      traceback.Table

	Stats   GCStats
	Started platform.Cycles
}

// New creates a context with the given combined stack/traceback region
// size, in bytes.
func New(regionBytes int, h *heap.Heap, big *bigobj.Table, table traceback.Table) *Context {
	if regionBytes <= 0 {
		panic("execctx: region size must be positive")
	}
	return &Context{
		region:     make([]byte, regionBytes),
		Heap:       h,
		BigObjects: big,
		Table:      table,
		Started:    platform.Now(),
	}
}

// tracebackStart returns the byte offset at which the traceback ring
// currently begins (i.e. the address of the most-recently-pushed entry).
func (c *Context) tracebackStart() int64 {
	return int64(len(c.region)) - c.tracebackCount*4
}

// PushFrame grows the operand stack by slotCount Value-sized slots.
func (c *Context) PushFrame(slotCount int) {
	next := c.stackPointer + int64(slotCount)*value.WordSize
	if next > c.tracebackStart() {
		panic("execctx: operand stack collided with the traceback ring")
	}
	c.stackPointer = next
}

// PopFrame shrinks the operand stack by slotCount Value-sized slots.
func (c *Context) PopFrame(slotCount int) {
	next := c.stackPointer - int64(slotCount)*value.WordSize
	if next < 0 {
		panic("execctx: operand stack underflow")
	}
	c.stackPointer = next
}

// StackDepth returns the number of Value slots currently pushed.
func (c *Context) StackDepth() int {
	return int(c.stackPointer / value.WordSize)
}

// Roots returns the live operand-stack slice, [stack_base, stack_pointer)
// in spec terms — exactly the root set the mark phase scans.
func (c *Context) Roots() []value.Value {
	n := c.stackPointer / value.WordSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*value.Value)(unsafe.Pointer(&c.region[0])), n)
}

// Get returns the Value at operand-stack slot i (0 is the bottom of the
// stack).
func (c *Context) Get(i int) value.Value {
	return c.Roots()[i]
}

// Set stores v at operand-stack slot i.
func (c *Context) Set(i int, v value.Value) {
	c.Roots()[i] = v
}

// Push grows the stack by one slot and stores v there.
func (c *Context) Push(v value.Value) {
	c.PushFrame(1)
	c.Set(c.StackDepth()-1, v)
}

// Pop removes and returns the top operand-stack Value.
func (c *Context) Pop() value.Value {
	v := c.Get(c.StackDepth() - 1)
	c.PopFrame(1)
	return v
}

// AppendTraceback pushes a call-site entry id onto the traceback ring.
// This is best-effort: if the ring has grown down far enough to meet the
// operand stack, the push is silently dropped rather than failing or
// corrupting the stack.
func (c *Context) AppendTraceback(id uint32) {
	next := c.tracebackCount + 1
	start := int64(len(c.region)) - next*4
	if start < c.stackPointer {
		return
	}
	byteOrder.PutUint32(c.region[start:start+4], id)
	c.tracebackCount = next
}

// ResetTraceback empties the traceback ring. Called at each re-entry from
// user code.
func (c *Context) ResetTraceback() {
	c.tracebackCount = 0
}

// TracebackEntries returns the currently recorded call-site ids, newest
// first.
func (c *Context) TracebackEntries() []uint32 {
	n := c.tracebackCount
	ids := make([]uint32, n)
	start := c.tracebackStart()
	for i := int64(0); i < n; i++ {
		ids[i] = byteOrder.Uint32(c.region[start+i*4 : start+i*4+4])
	}
	return ids
}

// Close tears the context down: every big object is unmapped, then the
// heap's own reservation ("destroyed at thread end, unmapping
// all big-object bodies then the reserved range").
func (c *Context) Close() error {
	if err := c.BigObjects.ReleaseAll(); err != nil {
		return err
	}
	return c.Heap.Release()
}
