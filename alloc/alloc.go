// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alloc implements the mutator-facing allocation API: an
// escalation ladder (incremental collect, resize, full collect, abort)
// sitting in front of heap.Heap.PlaceObject and
// bigobj.Table.Alloc, plus the shape-specific helpers generated code
// calls (data, slot, array, and string bodies).
package alloc

import (
	"fmt"

	"github.com/shaurz/ome/execctx"
	"github.com/shaurz/ome/gc"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/value"
)

// Allocator drives one context's allocation ladder. A context owns
// exactly one Allocator for its lifetime.
type Allocator struct {
	Ctx *execctx.Context
	GC  *gc.Collector

	// LatencyMs bounds the mark and compact phases of the incremental
	// collect step; the later full-collect step runs uncapped.
	LatencyMs int

	// InlineThreshold is the largest body size, in bytes, placed in the
	// inline heap; anything larger goes to the big-object table, where it
	// is never copied.
	InlineThreshold int64
}

// New builds an Allocator over ctx's heap and big-object table.
func New(ctx *execctx.Context, latencyMs int, cyclesPerMs platform.Cycles, inlineThreshold int64) *Allocator {
	return &Allocator{
		Ctx:             ctx,
		GC:              gc.New(ctx.Heap, ctx.BigObjects, cyclesPerMs),
		LatencyMs:       latencyMs,
		InlineThreshold: inlineThreshold,
	}
}

// Allocate places an object of the given body size and reference-scan
// window, running the full escalation ladder if the inline heap is
// under pressure. It returns the body address; callers that need a
// tagged Value should wrap it with value.TagPointer, or use one of the
// shape-specific helpers below.
func (a *Allocator) Allocate(bodyBytes, scanOffset, scanSize int64) (heap.Address, error) {
	if bodyBytes > a.InlineThreshold {
		return a.allocateBig(bodyBytes, scanOffset, scanSize)
	}
	return a.allocateInline(bodyBytes, scanOffset, scanSize)
}

// fits reports whether the inline heap has enough free space to place
// an object of bodyBytes, accounting for the worst-case leading
// alignment padding.
func fits(h *heap.Heap, bodyBytes int64) bool {
	return h.FreeBytes() >= bodyBytes+2*heap.HeaderSize
}

func (a *Allocator) allocateInline(bodyBytes, scanOffset, scanSize int64) (heap.Address, error) {
	h := a.Ctx.Heap

	if fits(h, bodyBytes) {
		return h.PlaceObject(bodyBytes, scanOffset, scanSize), nil
	}

	a.runCycle(a.GC.Incremental(a.Ctx.Roots(), a.LatencyMs))
	if fits(h, bodyBytes) {
		return h.PlaceObject(bodyBytes, scanOffset, scanSize), nil
	}

	if h.Size() < h.ReservedSize() {
		if err := h.ResizeHeap(nextHeapSize(h.Size(), h.ReservedSize())); err == nil && fits(h, bodyBytes) {
			return h.PlaceObject(bodyBytes, scanOffset, scanSize), nil
		}
	}

	a.runCycle(a.GC.Full(a.Ctx.Roots()))
	if fits(h, bodyBytes) {
		return h.PlaceObject(bodyBytes, scanOffset, scanSize), nil
	}

	return 0, fmt.Errorf("alloc: heap exhausted requesting %d bytes after a full collection", bodyBytes)
}

func (a *Allocator) allocateBig(bodyBytes, scanOffset, scanSize int64) (heap.Address, error) {
	big := a.Ctx.BigObjects
	if !big.WouldCollide() {
		if d, err := big.Alloc(bodyBytes, scanOffset, scanSize); err == nil {
			return d.Body, nil
		}
	}

	a.runCycle(a.GC.Full(a.Ctx.Roots()))
	if d, err := big.Alloc(bodyBytes, scanOffset, scanSize); err == nil {
		return d.Body, nil
	}

	return 0, fmt.Errorf("alloc: big-object table exhausted requesting %d bytes", bodyBytes)
}

// nextHeapSize doubles the live region, capped at the original OS
// reservation ("grow within the reservation").
func nextHeapSize(cur, max int64) int64 {
	next := cur * 2
	if next > max {
		next = max
	}
	return next
}

func (a *Allocator) runCycle(res gc.Result) {
	stats := &a.Ctx.Stats
	stats.Cycles++
	stats.LiveBytes = res.LiveBytes
	stats.BigObjectsFreed += res.BigObjectsFreed
	if res.Interrupted {
		stats.Interruptions++
	}
	if res.Phase == gc.SkipCompact {
		stats.CompactsSkipped++
	}
	stats.LastDuration = platform.Now() - a.Ctx.Started
}
