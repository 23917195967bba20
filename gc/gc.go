// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gc implements the collector: a precise, root-seeded mark phase
// — a worklist drained against a visited-set bitmap — followed by a
// sliding compaction pass and a big-object sweep, rewriting every
// reference to a moved object as it goes.
package gc

import (
	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/value"
)

// Phase names the collector's state machine.
type Phase int

const (
	Idle Phase = iota
	Marking
	Marked
	SkipCompact
	Compacting
	Compacted
	Interrupted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Marking:
		return "marking"
	case Marked:
		return "marked"
	case SkipCompact:
		return "skip-compact"
	case Compacting:
		return "compacting"
	case Compacted:
		return "compacted"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one Cycle.
type Result struct {
	Phase           Phase
	LiveBytes       int64
	BigObjectsFreed int
	Interrupted     bool
}

// Collector holds configuration, its current Phase, and per-pass
// compaction bookkeeping; the heap and big-object table it operates on
// are passed in by the caller (typically an *execctx.Context).
type Collector struct {
	Heap       *heap.Heap
	BigObjects *bigobj.Table

	// CyclesPerMs is used to translate a latency budget, in milliseconds,
	// into an absolute deadline understood by platform.Now.
	CyclesPerMs platform.Cycles

	Phase Phase

	// compactOldEnd is the heap's occupied-region boundary as it stood
	// the instant compaction began (before the bump pointer was rewound
	// to base). The final flush uses it to tell an inline address from a
	// big-object or non-heap one, and an interrupted pass restores the
	// bump pointer to it.
	compactOldEnd heap.Address
}

// New creates a collector over the given heap and big-object table.
func New(h *heap.Heap, big *bigobj.Table, cyclesPerMs platform.Cycles) *Collector {
	return &Collector{Heap: h, BigObjects: big, CyclesPerMs: cyclesPerMs}
}

// Incremental runs one deadline-bounded cycle: mark, and if it completes
// within the budget, the big-object sweep and (unless live bytes exceed
// half the heap) compaction, itself bounded by the same deadline. Either
// phase can interrupt the cycle; compact yields through the same
// relocation-buffer flush it uses for an ordinary mid-pass fixup, so an
// interrupted compaction still leaves every live reference correctly
// patched.
func (c *Collector) Incremental(roots []value.Value, latencyMs int) Result {
	deadline := platform.Deadline(latencyMs, c.CyclesPerMs)
	return c.cycle(roots, deadline, true)
}

// Full runs a cycle with no deadline: mark always completes. This backs
// the allocation-escalation ladder's "full collect" step.
func (c *Collector) Full(roots []value.Value) Result {
	return c.cycle(roots, 0, false)
}

func (c *Collector) cycle(roots []value.Value, deadline platform.Cycles, hasDeadline bool) Result {
	c.Phase = Marking
	live, interrupted := c.mark(roots, deadline, hasDeadline)
	if interrupted {
		c.Phase = Idle
		return Result{Phase: Interrupted, LiveBytes: live, Interrupted: true}
	}
	c.Phase = Marked

	freed, _ := c.BigObjects.Sweep()

	if live > c.Heap.Size()/2 {
		c.Phase = Idle
		return Result{Phase: SkipCompact, LiveBytes: live, BigObjectsFreed: freed}
	}

	c.Phase = Compacting
	if c.compact(roots, deadline, hasDeadline) {
		c.Phase = Idle
		return Result{Phase: Interrupted, LiveBytes: live, BigObjectsFreed: freed, Interrupted: true}
	}
	c.Phase = Idle
	return Result{Phase: Compacted, LiveBytes: live, BigObjectsFreed: freed}
}
