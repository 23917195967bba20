package main

import (
	"fmt"

	"github.com/shaurz/ome/alloc"
	"github.com/shaurz/ome/execctx"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/value"
)

// addrOf returns the heap body address a pointer-class Value refers to.
func addrOf(v value.Value) heap.Address {
	return heap.Address(value.UntagPointer(v))
}

type scenario struct {
	name  string
	short string
	run   func(ctx *execctx.Context, al *alloc.Allocator) error
}

var scenarios = []scenario{
	{"stress", "allocate a large number of short-lived objects", runStress},
	{"compact", "drop references and confirm compaction reclaims the dead objects", runCompact},
	{"bigobjects", "build a graph of big objects and confirm survivors outlast a collection", runBigObjects},
	{"spill", "allocate enough live objects to spill the relocation buffer mid-compaction", runSpill},
	{"deadline", "run an incremental collection under a near-zero latency budget", runDeadline},
	{"arith", "exercise overflow-checked small-integer arithmetic", runArith},
}

func fail(ctx *execctx.Context, id uint32, v value.Value, format string, args ...interface{}) error {
	ctx.AppendTraceback(id)
	return scenarioError{msg: fmt.Sprintf(format, args...), value: v}
}

// runStress allocates a large number of objects that are immediately
// dropped, forcing several collections over the run.
func runStress(ctx *execctx.Context, al *alloc.Allocator) error {
	const n = 100000
	for i := 0; i < n; i++ {
		if _, err := al.AllocateData(value.PointerTag, 64); err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "stress: object %d: %v", i, err)
		}
	}
	return nil
}

// runCompact keeps a short prefix of allocations rooted and drops the
// rest, then forces a full collection and checks the live count matches
// what's still reachable.
func runCompact(ctx *execctx.Context, al *alloc.Allocator) error {
	const kept = 16
	const dropped = 4096
	for i := 0; i < kept; i++ {
		v, err := al.AllocateSlots(value.PointerTag, 1)
		if err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "compact: rooted object %d: %v", i, err)
		}
		ctx.Push(v)
	}
	for i := 0; i < dropped; i++ {
		if _, err := al.AllocateSlots(value.PointerTag, 1); err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "compact: garbage object %d: %v", i, err)
		}
	}
	res := al.GC.Full(ctx.Roots())
	if want := int64(kept * (heap.HeaderSize + heap.WordSize)); res.LiveBytes != want {
		return fail(ctx, 2, value.Error(value.TypeError), "compact: live bytes %d, want %d for %d rooted objects", res.LiveBytes, want, kept)
	}
	if ctx.StackDepth() != kept {
		return fail(ctx, 2, value.Error(value.TypeError), "compact: stack depth %d, want %d", ctx.StackDepth(), kept)
	}
	return nil
}

// runBigObjects roots a handful of big objects directly on the operand
// stack, allocates one more left unreachable, and confirms a collection
// frees only the latter.
func runBigObjects(ctx *execctx.Context, al *alloc.Allocator) error {
	const rooted = 4

	for i := 0; i < rooted; i++ {
		body, err := al.Allocate(al.InlineThreshold+1, 0, 0)
		if err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "bigobjects: rooted object %d: %v", i, err)
		}
		ctx.Push(value.TagPointer(value.PointerTag, uintptr(body)))
	}

	if _, err := al.Allocate(al.InlineThreshold+1, 0, 0); err != nil {
		return fail(ctx, 1, value.Error(value.SizeError), "bigobjects: unreachable big object: %v", err)
	}

	before := ctx.BigObjects.Len()
	res := al.GC.Full(ctx.Roots())
	if res.BigObjectsFreed != 1 {
		return fail(ctx, 2, value.Error(value.TypeError), "bigobjects: freed %d big objects, want only the unreachable one", res.BigObjectsFreed)
	}
	if ctx.BigObjects.Len() != before-res.BigObjectsFreed {
		return fail(ctx, 2, value.Error(value.TypeError), "bigobjects: table has %d entries after sweep, want %d", ctx.BigObjects.Len(), before-res.BigObjectsFreed)
	}
	return nil
}

// runSpill allocates enough interleaved garbage and live objects that,
// with the default 1 MiB heap (a 4096-entry relocation buffer), a single
// compaction pass must flush its relocation buffer more than once, then
// confirms every surviving root still carries a pointer tag.
func runSpill(ctx *execctx.Context, al *alloc.Allocator) error {
	const n = 5000
	for i := 0; i < n; i++ {
		if _, err := al.AllocateSlots(value.PointerTag, 1); err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "spill: garbage %d: %v", i, err)
		}
		v, err := al.AllocateSlots(value.PointerTag, 1)
		if err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "spill: live %d: %v", i, err)
		}
		ctx.Push(v)
	}
	al.GC.Full(ctx.Roots())
	if ctx.StackDepth() != n {
		return fail(ctx, 2, value.Error(value.TypeError), "spill: stack depth %d, want %d", ctx.StackDepth(), n)
	}
	for i := 0; i < n; i++ {
		if !value.IsPointer(ctx.Get(i)) {
			return fail(ctx, 2, value.Error(value.TypeError), "spill: root %d lost its pointer tag after compaction", i)
		}
	}
	return nil
}

// runDeadline drives an incremental collection with a zero-millisecond
// latency budget over a long reference chain, demonstrating that an
// interrupted mark leaves every reference valid.
func runDeadline(ctx *execctx.Context, al *alloc.Allocator) error {
	const chainLen = 5000
	var head value.Value
	var prev value.Value
	for i := 0; i < chainLen; i++ {
		v, err := al.AllocateSlots(value.PointerTag, 1)
		if err != nil {
			return fail(ctx, 1, value.Error(value.SizeError), "deadline: link %d: %v", i, err)
		}
		if i == 0 {
			head = v
		} else {
			ctx.Heap.Slots(addrOf(prev), 0, 1)[0] = v
		}
		prev = v
	}
	ctx.Push(head)

	res := al.GC.Incremental(ctx.Roots(), 0)
	if !res.Interrupted {
		return fail(ctx, 2, value.Error(value.TypeError), "deadline: expected a zero-latency incremental collect to be interrupted")
	}
	if !value.IsPointer(ctx.Get(0)) {
		return fail(ctx, 2, value.Error(value.TypeError), "deadline: root lost its pointer tag after an interrupted mark")
	}
	return nil
}

// runArith exercises overflow-checked small-integer arithmetic,
// including the boundary where addition must report Overflow rather
// than wrap.
func runArith(ctx *execctx.Context, al *alloc.Allocator) error {
	sum := value.Add(value.TagInteger(1), value.TagInteger(2))
	if value.IsError(sum) || value.UntagSigned(sum) != 3 {
		return fail(ctx, 1, value.Error(value.TypeError), "arith: 1+2 = %v, want 3", sum)
	}
	max := value.TagInteger(value.MaxSmallInteger)
	overflowed := value.Add(max, value.TagInteger(1))
	if !value.IsError(overflowed) {
		return fail(ctx, 1, value.Error(value.Overflow), "arith: MaxSmallInteger+1 should overflow")
	}
	zero := value.TagInteger(0)
	if !value.IsError(value.Div(value.TagInteger(1), zero)) {
		return fail(ctx, 1, value.Error(value.DivideByZero), "arith: 1/0 should report divide-by-zero")
	}
	return nil
}
