//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package execctx

import (
	"testing"

	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/traceback"
	"github.com/shaurz/ome/value"
)

func newTestContext(t *testing.T, regionBytes int) *Context {
	t.Helper()
	h, err := heap.New(1 << 20)
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	big := bigobj.NewTable(16)
	ctx := New(regionBytes, h, big, nil)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestPushPopFrame(t *testing.T) {
	ctx := newTestContext(t, 4096)
	ctx.Push(value.TagInteger(1))
	ctx.Push(value.TagInteger(2))
	ctx.Push(value.TagInteger(3))
	if got := ctx.StackDepth(); got != 3 {
		t.Fatalf("StackDepth() = %d, want 3", got)
	}
	if v := ctx.Pop(); value.UntagSigned(v) != 3 {
		t.Fatalf("Pop() = %v, want 3", v)
	}
	if v := ctx.Pop(); value.UntagSigned(v) != 2 {
		t.Fatalf("Pop() = %v, want 2", v)
	}
	if got := ctx.StackDepth(); got != 1 {
		t.Fatalf("StackDepth() = %d, want 1", got)
	}
}

func TestPopFrameUnderflowPanics(t *testing.T) {
	ctx := newTestContext(t, 4096)
	defer func() {
		if recover() == nil {
			t.Fatal("PopFrame on empty stack should panic")
		}
	}()
	ctx.PopFrame(1)
}

func TestRootsReflectsPushedValues(t *testing.T) {
	ctx := newTestContext(t, 4096)
	want := []value.Value{value.TagInteger(10), value.TagInteger(20), value.Boolean(true)}
	for _, v := range want {
		ctx.Push(v)
	}
	roots := ctx.Roots()
	if len(roots) != len(want) {
		t.Fatalf("len(Roots()) = %d, want %d", len(roots), len(want))
	}
	for i, v := range want {
		if roots[i] != v {
			t.Errorf("Roots()[%d] = %v, want %v", i, roots[i], v)
		}
	}
}

func TestTracebackTruncatesSilentlyUnderPressure(t *testing.T) {
	// A tiny region leaves almost no room for the traceback ring once the
	// operand stack has grown; pushes past that point must be silent
	// no-ops, never panics or stack corruption.
	ctx := newTestContext(t, 64)
	for i := 0; i < 4; i++ {
		ctx.Push(value.TagInteger(int64(i)))
	}
	before := ctx.StackDepth()
	for i := 0; i < 1000; i++ {
		ctx.AppendTraceback(uint32(i))
	}
	if ctx.StackDepth() != before {
		t.Fatalf("AppendTraceback under pressure corrupted the operand stack: depth %d -> %d", before, ctx.StackDepth())
	}
}

func TestTracebackNewestFirst(t *testing.T) {
	ctx := newTestContext(t, 4096)
	ctx.AppendTraceback(1)
	ctx.AppendTraceback(2)
	ctx.AppendTraceback(3)
	got := ctx.TracebackEntries()
	want := []uint32{3, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("TracebackEntries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TracebackEntries() = %v, want %v", got, want)
		}
	}
}

func TestResetTraceback(t *testing.T) {
	ctx := newTestContext(t, 4096)
	ctx.AppendTraceback(1)
	ctx.ResetTraceback()
	if len(ctx.TracebackEntries()) != 0 {
		t.Fatal("ResetTraceback should clear all entries")
	}
}

var _ = traceback.Table(nil)
