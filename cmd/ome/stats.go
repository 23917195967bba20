package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shaurz/ome/execctx"
	"github.com/shaurz/ome/platform"
)

// printStats renders a context's GC statistics in a tab-aligned table.
func printStats(w io.Writer, ctx *execctx.Context, cyclesPerMs platform.Cycles) {
	t := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(t, "heap size\t%d bytes\n", ctx.Heap.Size())
	fmt.Fprintf(t, "heap used\t%d bytes\n", ctx.Heap.Size()-ctx.Heap.FreeBytes())
	fmt.Fprintf(t, "big objects live\t%d\n", ctx.BigObjects.Len())
	fmt.Fprintf(t, "gc cycles\t%d\n", ctx.Stats.Cycles)
	fmt.Fprintf(t, "gc interruptions\t%d\n", ctx.Stats.Interruptions)
	fmt.Fprintf(t, "compacts skipped\t%d\n", ctx.Stats.CompactsSkipped)
	fmt.Fprintf(t, "big objects freed\t%d\n", ctx.Stats.BigObjectsFreed)
	fmt.Fprintf(t, "live bytes (last cycle)\t%d\n", ctx.Stats.LiveBytes)
	fmt.Fprintf(t, "elapsed\t%.2f ms\n", float64(platform.Now()-ctx.Started)/float64(cyclesPerMs))
	t.Flush()
}
