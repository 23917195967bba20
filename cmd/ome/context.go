package main

import (
	"fmt"
	"os"

	"github.com/shaurz/ome/alloc"
	"github.com/shaurz/ome/bigobj"
	"github.com/shaurz/ome/execctx"
	"github.com/shaurz/ome/heap"
	"github.com/shaurz/ome/platform"
)

// initialize builds one execution context and its allocator from the
// flags parsed by main, fatally exiting if the heap reservation can't
// be made ("heap-reservation below MIN_HEAP_SIZE at startup"
// and OS mmap failures are both fatal-at-startup conditions).
func initialize() (*execctx.Context, *alloc.Allocator, platform.Cycles) {
	h, err := heap.New(flagReserve)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ome: %v\n", err)
		os.Exit(1)
	}
	if flagHeapSize < flagReserve {
		h.SetHeapBase(h.Base(), flagHeapSize)
	}

	big := bigobj.NewTable(flagBigObjects)
	ctx := execctx.New(flagStackBytes, h, big, demoTable)

	cyclesPerMs := platform.Calibrate()
	al := alloc.New(ctx, flagLatencyMs, cyclesPerMs, flagThreshold)
	return ctx, al, cyclesPerMs
}
