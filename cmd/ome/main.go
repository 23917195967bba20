// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ome hosts a single execution context and drives it through a
// named scenario, printing the resulting GC statistics: flags build the
// context, then the scenario runs and its traceback or statistics print
// on exit.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagHeapSize   int64
	flagReserve    int64
	flagStackBytes int
	flagLatencyMs  int
	flagBigObjects int
	flagThreshold  int64
)

func main() {
	root := &cobra.Command{
		Use:           "ome",
		Short:         "run an object-message-expression execution context",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int64Var(&flagHeapSize, "heap-size", 1<<20, "initial inline heap size, in bytes")
	root.PersistentFlags().Int64Var(&flagReserve, "reserve", 16<<20, "OS address-space reservation for the inline heap, in bytes")
	root.PersistentFlags().IntVar(&flagStackBytes, "stack-bytes", 1<<16, "combined operand-stack/traceback region size, in bytes")
	root.PersistentFlags().IntVar(&flagLatencyMs, "latency-ms", 5, "incremental collection's mark/compact latency budget, in milliseconds")
	root.PersistentFlags().IntVar(&flagBigObjects, "max-big-objects", 4096, "big-object descriptor table capacity")
	root.PersistentFlags().Int64Var(&flagThreshold, "inline-threshold", 4096, "largest object body, in bytes, placed in the inline heap")

	for _, s := range scenarios {
		root.AddCommand(newScenarioCommand(s))
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ome: %v\n", err)
		os.Exit(1)
	}
}

func newScenarioCommand(s scenario) *cobra.Command {
	return &cobra.Command{
		Use:   s.name,
		Short: s.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, al, cyclesPerMs := initialize()
			defer ctx.Close()
			if err := s.run(ctx, al); err != nil {
				printTraceback(ctx, err)
				return err
			}
			printStats(cmd.OutOrStdout(), ctx, cyclesPerMs)
			return nil
		},
	}
}
