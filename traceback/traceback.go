// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package traceback formats the call-site ids recorded by an execctx
// ring into a human-readable, terminal-aware traceback.
package traceback

import (
	"fmt"
	"io"

	"github.com/shaurz/ome/value"
)

// Entry is one immutable row of the traceback table generated code
// provides: it describes a single call site.
type Entry struct {
	StreamName string
	Line       int
	MethodName string
	SourceLine string
	Column     int
	Underline  int
}

// Table is the full, codegen-provided, immutable array of call sites;
// entries are indexed by the ids execctx.Context.AppendTraceback records.
type Table []Entry

const (
	ansiDim   = "\x1b[2m"
	ansiRed   = "\x1b[31;1m"
	ansiReset = "\x1b[0m"
)

// Print renders entries (newest first, as returned by
// execctx.Context.TracebackEntries) followed by the stripped error
// message, coloring the output with ANSI escapes only when isTerminal is
// true ("print_traceback(error) ... ANSI coloring only if
// output is a terminal").
func Print(w io.Writer, isTerminal bool, entries []uint32, table Table, err value.Value) {
	for _, id := range entries {
		if int(id) >= len(table) {
			continue
		}
		e := table[id]
		printEntry(w, isTerminal, e)
	}
	printError(w, isTerminal, err)
}

func printEntry(w io.Writer, isTerminal bool, e Entry) {
	if isTerminal {
		fmt.Fprintf(w, "%s%s:%d:%s in %s\n", ansiDim, e.StreamName, e.Line, ansiReset, e.MethodName)
	} else {
		fmt.Fprintf(w, "%s:%d: in %s\n", e.StreamName, e.Line, e.MethodName)
	}
	if e.SourceLine != "" {
		fmt.Fprintf(w, "    %s\n", e.SourceLine)
		if e.Column > 0 && e.Underline > 0 {
			fmt.Fprintf(w, "    %s%s\n", pad(e.Column-1), underline(e.Underline))
		}
	}
}

func printError(w io.Writer, isTerminal bool, err value.Value) {
	msg := value.StripError(err).String()
	if isTerminal {
		fmt.Fprintf(w, "%s%s%s\n", ansiRed, msg, ansiReset)
	} else {
		fmt.Fprintln(w, msg)
	}
}

func pad(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func underline(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '^'
	}
	return string(b)
}
