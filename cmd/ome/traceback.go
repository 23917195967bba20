package main

import (
	"os"

	"github.com/shaurz/ome/execctx"
	"github.com/shaurz/ome/platform"
	"github.com/shaurz/ome/traceback"
	"github.com/shaurz/ome/value"
)

// demoTable backs every scenario's call sites; its entries are what a
// real front end's codegen would emit per call site, reduced here to
// the handful of synthetic frames the scenarios push.
var demoTable = traceback.Table{
	{StreamName: "scenario.ome", Line: 1, MethodName: "run"},
	{StreamName: "scenario.ome", Line: 2, MethodName: "allocate"},
	{StreamName: "scenario.ome", Line: 3, MethodName: "collect"},
}

// printTraceback prints a scenario's recorded call sites followed by
// err's stripped message, coloring the output only when standard error
// is a terminal.
func printTraceback(ctx *execctx.Context, err error) {
	v := value.Error(value.NotUnderstood)
	if se, ok := err.(scenarioError); ok {
		v = se.value
	}
	traceback.Print(os.Stderr, platform.IsTerminal(int(os.Stderr.Fd())), ctx.TracebackEntries(), demoTable, v)
}

// scenarioError lets a scenario report the specific runtime error Value
// that caused it to fail, instead of the generic fallback above.
type scenarioError struct {
	msg   string
	value value.Value
}

func (e scenarioError) Error() string { return e.msg }
