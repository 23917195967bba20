package platform

import "time"

// Cycles is the collector's unit of deadline accounting. A CPU cycle
// counter would give sub-millisecond granularity, but a monotonic
// nanosecond clock is an adequate substitute, so Cycles here counts
// nanoseconds since an arbitrary epoch fixed at process start.
type Cycles uint64

var epoch = time.Now()

// Now returns the current cycle count.
func Now() Cycles {
	return Cycles(time.Since(epoch).Nanoseconds())
}

// Calibrate returns the number of Cycles per millisecond, measured once at
// startup in the style of a busy-loop cycle-counter calibration. Since the cycle unit
// here already is nanoseconds, the measurement is exact by construction,
// but the busy loop still runs so startup timing behaves the same way it
// would if Cycles were a real hardware counter.
func Calibrate() Cycles {
	start := Now()
	target := start + Cycles(time.Millisecond.Nanoseconds())
	iterations := uint64(0)
	for Now() < target {
		iterations++
	}
	_ = iterations
	return Cycles(time.Millisecond.Nanoseconds())
}

// Deadline computes the cycle count at which a phase with the given
// millisecond latency budget must yield.
func Deadline(latencyMs int, cyclesPerMs Cycles) Cycles {
	return Now() + Cycles(latencyMs)*cyclesPerMs
}
