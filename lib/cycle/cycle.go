// Package cycle advances a simulation model through whole clock cycles.
//
// Each cycle is two half cycles: drive the clock low, evaluate, record the
// trace, then drive it high, evaluate, record again. Trace timestamps count
// half cycles from a caller-chosen origin, so the cycle at iteration i dumps
// at startTime+2i and startTime+2i+1. An optional stop predicate is polled
// once per completed cycle for early termination.
package cycle

import (
	. "github.com/openhdl/uartsim/lib"
)

// Conn defines connections needed by the stepper.
type Conn struct {
	Model  Model       // the clocked design
	Tracer Tracer      // waveform sink; nil steps untraced
	Stop   func() bool // polled after each full cycle; nil never stops
}

// Advance runs up to n full clock cycles with the trace clock starting at
// startTime and returns how many cycles completed.
func Advance(io Conn, n int, startTime uint64) int {
	t := startTime
	for i := 0; i < n; i++ {
		io.Model.SetClock(0)
		io.Model.Eval()
		if io.Tracer != nil {
			io.Tracer.Dump(t)
		}
		io.Model.SetClock(1)
		io.Model.Eval()
		if io.Tracer != nil {
			io.Tracer.Dump(t + 1)
		}
		t += 2
		if io.Stop != nil && io.Stop() {
			return i + 1
		}
	}
	return n
}
