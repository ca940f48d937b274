package lib

// A Model is a compiled simulation model of a clocked design. The driver
// owns the clock: it writes the clock pin, calls Eval to settle the model,
// and registers signals for waveform capture with Trace.
type Model interface {
	// SetClock drives the model's clock input pin.
	SetClock(level byte)
	// Eval propagates current input values through the model, applying
	// sequential logic on clock edges and recomputing combinational logic.
	Eval()
	// Trace registers the model's signals with a tracer. levels limits how
	// many scope levels below the toplevel are captured; 99 captures all.
	Trace(t Tracer, levels int)
}
