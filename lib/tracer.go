package lib

type Tracer interface {
	// Declare announces a signal before tracing starts. Signal names are
	// dotted paths ("tb.u_uart.tx_state") carrying the scope hierarchy.
	Declare(signalName string, bits int)

	// RegisterValueCallback registers a function to log values when Dump
	// is called.
	RegisterValueCallback(update func())

	// Dump sets the time cursor and polls all registered values.
	Dump(t uint64)

	// LogValue records the instantaneous value of a signal.
	LogValue(signalName string, bits int, value int64)
}

// A TraceRecorder is a Tracer bound to an output file. Open must be called
// after all signals are declared and before the first Dump. Close flushes
// and finalizes the file and must be called exactly once.
type TraceRecorder interface {
	Tracer
	Open(path string) error
	Close() error
}
