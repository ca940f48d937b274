// Package vcd writes value change dump waveform files.
//
// A Writer records the signals a model declares through the tracing
// protocol: Open writes the declaration header, each Dump emits a timestamp
// followed by the signals whose values changed, and Close finalizes the
// file. The first Dump snapshots every signal inside a $dumpvars section.
//
// Output is deterministic: the header carries fixed date and version
// strings, so identical runs produce byte-identical files. Write errors
// stick and surface at Close.
package vcd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/openhdl/uartsim/lib"
)

var _ lib.TraceRecorder = (*Writer)(nil)

// Timescale is one trace time unit, half a cycle of the 50 MHz clock.
const Timescale = "10ns"

type signal struct {
	name  string // full dotted path
	id    string // identifier code
	bits  int
	last  int64
	known bool // a value has been logged
}

// Writer is a TraceRecorder producing a VCD file.
type Writer struct {
	// Date and Version fill the file header. The defaults are fixed
	// strings so reruns produce identical bytes.
	Date    string
	Version string

	signals []*signal
	index   map[string]*signal
	updates []func()

	f   *os.File
	buf *bufio.Writer
	err error

	opened   bool
	closed   bool
	started  bool // first dump emitted
	snapshot bool // inside the $dumpvars section
	lastTime uint64
	haveTime bool
	nonMono  int
	warned   bool
}

func NewWriter() *Writer {
	return &Writer{
		Date:    "unknown",
		Version: "uartsim trace",
		index:   make(map[string]*signal),
	}
}

// idCode converts a signal index to an identifier code, a short string of
// printable characters counting bijectively in base 94 from "!".
func idCode(n int) string {
	var b []byte
	for {
		b = append(b, byte('!'+n%94))
		n = n/94 - 1
		if n < 0 {
			break
		}
	}
	return string(b)
}

// Declare announces a signal. Declaration order determines its place in the
// scope tree; the first declaration of a name wins. All declarations must
// happen before Open.
func (w *Writer) Declare(signalName string, bits int) {
	if w.opened {
		if w.err == nil {
			w.err = errors.Errorf("declare %s after open", signalName)
		}
		return
	}
	if _, ok := w.index[signalName]; ok {
		return
	}
	s := &signal{name: signalName, id: idCode(len(w.signals)), bits: bits}
	w.signals = append(w.signals, s)
	w.index[signalName] = s
}

func (w *Writer) RegisterValueCallback(update func()) {
	w.updates = append(w.updates, update)
}

// Open creates path and writes the declaration header.
func (w *Writer) Open(path string) error {
	if w.opened {
		return errors.New("trace already open")
	}
	if w.err != nil {
		return w.err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "open trace")
	}
	w.f = f
	w.buf = bufio.NewWriter(f)
	w.opened = true
	w.writeHeader()
	return w.err
}

// writeHeader emits the metadata and the scope tree. Scopes are derived
// from the dotted signal names in declaration order, so siblings must be
// declared together; an interleaved order would reopen a scope, which VCD
// does not allow.
func (w *Writer) writeHeader() {
	w.printf("$date\n\t%s\n$end\n", w.Date)
	w.printf("$version\n\t%s\n$end\n", w.Version)
	w.printf("$timescale\n\t%s\n$end\n", Timescale)
	var open []string
	for _, s := range w.signals {
		parts := strings.Split(s.name, ".")
		scope, leaf := parts[:len(parts)-1], parts[len(parts)-1]
		common := 0
		for common < len(open) && common < len(scope) && open[common] == scope[common] {
			common++
		}
		for i := len(open); i > common; i-- {
			w.printf("$upscope $end\n")
		}
		for _, module := range scope[common:] {
			w.printf("$scope module %s $end\n", module)
		}
		open = scope
		w.printf("$var wire %d %s %s $end\n", s.bits, s.id, leaf)
	}
	for range open {
		w.printf("$upscope $end\n")
	}
	w.printf("$enddefinitions $end\n")
}

// Dump records signal activity at time t. The first dump snapshots every
// signal; later dumps emit only changes. A timestamp that fails to advance
// is still written out so the file shows exactly what the driver did, but
// it is counted and flagged once on stderr.
func (w *Writer) Dump(t uint64) {
	if !w.opened || w.closed {
		if w.err == nil {
			w.err = errors.Errorf("dump at %d outside open trace", t)
		}
		return
	}
	if w.haveTime && t <= w.lastTime {
		w.nonMono++
		if !w.warned {
			fmt.Fprintf(os.Stderr, "trace time %d does not advance past %d; timestamps will repeat in the waveform\n", t, w.lastTime)
			w.warned = true
		}
	}
	w.lastTime = t
	w.haveTime = true

	w.printf("#%d\n", t)
	first := !w.started
	w.started = true
	if first {
		w.printf("$dumpvars\n")
		w.snapshot = true
	}
	for _, update := range w.updates {
		update()
	}
	if first {
		w.snapshot = false
		w.printf("$end\n")
	}
}

// LogValue records the value of a signal at the current dump. Values that
// did not change since the previous dump are skipped outside the initial
// snapshot.
func (w *Writer) LogValue(signalName string, bits int, value int64) {
	s, ok := w.index[signalName]
	if !ok {
		if w.err == nil {
			w.err = errors.Errorf("value for undeclared signal %s", signalName)
		}
		return
	}
	if s.known && s.last == value && !w.snapshot {
		return
	}
	s.last = value
	s.known = true
	if s.bits == 1 {
		w.printf("%d%s\n", value&1, s.id)
	} else {
		v := uint64(value)
		if s.bits < 64 {
			v &= 1<<uint(s.bits) - 1
		}
		w.printf("b%s %s\n", strconv.FormatUint(v, 2), s.id)
	}
}

// NonMonotonic returns how many dumps failed to advance the time cursor.
func (w *Writer) NonMonotonic() int {
	return w.nonMono
}

// Close flushes and finalizes the file. A second Close is an error.
func (w *Writer) Close() error {
	if !w.opened {
		return errors.New("close before open")
	}
	if w.closed {
		return errors.New("trace already closed")
	}
	w.closed = true
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	if w.err != nil {
		return errors.Wrap(w.err, "write trace")
	}
	if flushErr != nil {
		return errors.Wrap(flushErr, "flush trace")
	}
	return errors.Wrap(closeErr, "close trace")
}

func (w *Writer) printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.buf, format, args...); err != nil {
		w.err = err
	}
}
