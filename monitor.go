package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	. "github.com/openhdl/uartsim/lib"
	"github.com/openhdl/uartsim/lib/cycle"
	"github.com/openhdl/uartsim/lib/units"
	"github.com/openhdl/uartsim/lib/vcd"
)

// monitor holds the interactive session: the bench, an in-memory probe for
// inspection, an APB master for bus commands, and an optional waveform
// capture that rides the same half-cycle clock as the stepping.
type monitor struct {
	out   io.Writer
	sim   *Sim
	dut   *units.Testbench
	probe *Probe
	apb   *units.APBMaster

	trace  *vcd.Writer
	time   uint64 // half-cycle trace cursor
	cycles int
}

func newMonitor(cfg Config, out io.Writer) *monitor {
	sim := NewSim(cfg)
	dut := units.NewTestbench(sim)
	dut.PclkI = 0
	dut.PresetnI = 0
	dut.PselI = 0
	dut.PenableI = 0
	dut.PwriteI = 0
	dut.PaddrI = 0
	dut.PwdataI = 0
	dut.UartRxI = 1

	probe := NewProbe()
	dut.Trace(probe, cfg.TraceLevels)

	m := &monitor{out: out, sim: sim, dut: dut, probe: probe}
	m.apb = &units.APBMaster{TB: dut, Cycle: m.stepOne}

	// power-on reset like the batch driver, then release
	m.stepN(cfg.ResetCycles)
	dut.PresetnI = 1
	return m
}

// stepOne advances exactly one clock cycle, feeding any open trace and
// resampling the probe.
func (m *monitor) stepOne() {
	var tr Tracer
	if m.trace != nil {
		tr = m.trace
	}
	cycle.Advance(cycle.Conn{Model: m.dut, Tracer: tr}, 1, m.time)
	m.time += 2
	m.cycles++
	m.probe.Sample()
}

func (m *monitor) stepN(n int) {
	for i := 0; i < n; i++ {
		m.stepOne()
	}
}

func (m *monitor) doCommand(line string) int {
	f := strings.Fields(line)
	for i, s := range f {
		if s[0] == '#' {
			f = f[:i]
			break
		}
	}
	if len(f) == 0 {
		return 0
	}
	switch f[0] {
	case "s":
		m.doStep(f)
	case "d":
		m.doDump()
	case "r":
		m.doRead(f)
	case "w":
		m.doWrite(f)
	case "rx":
		m.doRx(f)
	case "set":
		m.doSet(f)
	case "watch":
		m.doWatch(f)
	case "t":
		m.doTraceStart(f)
	case "tc":
		m.doTraceEnd()
	case "reset":
		m.doReset(f)
	case "q":
		if m.trace != nil {
			m.doTraceEnd()
		}
		return -1
	case "h", "help":
		m.printHelp()
	default:
		fmt.Fprintf(m.out, "Unknown command: %s\n", line)
	}
	return 0
}

func (m *monitor) doStep(f []string) {
	n := 1
	if len(f) >= 2 {
		v, err := strconv.Atoi(f[1])
		if err != nil || v < 1 {
			fmt.Fprintln(m.out, "step syntax: s [cycles]")
			return
		}
		n = v
	}
	m.stepN(n)
}

func (m *monitor) doDump() {
	fmt.Fprintf(m.out, "tb   %s\n", m.dut.Stat())
	fmt.Fprintf(m.out, "uart %s\n", m.dut.Uart.Stat())
}

func (m *monitor) doRead(f []string) {
	if len(f) != 2 {
		fmt.Fprintln(m.out, "read syntax: r addr")
		return
	}
	addr, err := parseUint32(f[1])
	if err != nil {
		fmt.Fprintf(m.out, "invalid address %s\n", f[1])
		return
	}
	v, err := m.apb.Read(addr)
	if err != nil {
		fmt.Fprintln(m.out, err)
		return
	}
	fmt.Fprintf(m.out, "[%#04x] = %#010x\n", addr, v)
}

func (m *monitor) doWrite(f []string) {
	if len(f) != 3 {
		fmt.Fprintln(m.out, "write syntax: w addr data")
		return
	}
	addr, err := parseUint32(f[1])
	if err != nil {
		fmt.Fprintf(m.out, "invalid address %s\n", f[1])
		return
	}
	data, err := parseUint32(f[2])
	if err != nil {
		fmt.Fprintf(m.out, "invalid data %s\n", f[2])
		return
	}
	if err := m.apb.Write(addr, data); err != nil {
		fmt.Fprintln(m.out, err)
	}
}

// doRx plays one byte into the receiver's serial input, advancing the
// simulation for the duration of the frame. Framing follows the
// controller's current parity configuration.
func (m *monitor) doRx(f []string) {
	if len(f) != 2 {
		fmt.Fprintln(m.out, "rx syntax: rx byte")
		return
	}
	v, err := parseUint32(f[1])
	if err != nil || v > 0xFF {
		fmt.Fprintf(m.out, "invalid byte %s\n", f[1])
		return
	}
	drv := &units.LineDriver{
		TB:      m.dut,
		Cycle:   m.stepOne,
		Divisor: m.dut.Uart.Divisor(),
		Parity:  m.dut.Uart.ParityEnabled(),
		Odd:     m.dut.Uart.ParityOdd(),
	}
	drv.Send(byte(v))
}

func (m *monitor) doSet(f []string) {
	if len(f) != 3 {
		fmt.Fprintln(m.out, "set syntax: set unit.switch value")
		return
	}
	p := strings.SplitN(f[1], ".", 2)
	if len(p) != 2 {
		fmt.Fprintln(m.out, "set syntax: set unit.switch value")
		return
	}
	var unit Switched
	switch p[0] {
	case "tb":
		unit = m.dut
	case "uart":
		unit = m.dut.Uart
	default:
		fmt.Fprintf(m.out, "unknown unit %s\n", p[0])
		return
	}
	sw, err := unit.FindSwitch(p[1])
	if err != nil {
		fmt.Fprintf(m.out, "%s: %s\n", p[0], err)
		return
	}
	if err := sw.Set(f[2]); err != nil {
		fmt.Fprintf(m.out, "%s: %s\n", p[0], err)
	}
}

// doWatch steps until a signal reaches a value, up to a cycle limit.
func (m *monitor) doWatch(f []string) {
	if len(f) < 3 || len(f) > 4 {
		fmt.Fprintln(m.out, "watch syntax: watch signal value [maxcycles]")
		return
	}
	want, err := strconv.ParseInt(f[2], 0, 64)
	if err != nil {
		fmt.Fprintf(m.out, "invalid value %s\n", f[2])
		return
	}
	limit := 10000
	if len(f) == 4 {
		limit, err = strconv.Atoi(f[3])
		if err != nil || limit < 1 {
			fmt.Fprintf(m.out, "invalid cycle limit %s\n", f[3])
			return
		}
	}
	name := f[1]
	if !m.knownSignal(name) {
		full := "tb_uart_controller." + name
		if !m.knownSignal(full) {
			fmt.Fprintf(m.out, "unknown signal %s\n", f[1])
			return
		}
		name = full
	}
	for i := 0; i < limit; i++ {
		m.stepOne()
		if v, ok := m.probe.Value(name); ok && v == want {
			fmt.Fprintf(m.out, "%s = %d after %d cycles\n", name, want, i+1)
			return
		}
	}
	fmt.Fprintf(m.out, "%s did not reach %d within %d cycles\n", name, want, limit)
}

func (m *monitor) knownSignal(name string) bool {
	for _, d := range m.probe.Signals() {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (m *monitor) doTraceStart(f []string) {
	if len(f) != 2 {
		fmt.Fprintln(m.out, "trace syntax: t file")
		return
	}
	if m.trace != nil {
		fmt.Fprintln(m.out, "trace already open")
		return
	}
	w := vcd.NewWriter()
	m.dut.Trace(w, m.sim.Cfg.TraceLevels)
	if err := w.Open(f[1]); err != nil {
		fmt.Fprintln(m.out, err)
		return
	}
	m.trace = w
}

func (m *monitor) doTraceEnd() {
	if m.trace == nil {
		fmt.Fprintln(m.out, "no trace open")
		return
	}
	if err := m.trace.Close(); err != nil {
		fmt.Fprintln(m.out, err)
	}
	m.trace = nil
}

// doReset holds reset for n cycles and releases it.
func (m *monitor) doReset(f []string) {
	n := m.sim.Cfg.ResetCycles
	if len(f) >= 2 {
		v, err := strconv.Atoi(f[1])
		if err != nil || v < 1 {
			fmt.Fprintln(m.out, "reset syntax: reset [cycles]")
			return
		}
		n = v
	}
	m.dut.PresetnI = 0
	m.stepN(n)
	m.dut.PresetnI = 1
}

func (m *monitor) printHelp() {
	fmt.Fprint(m.out, `commands:
  s [n]                  step n clock cycles (default 1)
  r addr                 APB read
  w addr data            APB write
  rx byte                drive a serial frame into uart_rx_i
  d                      dump unit status
  set unit.switch value  change a control (tb.loopback, tb.finish, uart.divisor)
  watch signal value [n] step until a signal reaches a value
  t file                 start waveform capture
  tc                     stop waveform capture
  reset [n]              hold reset for n cycles
  q                      quit
`)
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func monitorCommand() *cobra.Command {
	cfg := Default()
	var configFile string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Step the simulation interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := cfg.Load(configFile); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			m := newMonitor(cfg, cmd.OutOrStdout())
			rl, err := readline.New("0000> ")
			if err != nil {
				return err
			}
			defer rl.Close()
			for {
				rl.SetPrompt(fmt.Sprintf("%04d> ", m.cycles%10000))
				line, err := rl.Readline()
				if err == readline.ErrInterrupt || err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				if m.doCommand(line) < 0 {
					break
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&cfg.TraceLevels, "levels", cfg.TraceLevels, "hierarchy levels to trace and probe")
	f.IntVar(&cfg.Divisor, "divisor", cfg.Divisor, "power-on baud divisor in clocks per bit")
	f.BoolVar(&cfg.Loopback, "loopback", cfg.Loopback, "tie uart_tx_o back into uart_rx_i")
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	return cmd
}
