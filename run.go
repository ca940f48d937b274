package main

import (
	"fmt"
	"io"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	. "github.com/openhdl/uartsim/lib"
	"github.com/openhdl/uartsim/lib/cycle"
	"github.com/openhdl/uartsim/lib/units"
	"github.com/openhdl/uartsim/lib/vcd"
)

func runCommand() *cobra.Command {
	cfg := Default()
	var configFile, cpuProfile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch simulation scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				// the file overlays the defaults, explicit flags win over both
				base := Default()
				if err := base.Load(configFile); err != nil {
					return err
				}
				overlayChangedFlags(cmd, &base, cfg)
				cfg = base
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cpuProfile != "" {
				defer profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile)).Stop()
			}
			return runSimulation(cmd.OutOrStdout(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.TraceFile, "trace", cfg.TraceFile, "waveform output file")
	f.IntVar(&cfg.TraceLevels, "levels", cfg.TraceLevels, "hierarchy levels to trace")
	f.IntVar(&cfg.ResetCycles, "reset-cycles", cfg.ResetCycles, "clock cycles to hold reset")
	f.IntVar(&cfg.RunCycles, "cycles", cfg.RunCycles, "clock cycle budget after reset")
	f.IntVar(&cfg.FinishAfter, "finish-after", cfg.FinishAfter, "raise the finish flag after this many post-reset cycles (0 disables)")
	f.IntVar(&cfg.Divisor, "divisor", cfg.Divisor, "power-on baud divisor in clocks per bit")
	f.BoolVar(&cfg.Loopback, "loopback", cfg.Loopback, "tie uart_tx_o back into uart_rx_i")
	f.BoolVar(&cfg.ContinuousTime, "continuous-time", cfg.ContinuousTime, "carry trace time across the reset/run boundary")
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this directory")
	return cmd
}

// overlayChangedFlags copies flag values the user passed explicitly onto
// base, so command-line flags override the config file.
func overlayChangedFlags(cmd *cobra.Command, base *Config, flagged Config) {
	f := cmd.Flags()
	if f.Changed("trace") {
		base.TraceFile = flagged.TraceFile
	}
	if f.Changed("levels") {
		base.TraceLevels = flagged.TraceLevels
	}
	if f.Changed("reset-cycles") {
		base.ResetCycles = flagged.ResetCycles
	}
	if f.Changed("cycles") {
		base.RunCycles = flagged.RunCycles
	}
	if f.Changed("finish-after") {
		base.FinishAfter = flagged.FinishAfter
	}
	if f.Changed("divisor") {
		base.Divisor = flagged.Divisor
	}
	if f.Changed("loopback") {
		base.Loopback = flagged.Loopback
	}
	if f.Changed("continuous-time") {
		base.ContinuousTime = flagged.ContinuousTime
	}
}

// runSimulation owns the model and the trace for one batch run: power-on
// defaults, a held-in-reset clock burst, a bounded free run with a finish
// poll, then shutdown. The trace is closed exactly once on every path
// before the success message prints.
func runSimulation(out io.Writer, cfg Config) error {
	sim := NewSim(cfg)
	dut := units.NewTestbench(sim)

	// Power-on defaults. Every input pin is driven before the first Eval;
	// the serial line idles at mark.
	dut.PclkI = 0
	dut.PresetnI = 0
	dut.PselI = 0
	dut.PenableI = 0
	dut.PwriteI = 0
	dut.PaddrI = 0
	dut.PwdataI = 0
	dut.UartRxI = 1

	trace := vcd.NewWriter()
	dut.Trace(trace, cfg.TraceLevels)
	if err := trace.Open(cfg.TraceFile); err != nil {
		return err
	}

	_, _, err := exercise(dut, func() { dut.PresetnI = 1 }, trace, sim.GotFinish, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Simulation completed successfully!")
	return nil
}

// exercise clocks the model through the reset hold and the bounded run,
// closing the trace exactly once before it returns on every path. release
// deasserts reset between the phases; stop is polled once per completed
// run cycle. It reports completed cycles per phase.
func exercise(m Model, release func(), trace TraceRecorder, stop func() bool, cfg Config) (resetDone, runDone int, err error) {
	defer func() {
		cerr := trace.Close()
		if err == nil {
			err = cerr
		}
	}()

	resetDone = cycle.Advance(cycle.Conn{Model: m, Tracer: trace}, cfg.ResetCycles, 0)
	release()

	// By default the run phase restarts the trace clock at zero, so the
	// file revisits the reset phase's timestamps; the recorder counts and
	// flags the overlap. ContinuousTime removes it.
	start := uint64(0)
	if cfg.ContinuousTime {
		start = 2 * uint64(resetDone)
	}
	runDone = cycle.Advance(cycle.Conn{Model: m, Tracer: trace, Stop: stop}, cfg.RunCycles, start)
	return resetDone, runDone, nil
}
