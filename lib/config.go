package lib

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Power-on defaults for the batch scenario.
const (
	DefaultTraceFile   = "uart_controller.vcd"
	DefaultTraceLevels = 99
	DefaultResetCycles = 10
	DefaultRunCycles   = 10000
	DefaultDivisor     = 434 // 50 MHz pclk / 115200 baud
)

// Config carries the whole simulation setup. It is assembled once by the
// command line, optionally overlaid from a YAML file, and handed to the
// driver before the model is built.
type Config struct {
	// TraceFile is the waveform output path.
	TraceFile string `yaml:"trace_file"`
	// TraceLevels limits trace capture depth below the toplevel; 99
	// records every nested scope.
	TraceLevels int `yaml:"trace_levels"`
	// ResetCycles is how many clock cycles the design is held in reset.
	ResetCycles int `yaml:"reset_cycles"`
	// RunCycles bounds the free-running phase.
	RunCycles int `yaml:"run_cycles"`
	// FinishAfter makes the testbench raise the finish flag after that
	// many post-reset clock cycles. 0 leaves the run to its cycle budget.
	FinishAfter int `yaml:"finish_after"`
	// Divisor is the controller's power-on baud divisor.
	Divisor int `yaml:"divisor"`
	// Loopback ties the serial input to the controller's own transmit pin.
	Loopback bool `yaml:"loopback"`
	// ContinuousTime carries the trace clock across the reset/run boundary.
	// When false the run phase restarts trace time at zero, so the waveform
	// revisits timestamps it has already written.
	ContinuousTime bool `yaml:"continuous_time"`
}

// Default returns the batch scenario configuration.
func Default() Config {
	return Config{
		TraceFile:   DefaultTraceFile,
		TraceLevels: DefaultTraceLevels,
		ResetCycles: DefaultResetCycles,
		RunCycles:   DefaultRunCycles,
		Divisor:     DefaultDivisor,
	}
}

// Load overlays c with settings from a YAML file. Fields absent from the
// file keep their current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// Validate rejects configurations the driver cannot honor.
func (c *Config) Validate() error {
	if c.TraceFile == "" {
		return errors.New("trace file must not be empty")
	}
	if c.TraceLevels < 1 {
		return errors.Errorf("trace levels must be at least 1, got %d", c.TraceLevels)
	}
	if c.ResetCycles < 0 {
		return errors.Errorf("reset cycles must not be negative, got %d", c.ResetCycles)
	}
	if c.RunCycles < 0 {
		return errors.Errorf("run cycles must not be negative, got %d", c.RunCycles)
	}
	if c.FinishAfter < 0 {
		return errors.Errorf("finish after must not be negative, got %d", c.FinishAfter)
	}
	if c.Divisor < 1 {
		return errors.Errorf("divisor must be at least 1, got %d", c.Divisor)
	}
	return nil
}
