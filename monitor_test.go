package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/openhdl/uartsim/lib"
)

func newTestMonitor(t *testing.T) (*monitor, *strings.Builder) {
	t.Helper()
	cfg := Default()
	cfg.Divisor = 4
	cfg.ResetCycles = 2
	var out strings.Builder
	return newMonitor(cfg, &out), &out
}

func TestMonitorWriteReadRoundTrip(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("w 0x10 0x0005")
	m.doCommand("r 0x10")
	require.Contains(t, out.String(), "[0x10] = 0x00000005")
}

func TestMonitorStepAdvancesCycles(t *testing.T) {
	m, _ := newTestMonitor(t)
	base := m.cycles
	m.doCommand("s 5")
	require.Equal(t, base+5, m.cycles)
	m.doCommand("s")
	require.Equal(t, base+6, m.cycles)
}

func TestMonitorCommentsAndBlanksIgnored(t *testing.T) {
	m, out := newTestMonitor(t)
	require.Equal(t, 0, m.doCommand("# just a note"))
	require.Equal(t, 0, m.doCommand(""))
	require.Equal(t, 0, m.doCommand("   "))
	require.Empty(t, out.String())

	base := m.cycles
	m.doCommand("s 2 # advance past the write")
	require.Equal(t, base+2, m.cycles)
}

func TestMonitorUnknownCommand(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("frobnicate 1")
	require.Contains(t, out.String(), "Unknown command: frobnicate 1")
}

func TestMonitorSlaveErrorReported(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("r 0x1c")
	require.Contains(t, out.String(), "apb: slave error")
}

func TestMonitorRxFeedsReceiver(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("w 0x00 0x05") // enable + rx enable
	m.doCommand("rx 0x41")
	m.doCommand("s 20")
	m.doCommand("r 0x0c")
	require.Contains(t, out.String(), "[0x0c] = 0x00000041")
}

func TestMonitorSetSwitches(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("set tb.loopback on")
	sw, err := m.dut.FindSwitch("loopback")
	require.NoError(t, err)
	require.Equal(t, "on", sw.Get())

	m.doCommand("set uart.divisor 8")
	require.Equal(t, 8, m.dut.Uart.Divisor())

	m.doCommand("set bogus.divisor 1")
	require.Contains(t, out.String(), "unknown unit bogus")
	m.doCommand("set uart.nosuch 1")
	require.Contains(t, out.String(), "invalid switch nosuch")
}

func TestMonitorWatch(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("w 0x00 0x03") // enable + tx enable
	m.doCommand("w 0x08 0x55")
	m.doCommand("watch uart_tx_o 0 64")
	require.Contains(t, out.String(), "tb_uart_controller.uart_tx_o = 0 after")
}

func TestMonitorWatchUnknownSignal(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("watch nosuch_signal 1")
	require.Contains(t, out.String(), "unknown signal nosuch_signal")
}

func TestMonitorWatchTimesOut(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("watch uart_tx_o 0 8")
	require.Contains(t, out.String(), "did not reach 0 within 8 cycles")
}

func TestMonitorTraceLifecycle(t *testing.T) {
	m, out := newTestMonitor(t)
	path := filepath.Join(t.TempDir(), "mon.vcd")
	m.doCommand("t " + path)
	m.doCommand("t " + path)
	require.Contains(t, out.String(), "trace already open")

	m.doCommand("s 4")
	m.doCommand("tc")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "$date"))
	require.Contains(t, string(data), "$dumpvars")

	m.doCommand("tc")
	require.Contains(t, out.String(), "no trace open")
}

func TestMonitorQuitClosesTrace(t *testing.T) {
	m, _ := newTestMonitor(t)
	path := filepath.Join(t.TempDir(), "q.vcd")
	m.doCommand("t " + path)
	m.doCommand("s 2")
	require.Equal(t, -1, m.doCommand("q"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestMonitorDump(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("d")
	require.Contains(t, out.String(), "tb   cycle=")
	require.Contains(t, out.String(), "uart ctrl=00")
}

func TestMonitorReset(t *testing.T) {
	m, out := newTestMonitor(t)
	m.doCommand("w 0x10 0x0009")
	m.doCommand("reset 3")
	m.doCommand("r 0x10")
	require.Contains(t, out.String(), "[0x10] = 0x00000004")
	require.Equal(t, byte(1), m.dut.PresetnI)
}
