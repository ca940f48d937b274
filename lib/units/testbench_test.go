package units

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/openhdl/uartsim/lib"
	"github.com/openhdl/uartsim/lib/cycle"
)

func TestLoopbackRoundTrip(t *testing.T) {
	cfg := fastCfg()
	cfg.Loopback = true
	b := newBench(t, cfg)

	b.write(t, CtrlAddr, CtrlEnable|CtrlTxEnable|CtrlRxEnable)
	b.write(t, TxDataAddr, 'Z')
	b.run(100)

	require.Zero(t, b.read(t, StatAddr)&StatRxEmpty)
	require.Equal(t, uint32('Z'), b.read(t, RxDataAddr))
}

func TestLoopbackSwitch(t *testing.T) {
	b := newBench(t, fastCfg())

	sw, err := b.tb.FindSwitch("loopback")
	require.NoError(t, err)
	require.Equal(t, "off", sw.Get())
	require.NoError(t, sw.Set("on"))

	b.write(t, CtrlAddr, CtrlEnable|CtrlTxEnable|CtrlRxEnable)
	b.write(t, TxDataAddr, 'Q')
	b.run(100)
	require.Equal(t, uint32('Q'), b.read(t, RxDataAddr))
}

func TestFinishWatchdog(t *testing.T) {
	cfg := Default()
	cfg.FinishAfter = 5
	sim := NewSim(cfg)
	tb := NewTestbench(sim)
	tb.UartRxI = LineIdle

	tb.PresetnI = 0
	cycle.Advance(cycle.Conn{Model: tb}, 3, 0)
	require.False(t, sim.GotFinish())
	require.Equal(t, 0, tb.Cycles())

	tb.PresetnI = 1
	done := cycle.Advance(cycle.Conn{Model: tb, Stop: sim.GotFinish}, 100, 0)
	require.Equal(t, 5, done)
	require.Equal(t, 5, tb.Cycles())
	require.True(t, sim.GotFinish())
}

func TestFinishDisabled(t *testing.T) {
	sim := NewSim(Default())
	tb := NewTestbench(sim)
	tb.UartRxI = LineIdle
	tb.PresetnI = 1

	done := cycle.Advance(cycle.Conn{Model: tb, Stop: sim.GotFinish}, 50, 0)
	require.Equal(t, 50, done)
	require.False(t, sim.GotFinish())
}

func TestFinishSwitch(t *testing.T) {
	sim := NewSim(Default())
	tb := NewTestbench(sim)
	tb.UartRxI = LineIdle
	tb.PresetnI = 1

	sw, err := tb.FindSwitch("finish")
	require.NoError(t, err)
	require.NoError(t, sw.Set("7"))

	done := cycle.Advance(cycle.Conn{Model: tb, Stop: sim.GotFinish}, 100, 0)
	require.Equal(t, 7, done)

	_, err = tb.FindSwitch("bogus")
	require.Error(t, err)
}

func TestDivisorSwitch(t *testing.T) {
	b := newBench(t, fastCfg())

	sw, err := b.tb.Uart.FindSwitch("divisor")
	require.NoError(t, err)
	require.Equal(t, "4", sw.Get())
	require.NoError(t, sw.Set("8"))
	require.Equal(t, 8, b.tb.Uart.Divisor())
}

func TestTraceLevels(t *testing.T) {
	benchPorts := 14

	p1 := NewProbe()
	NewTestbench(NewSim(Default())).Trace(p1, 1)
	require.Len(t, p1.Signals(), benchPorts)

	p2 := NewProbe()
	NewTestbench(NewSim(Default())).Trace(p2, 2)
	require.Len(t, p2.Signals(), benchPorts+14+9)

	p3 := NewProbe()
	NewTestbench(NewSim(Default())).Trace(p3, 99)
	require.Len(t, p3.Signals(), benchPorts+14+9+4)

	for _, d := range p3.Signals() {
		require.True(t, strings.HasPrefix(d.Name, "tb_uart_controller."),
			"signal %s outside the bench scope", d.Name)
	}
}

func TestTraceValuesFollowPins(t *testing.T) {
	sim := NewSim(Default())
	tb := NewTestbench(sim)
	tb.UartRxI = LineIdle
	tb.PresetnI = 1

	p := NewProbe()
	tb.Trace(p, 99)
	cycle.Advance(cycle.Conn{Model: tb, Tracer: p}, 2, 0)

	v, ok := p.Value("tb_uart_controller.pclk_i")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = p.Value("tb_uart_controller.presetn_i")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = p.Value("tb_uart_controller.u_uart_controller.uart_tx_o")
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = p.Value("tb_uart_controller.u_uart_controller.stat_reg")
	require.True(t, ok)
	require.Equal(t, int64(StatRxEmpty), v)
}

func TestBenchStat(t *testing.T) {
	b := newBench(t, fastCfg())
	b.run(5)

	require.Contains(t, b.tb.Stat(), "cycle=")
	require.Contains(t, b.tb.Uart.Stat(), "ctrl=00")
	require.Contains(t, b.tb.Uart.Stat(), "baud=4")
}
