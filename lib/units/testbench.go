package units

import (
	"fmt"

	. "github.com/openhdl/uartsim/lib"
)

// Testbench is the simulated toplevel: the UART controller plus the bench
// plumbing around it. It mirrors its pins onto the controller every Eval,
// optionally loops the transmit line back into the receiver, and counts
// post-reset clock cycles for the finish watchdog.
//
// The driver owns the pins: it writes the inputs, steps the clock, and
// reads the outputs after each Eval.
type Testbench struct {
	PclkI    byte
	PresetnI byte
	PselI    byte
	PenableI byte
	PwriteI  byte
	PaddrI   uint32
	PwdataI  uint32
	UartRxI  byte

	PrdataO     uint32
	PreadyO     byte
	PslverrO    byte
	UartTxO     byte
	IrqTxEmptyO byte
	IrqRxFullO  byte

	Uart *UartController

	sim         *Sim
	loopback    bool
	finishAfter int
	cycles      int // post-reset rising edges seen
	prevClk     byte
}

var _ Model = (*Testbench)(nil)

func NewTestbench(sim *Sim) *Testbench {
	return &Testbench{
		Uart:        NewUartController(sim.Cfg.Divisor),
		sim:         sim,
		loopback:    sim.Cfg.Loopback,
		finishAfter: sim.Cfg.FinishAfter,
	}
}

func (u *Testbench) SetClock(level byte) {
	u.PclkI = level
}

func (u *Testbench) Eval() {
	u.Uart.PclkI = u.PclkI
	u.Uart.PresetnI = u.PresetnI
	u.Uart.PselI = u.PselI
	u.Uart.PenableI = u.PenableI
	u.Uart.PwriteI = u.PwriteI
	u.Uart.PaddrI = u.PaddrI
	u.Uart.PwdataI = u.PwdataI
	if u.loopback {
		// the receiver sees the transmit line as of the previous Eval
		u.Uart.UartRxI = u.Uart.UartTxO
	} else {
		u.Uart.UartRxI = u.UartRxI
	}

	u.Uart.Eval()

	u.PrdataO = u.Uart.PrdataO
	u.PreadyO = u.Uart.PreadyO
	u.PslverrO = u.Uart.PslverrO
	u.UartTxO = u.Uart.UartTxO
	u.IrqTxEmptyO = u.Uart.IrqTxEmptyO
	u.IrqRxFullO = u.Uart.IrqRxFullO

	if u.PclkI != 0 && u.prevClk == 0 {
		if u.PresetnI == 0 {
			u.cycles = 0
		} else {
			u.cycles++
			if u.finishAfter > 0 && u.cycles >= u.finishAfter && u.sim != nil {
				u.sim.Finish()
			}
		}
	}
	u.prevClk = u.PclkI
}

// Cycles returns how many rising clock edges the bench has seen since
// reset was released.
func (u *Testbench) Cycles() int {
	return u.cycles
}

func (u *Testbench) Stat() string {
	s := fmt.Sprintf("cycle=%d loopback=%v", u.cycles, u.loopback)
	if u.finishAfter > 0 {
		s += fmt.Sprintf(" finish=%d", u.finishAfter)
	}
	return s
}

func (u *Testbench) FindSwitch(name string) (Switch, error) {
	switch name {
	case "loopback":
		return &BoolSwitch{Name: name, Data: &u.loopback}, nil
	case "finish":
		return &IntSwitch{Name: name, Data: &u.finishAfter, Min: 0}, nil
	}
	return nil, fmt.Errorf("invalid switch %s", name)
}

// Trace declares the bench ports and, below level 1, the controller's
// hierarchy.
func (u *Testbench) Trace(t Tracer, levels int) {
	const top = "tb_uart_controller"
	ports := []struct {
		name string
		bits int
	}{
		{"pclk_i", 1}, {"presetn_i", 1}, {"psel_i", 1}, {"penable_i", 1},
		{"pwrite_i", 1}, {"paddr_i", 32}, {"pwdata_i", 32}, {"prdata_o", 32},
		{"pready_o", 1}, {"pslverr_o", 1}, {"uart_rx_i", 1}, {"uart_tx_o", 1},
		{"irq_tx_empty_o", 1}, {"irq_rx_full_o", 1},
	}
	for _, p := range ports {
		t.Declare(top+"."+p.name, p.bits)
	}
	t.RegisterValueCallback(func() {
		t.LogValue(top+".pclk_i", 1, int64(u.PclkI))
		t.LogValue(top+".presetn_i", 1, int64(u.PresetnI))
		t.LogValue(top+".psel_i", 1, int64(u.PselI))
		t.LogValue(top+".penable_i", 1, int64(u.PenableI))
		t.LogValue(top+".pwrite_i", 1, int64(u.PwriteI))
		t.LogValue(top+".paddr_i", 32, int64(u.PaddrI))
		t.LogValue(top+".pwdata_i", 32, int64(u.PwdataI))
		t.LogValue(top+".prdata_o", 32, int64(u.PrdataO))
		t.LogValue(top+".pready_o", 1, int64(u.PreadyO))
		t.LogValue(top+".pslverr_o", 1, int64(u.PslverrO))
		t.LogValue(top+".uart_rx_i", 1, int64(u.UartRxI))
		t.LogValue(top+".uart_tx_o", 1, int64(u.UartTxO))
		t.LogValue(top+".irq_tx_empty_o", 1, int64(u.IrqTxEmptyO))
		t.LogValue(top+".irq_rx_full_o", 1, int64(u.IrqRxFullO))
	})
	if levels >= 2 {
		u.Uart.attachTracer(t, top+".u_uart_controller", levels-1)
	}
}
