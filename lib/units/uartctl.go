package units

import (
	"fmt"

	. "github.com/openhdl/uartsim/lib"
)

// Register byte offsets on the APB bus.
const (
	CtrlAddr   = 0x00
	StatAddr   = 0x04
	TxDataAddr = 0x08
	RxDataAddr = 0x0C
	BaudAddr   = 0x10
	FifoAddr   = 0x14
	IntAddr    = 0x18
)

// Control register bits.
const (
	CtrlEnable    = 1 << 0
	CtrlTxEnable  = 1 << 1
	CtrlRxEnable  = 1 << 2
	CtrlParityEn  = 1 << 3
	CtrlParityOdd = 1 << 4

	ctrlMask = 0x1F
)

// Status register bits. The error bits are sticky and clear when the
// register is read.
const (
	StatTxBusy     = 1 << 0
	StatRxBusy     = 1 << 1
	StatTxFull     = 1 << 2
	StatRxEmpty    = 1 << 3
	StatParityErr  = 1 << 4
	StatFrameErr   = 1 << 5
	StatOverrunErr = 1 << 6
)

// Interrupt register bits. The low bits enable the two sources; the pending
// bits are level-sensitive and follow the condition while enabled.
const (
	IntTxEmptyEnable  = 1 << 0
	IntRxFullEnable   = 1 << 1
	IntTxEmptyPending = 1 << 2
	IntRxFullPending  = 1 << 3

	intEnableMask = 0x3
)

type rxState int

const (
	rxIdle rxState = iota
	rxStart
	rxData
	rxParity
	rxStop
)

// UartController is a cycle-accurate model of an APB UART with buffered
// transmit and receive paths, optional parity, and two level-sensitive
// interrupt lines.
//
// The bus is a zero-wait-state APB slave: an access commits on the clock
// edge that samples psel and penable both high, and pready answers
// combinationally. Reads capture their data on that edge, so read side
// effects (popping the receive queue, clearing error flags) never race the
// value returned on prdata_o.
//
// Sequential state advances on the rising edge of pclk_i while presetn_i is
// high; reset is synchronous and active low.
type UartController struct {
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

	resetDivisor int

	ctrl  uint32
	baud  int
	intEn uint32

	parityErr  bool
	frameErr   bool
	overrunErr bool

	txFifo Fifo
	rxFifo Fifo

	// Transmit engine: the frame being shifted out, bit position, and the
	// divisor countdown for the current bit period.
	txActive bool
	txFrame  []byte
	txPos    int
	txDiv    int

	// Receive engine.
	rxState rxState
	rxShift byte
	rxBit   int
	rxDiv   int

	rdata   uint32 // read data captured at the access edge
	prevClk byte
}

// NewUartController returns a controller whose baud divisor resets to
// resetDivisor clocks per bit.
func NewUartController(resetDivisor int) *UartController {
	u := &UartController{resetDivisor: resetDivisor}
	u.reset()
	u.comb()
	return u
}

// Eval propagates the current pin values: sequential logic fires on a
// rising clock edge, then combinational outputs are recomputed so they are
// consistent after every call.
func (u *UartController) Eval() {
	if u.PclkI != 0 && u.prevClk == 0 {
		if u.PresetnI == 0 {
			u.reset()
		} else {
			u.posedge()
		}
	}
	u.prevClk = u.PclkI
	u.comb()
}

func (u *UartController) reset() {
	u.ctrl = 0
	u.baud = u.resetDivisor & 0xFFFF
	u.intEn = 0
	u.parityErr = false
	u.frameErr = false
	u.overrunErr = false
	u.txFifo.Reset()
	u.rxFifo.Reset()
	u.txActive = false
	u.txFrame = nil
	u.txPos = 0
	u.txDiv = 0
	u.rxState = rxIdle
	u.rxShift = 0
	u.rxBit = 0
	u.rxDiv = 0
	u.rdata = 0
}

func (u *UartController) posedge() {
	u.stepTx()
	u.stepRx()
	u.stepBus()
}

func (u *UartController) enabled() bool {
	return u.ctrl&CtrlEnable != 0
}

func (u *UartController) txEnabled() bool {
	return u.enabled() && u.ctrl&CtrlTxEnable != 0
}

func (u *UartController) rxEnabled() bool {
	return u.enabled() && u.ctrl&CtrlRxEnable != 0
}

func (u *UartController) parityEnabled() bool {
	return u.ctrl&CtrlParityEn != 0
}

func (u *UartController) parityOdd() bool {
	return u.ctrl&CtrlParityOdd != 0
}

// ParityEnabled reports whether frames currently carry a parity bit.
func (u *UartController) ParityEnabled() bool {
	return u.parityEnabled()
}

// ParityOdd reports whether parity is odd rather than even.
func (u *UartController) ParityOdd() bool {
	return u.parityOdd()
}

func (u *UartController) divisor() int {
	if u.baud < 1 {
		return 1
	}
	return u.baud
}

// stepTx shifts the transmit engine one clock. A frame starts when the
// transmitter is idle, enabled, and has data queued; each bit then holds
// the line for one divisor period. A frame in flight always completes,
// even if the enable bits are cleared under it.
func (u *UartController) stepTx() {
	if !u.txActive {
		if !u.txEnabled() || u.txFifo.Empty() {
			return
		}
		b, _ := u.txFifo.Pop()
		u.txFrame = FrameBits(b, u.parityEnabled(), u.parityOdd())
		u.txPos = 0
		u.txDiv = u.divisor()
		u.txActive = true
		return
	}
	u.txDiv--
	if u.txDiv > 0 {
		return
	}
	u.txPos++
	u.txDiv = u.divisor()
	if u.txPos == len(u.txFrame) {
		u.txActive = false
		u.txFrame = nil
		u.txPos = 0
	}
}

// stepRx shifts the receive engine one clock. The start bit is confirmed
// half a divisor period after the falling edge, then each bit is sampled in
// the middle of its period. Parity and framing problems set sticky status
// bits; the byte is still queued so software can inspect it. A byte
// arriving at a full queue is dropped and flags an overrun.
func (u *UartController) stepRx() {
	sample := u.UartRxI & 1
	switch u.rxState {
	case rxIdle:
		if u.rxEnabled() && sample == 0 {
			u.rxState = rxStart
			u.rxDiv = u.divisor() / 2
			if u.rxDiv < 1 {
				u.rxDiv = 1
			}
		}
	case rxStart:
		u.rxDiv--
		if u.rxDiv > 0 {
			return
		}
		if sample != 0 {
			u.rxState = rxIdle // glitch, not a start bit
			return
		}
		u.rxState = rxData
		u.rxShift = 0
		u.rxBit = 0
		u.rxDiv = u.divisor()
	case rxData:
		u.rxDiv--
		if u.rxDiv > 0 {
			return
		}
		u.rxShift |= sample << uint(u.rxBit)
		u.rxBit++
		u.rxDiv = u.divisor()
		if u.rxBit == 8 {
			if u.parityEnabled() {
				u.rxState = rxParity
			} else {
				u.rxState = rxStop
			}
		}
	case rxParity:
		u.rxDiv--
		if u.rxDiv > 0 {
			return
		}
		if sample != ParityBit(u.rxShift, u.parityOdd()) {
			u.parityErr = true
		}
		u.rxState = rxStop
		u.rxDiv = u.divisor()
	case rxStop:
		u.rxDiv--
		if u.rxDiv > 0 {
			return
		}
		if sample == 0 {
			u.frameErr = true
		}
		if !u.rxFifo.Push(u.rxShift) {
			u.overrunErr = true
		}
		u.rxState = rxIdle
	}
}

// stepBus commits one APB access on the clock edge that samples psel and
// penable both high.
func (u *UartController) stepBus() {
	if u.PselI == 0 || u.PenableI == 0 {
		return
	}
	addr := u.PaddrI
	if !validAddr(addr) {
		return // pslverr answers combinationally
	}
	if u.PwriteI != 0 {
		u.writeReg(addr, u.PwdataI)
	} else {
		u.rdata = u.readReg(addr)
	}
}

func validAddr(addr uint32) bool {
	return addr <= IntAddr && addr%4 == 0
}

func (u *UartController) writeReg(addr, data uint32) {
	switch addr {
	case CtrlAddr:
		u.ctrl = data & ctrlMask
	case TxDataAddr:
		// a write to a full queue is dropped; software should check tx_full
		u.txFifo.Push(byte(data))
	case BaudAddr:
		u.baud = int(data & 0xFFFF)
	case IntAddr:
		u.intEn = data & intEnableMask
	case StatAddr, RxDataAddr, FifoAddr:
		// read-only
	}
}

func (u *UartController) readReg(addr uint32) uint32 {
	switch addr {
	case CtrlAddr:
		return u.ctrl
	case StatAddr:
		v := u.statBits()
		u.parityErr = false
		u.frameErr = false
		u.overrunErr = false
		return v
	case RxDataAddr:
		b, _ := u.rxFifo.Pop()
		return uint32(b)
	case BaudAddr:
		return uint32(u.baud)
	case FifoAddr:
		return uint32(u.txFifo.Len()) | uint32(u.rxFifo.Len())<<8
	case IntAddr:
		return u.intBits()
	}
	return 0
}

func (u *UartController) statBits() uint32 {
	var v uint32
	if u.txActive {
		v |= StatTxBusy
	}
	if u.rxState != rxIdle {
		v |= StatRxBusy
	}
	if u.txFifo.Full() {
		v |= StatTxFull
	}
	if u.rxFifo.Empty() {
		v |= StatRxEmpty
	}
	if u.parityErr {
		v |= StatParityErr
	}
	if u.frameErr {
		v |= StatFrameErr
	}
	if u.overrunErr {
		v |= StatOverrunErr
	}
	return v
}

func (u *UartController) intBits() uint32 {
	v := u.intEn
	if u.txEmptyPending() {
		v |= IntTxEmptyPending
	}
	if u.rxFullPending() {
		v |= IntRxFullPending
	}
	return v
}

func (u *UartController) txEmptyPending() bool {
	return u.intEn&IntTxEmptyEnable != 0 && u.txFifo.Empty() && !u.txActive
}

func (u *UartController) rxFullPending() bool {
	return u.intEn&IntRxFullEnable != 0 && u.rxFifo.Full()
}

// comb recomputes the combinational outputs from current state. It runs on
// every Eval so the pins are consistent between clock edges too.
func (u *UartController) comb() {
	access := u.PselI != 0 && u.PenableI != 0

	u.PreadyO = 0
	u.PslverrO = 0
	u.PrdataO = 0
	if access {
		u.PreadyO = 1
		if !validAddr(u.PaddrI) {
			u.PslverrO = 1
		} else if u.PwriteI == 0 {
			u.PrdataO = u.rdata
		}
	}

	if u.txActive && u.txPos < len(u.txFrame) {
		u.UartTxO = u.txFrame[u.txPos]
	} else {
		u.UartTxO = LineIdle
	}

	u.IrqTxEmptyO = 0
	if u.txEmptyPending() {
		u.IrqTxEmptyO = 1
	}
	u.IrqRxFullO = 0
	if u.rxFullPending() {
		u.IrqRxFullO = 1
	}
}

// Divisor returns the current baud divisor in clocks per bit.
func (u *UartController) Divisor() int {
	return u.divisor()
}

func (u *UartController) Stat() string {
	s := fmt.Sprintf("ctrl=%02x stat=%02x baud=%d tx=%d/%d rx=%d/%d",
		u.ctrl, u.statBits(), u.baud, u.txFifo.Len(), FifoDepth, u.rxFifo.Len(), FifoDepth)
	if u.txActive {
		s += fmt.Sprintf(" txbit=%d", u.txPos)
	}
	if u.rxState != rxIdle {
		s += fmt.Sprintf(" rxbit=%d", u.rxBit)
	}
	return s
}

func (u *UartController) FindSwitch(name string) (Switch, error) {
	switch name {
	case "divisor":
		return &IntSwitch{Name: name, Data: &u.baud, Min: 1}, nil
	}
	return nil, fmt.Errorf("invalid switch %s", name)
}

// attachTracer declares the controller's signals under scope and registers
// the value callback. levels counts remaining scope depth below the
// controller: at 1 only its own signals are captured, at 2 the FIFO scopes
// too.
func (u *UartController) attachTracer(t Tracer, scope string, levels int) {
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
		t.Declare(scope+"."+p.name, p.bits)
	}
	t.Declare(scope+".ctrl_reg", 5)
	t.Declare(scope+".stat_reg", 7)
	t.Declare(scope+".baud_reg", 16)
	t.Declare(scope+".int_reg", 4)
	t.Declare(scope+".tx_active", 1)
	t.Declare(scope+".tx_bit", 4)
	t.Declare(scope+".rx_state", 3)
	t.Declare(scope+".rx_shift", 8)
	t.Declare(scope+".rx_bit", 4)
	withFifos := levels >= 2
	if withFifos {
		t.Declare(scope+".tx_fifo.count", 5)
		t.Declare(scope+".tx_fifo.head", 4)
		t.Declare(scope+".rx_fifo.count", 5)
		t.Declare(scope+".rx_fifo.head", 4)
	}
	t.RegisterValueCallback(func() {
		t.LogValue(scope+".pclk_i", 1, int64(u.PclkI))
		t.LogValue(scope+".presetn_i", 1, int64(u.PresetnI))
		t.LogValue(scope+".psel_i", 1, int64(u.PselI))
		t.LogValue(scope+".penable_i", 1, int64(u.PenableI))
		t.LogValue(scope+".pwrite_i", 1, int64(u.PwriteI))
		t.LogValue(scope+".paddr_i", 32, int64(u.PaddrI))
		t.LogValue(scope+".pwdata_i", 32, int64(u.PwdataI))
		t.LogValue(scope+".prdata_o", 32, int64(u.PrdataO))
		t.LogValue(scope+".pready_o", 1, int64(u.PreadyO))
		t.LogValue(scope+".pslverr_o", 1, int64(u.PslverrO))
		t.LogValue(scope+".uart_rx_i", 1, int64(u.UartRxI))
		t.LogValue(scope+".uart_tx_o", 1, int64(u.UartTxO))
		t.LogValue(scope+".irq_tx_empty_o", 1, int64(u.IrqTxEmptyO))
		t.LogValue(scope+".irq_rx_full_o", 1, int64(u.IrqRxFullO))
		t.LogValue(scope+".ctrl_reg", 5, int64(u.ctrl))
		t.LogValue(scope+".stat_reg", 7, int64(u.statBits()))
		t.LogValue(scope+".baud_reg", 16, int64(u.baud))
		t.LogValue(scope+".int_reg", 4, int64(u.intBits()))
		t.LogValue(scope+".tx_active", 1, BoolToInt64(u.txActive))
		t.LogValue(scope+".tx_bit", 4, int64(u.txPos))
		t.LogValue(scope+".rx_state", 3, int64(u.rxState))
		t.LogValue(scope+".rx_shift", 8, int64(u.rxShift))
		t.LogValue(scope+".rx_bit", 4, int64(u.rxBit))
		if withFifos {
			t.LogValue(scope+".tx_fifo.count", 5, int64(u.txFifo.Len()))
			t.LogValue(scope+".tx_fifo.head", 4, int64(u.txFifo.head))
			t.LogValue(scope+".rx_fifo.count", 5, int64(u.rxFifo.Len()))
			t.LogValue(scope+".rx_fifo.head", 4, int64(u.rxFifo.head))
		}
	})
}
