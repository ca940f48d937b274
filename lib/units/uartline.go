package units

import (
	"github.com/pkg/errors"

	. "github.com/openhdl/uartsim/lib"
)

// LineDriver plays serial frames into the receiver's uart_rx_i pin, holding
// each bit level for Divisor clock cycles. Cycle advances the simulation
// one clock cycle and is supplied by the owner.
type LineDriver struct {
	TB      *Testbench
	Cycle   func()
	Divisor int
	Parity  bool
	Odd     bool
}

// Send shifts one byte onto the line with start, data, optional parity, and
// stop bits, then returns the line to idle.
func (d *LineDriver) Send(b byte) {
	for _, bit := range FrameBits(b, d.Parity, d.Odd) {
		d.TB.UartRxI = bit
		for i := 0; i < d.Divisor; i++ {
			d.Cycle()
		}
	}
	d.TB.UartRxI = LineIdle
}

// LineSampler decodes serial frames from the uart_tx_o pin.
type LineSampler struct {
	TB      *Testbench
	Cycle   func()
	Divisor int
	Parity  bool
	Odd     bool
}

// Recv waits up to maxWait cycles for a start bit, then samples one frame
// at bit-period midpoints and returns the decoded byte.
func (s *LineSampler) Recv(maxWait int) (byte, error) {
	waited := 0
	for s.TB.UartTxO != 0 {
		s.Cycle()
		waited++
		if waited > maxWait {
			return 0, errors.New("uartline: no start bit")
		}
	}
	for i := 0; i < s.Divisor/2; i++ {
		s.Cycle()
	}
	if s.TB.UartTxO != 0 {
		return 0, errors.New("uartline: start bit glitch")
	}
	var b byte
	for i := 0; i < 8; i++ {
		for j := 0; j < s.Divisor; j++ {
			s.Cycle()
		}
		b |= (s.TB.UartTxO & 1) << uint(i)
	}
	if s.Parity {
		for j := 0; j < s.Divisor; j++ {
			s.Cycle()
		}
		if s.TB.UartTxO != ParityBit(b, s.Odd) {
			return b, errors.New("uartline: parity mismatch")
		}
	}
	for j := 0; j < s.Divisor; j++ {
		s.Cycle()
	}
	if s.TB.UartTxO == 0 {
		return b, errors.New("uartline: missing stop bit")
	}
	return b, nil
}
