package lib

import "math/bits"

// Serial line levels. A UART line idles at mark; a frame is a low start
// bit, eight data bits least significant first, an optional parity bit,
// and a high stop bit.
const (
	LineIdle  byte = 1
	LineStart byte = 0
)

func BoolToInt64(b bool) int64 {
	if b {
		return int64(1)
	}
	return int64(0)
}

// ParityBit returns the parity bit for b: even parity unless odd is set.
func ParityBit(b byte, odd bool) byte {
	p := byte(bits.OnesCount8(b) & 1)
	if odd {
		p ^= 1
	}
	return p
}

// FrameBits expands b into line levels: start bit, data bits LSB first,
// optional parity bit, stop bit.
func FrameBits(b byte, parity bool, odd bool) []byte {
	frame := make([]byte, 0, 11)
	frame = append(frame, LineStart)
	for i := 0; i < 8; i++ {
		frame = append(frame, (b>>uint(i))&1)
	}
	if parity {
		frame = append(frame, ParityBit(b, odd))
	}
	frame = append(frame, LineIdle)
	return frame
}
