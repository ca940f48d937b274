package units

// FifoDepth is the depth of the transmit and receive buffers.
const FifoDepth = 16

// Fifo is a fixed-depth byte queue modeling the controller's synchronous
// FIFOs. Push and Pop happen on clock edges; overflow drops the pushed byte
// and leaves the queue intact.
type Fifo struct {
	buf  [FifoDepth]byte
	head int
	n    int
}

func (f *Fifo) Reset() {
	f.head = 0
	f.n = 0
}

// Push queues b, reporting false when the queue is full.
func (f *Fifo) Push(b byte) bool {
	if f.n == FifoDepth {
		return false
	}
	f.buf[(f.head+f.n)%FifoDepth] = b
	f.n++
	return true
}

// Pop dequeues the oldest byte; ok is false when the queue is empty.
func (f *Fifo) Pop() (b byte, ok bool) {
	if f.n == 0 {
		return 0, false
	}
	b = f.buf[f.head]
	f.head = (f.head + 1) % FifoDepth
	f.n--
	return b, true
}

// Peek returns the oldest byte without dequeuing it.
func (f *Fifo) Peek() (b byte, ok bool) {
	if f.n == 0 {
		return 0, false
	}
	return f.buf[f.head], true
}

func (f *Fifo) Len() int {
	return f.n
}

func (f *Fifo) Empty() bool {
	return f.n == 0
}

func (f *Fifo) Full() bool {
	return f.n == FifoDepth
}
