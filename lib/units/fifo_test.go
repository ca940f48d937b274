package units

import (
	"testing"
)

func TestFifoPushPop(t *testing.T) {
	var f Fifo
	if !f.Empty() {
		t.Errorf("expected new fifo empty")
	}
	if !f.Push(0x41) || !f.Push(0x42) {
		t.Errorf("push failed on non-full fifo")
	}
	if got := f.Len(); got != 2 {
		t.Errorf("expected len 2 got %d", got)
	}
	b, ok := f.Pop()
	if !ok || b != 0x41 {
		t.Errorf("expected 0x41 got %#x ok=%v", b, ok)
	}
	b, ok = f.Pop()
	if !ok || b != 0x42 {
		t.Errorf("expected 0x42 got %#x ok=%v", b, ok)
	}
	if _, ok := f.Pop(); ok {
		t.Errorf("expected pop on empty fifo to fail")
	}
}

func TestFifoOverflowDrops(t *testing.T) {
	var f Fifo
	for i := 0; i < FifoDepth; i++ {
		if !f.Push(byte(i)) {
			t.Fatalf("push %d failed before fifo full", i)
		}
	}
	if !f.Full() {
		t.Errorf("expected fifo full")
	}
	if f.Push(0xFF) {
		t.Errorf("expected push on full fifo to fail")
	}
	if got := f.Len(); got != FifoDepth {
		t.Errorf("expected len %d got %d", FifoDepth, got)
	}
	b, _ := f.Peek()
	if b != 0 {
		t.Errorf("overflow corrupted head: got %#x", b)
	}
}

func TestFifoWraparound(t *testing.T) {
	var f Fifo
	for round := 0; round < 3; round++ {
		for i := 0; i < FifoDepth; i++ {
			f.Push(byte(round*FifoDepth + i))
		}
		for i := 0; i < FifoDepth; i++ {
			b, ok := f.Pop()
			expected := byte(round*FifoDepth + i)
			if !ok || b != expected {
				t.Fatalf("round %d: expected %#x got %#x ok=%v", round, expected, b, ok)
			}
		}
	}
}

func TestFifoReset(t *testing.T) {
	var f Fifo
	f.Push(1)
	f.Push(2)
	f.Reset()
	if !f.Empty() {
		t.Errorf("expected fifo empty after reset")
	}
	if _, ok := f.Pop(); ok {
		t.Errorf("expected pop after reset to fail")
	}
}
