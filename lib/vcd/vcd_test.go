package vcd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDCode(t *testing.T) {
	if got := idCode(0); got != "!" {
		t.Errorf("expected ! got %s", got)
	}
	if got := idCode(93); got != "~" {
		t.Errorf("expected ~ got %s", got)
	}
	if got := idCode(94); got != "!!" {
		t.Errorf("expected !! got %s", got)
	}
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := idCode(i)
		if seen[id] {
			t.Errorf("duplicate id %s at %d", id, i)
		}
		seen[id] = true
	}
}

func TestWriterFileLayout(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)
	w.Declare("tb.u.count", 4)

	clk := int64(0)
	count := int64(0)
	w.RegisterValueCallback(func() {
		w.LogValue("tb.clk", 1, clk)
		w.LogValue("tb.u.count", 4, count)
	})

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	w.Dump(0)
	clk = 1
	w.Dump(1)
	clk = 0
	count = 5
	w.Dump(2)
	w.Dump(3)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := `$date
	unknown
$end
$version
	uartsim trace
$end
$timescale
	10ns
$end
$scope module tb $end
$var wire 1 ! clk $end
$scope module u $end
$var wire 4 " count $end
$upscope $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
b0 "
$end
#1
1!
#2
0!
b101 "
#3
`
	require.Equal(t, expected, string(data))
}

func TestWriterMasksWideValues(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.word", 4)
	v := int64(-1)
	w.RegisterValueCallback(func() {
		w.LogValue("tb.word", 4, v)
	})

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	w.Dump(0)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "b1111 !")
}

func TestWriterNonMonotonicTimestamps(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)
	clk := int64(0)
	w.RegisterValueCallback(func() {
		w.LogValue("tb.clk", 1, clk)
	})

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	w.Dump(0)
	w.Dump(1)
	w.Dump(0) // time rewinds, as when a phase restarts its counter
	w.Dump(1)
	w.Dump(2)
	require.Equal(t, 1, w.NonMonotonic())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(data), "#0\n"))
	require.Equal(t, 2, strings.Count(string(data), "#1\n"))
}

func TestWriterCloseTwice(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	require.NoError(t, w.Close())
	require.Error(t, w.Close())
}

func TestWriterCloseBeforeOpen(t *testing.T) {
	w := NewWriter()
	require.Error(t, w.Close())
}

func TestWriterDeclareAfterOpen(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	w.Declare("tb.late", 1)
	require.Error(t, w.Close())
}

func TestWriterUndeclaredSignal(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)
	w.RegisterValueCallback(func() {
		w.LogValue("tb.mystery", 1, 0)
	})

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.NoError(t, w.Open(path))
	w.Dump(0)
	require.Error(t, w.Close())
}

func TestWriterDumpBeforeOpen(t *testing.T) {
	w := NewWriter()
	w.Declare("tb.clk", 1)
	w.Dump(0)

	path := filepath.Join(t.TempDir(), "out.vcd")
	require.Error(t, w.Open(path))
}

func TestWriterDeterministicBytes(t *testing.T) {
	write := func(path string) {
		w := NewWriter()
		w.Declare("tb.clk", 1)
		w.Declare("tb.data", 8)
		clk := int64(0)
		w.RegisterValueCallback(func() {
			w.LogValue("tb.clk", 1, clk)
			w.LogValue("tb.data", 8, 0x42)
		})
		require.NoError(t, w.Open(path))
		for i := 0; i < 10; i++ {
			clk = int64(i % 2)
			w.Dump(uint64(i))
		}
		require.NoError(t, w.Close())
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "a.vcd")
	second := filepath.Join(dir, "b.vcd")
	write(first)
	write(second)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
