package ddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesAvailable(t *testing.T) {
	const c = 4096
	testCases := []struct {
		name   string
		start  uint32
		cur    uint32
		expect uint32
	}{
		{"nothing yet", 0, 0, 0},
		{"same phase", 64, 1088, 1024},
		{"wrapped into odd phase", c - 16, c | 8, 24},
		{"wrapped into even phase", c | (c - 16), 8, 24},
		{"odd phase no wrap", c | 8, c | 40, 32},
		{"full lap", c | 0, 0, c},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, BytesAvailable(tc.start, tc.cur, c))
		})
	}
}

type windowReads struct {
	Registers
	ring  []byte
	reads [][2]int
}

func (w *windowReads) ReadWindow(off uint32, p []byte) {
	w.reads = append(w.reads, [2]int{int(off), len(p)})
	copy(p, w.ring[off:])
}

func TestCopyRing(t *testing.T) {
	ring := make([]byte, 16)
	for i := range ring {
		ring[i] = byte(i)
	}

	w := &windowReads{ring: ring}
	out := make([]byte, 8)
	copyRing(w, 16, 12, out)
	require.Equal(t, []byte{12, 13, 14, 15, 0, 1, 2, 3}, out)
	require.Equal(t, [][2]int{{12, 4}, {0, 4}}, w.reads)

	w = &windowReads{ring: ring}
	copyRing(w, 16, 16+4, out)
	require.Equal(t, []byte{4, 5, 6, 7, 8, 9, 10, 11}, out)
	require.Equal(t, [][2]int{{4, 8}}, w.reads)

	w = &windowReads{ring: ring}
	copyRing(w, 16, 8, out)
	require.Equal(t, []byte{8, 9, 10, 11, 12, 13, 14, 15}, out)
	require.Len(t, w.reads, 1)
}
