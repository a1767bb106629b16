package ddr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestEncode(t *testing.T) {
	testCases := []struct {
		name string
		req  Request
		hi   uint32
		lo   uint32
	}{
		{"write 8 at 0", Request{Dir: DirWrite, Doublewords: 8}, 0xc1c00000, 0},
		{"read 8 at 0", Request{Dir: DirRead, Doublewords: 8}, 0x41c00000, 0},
		{"write window", Request{Dir: DirWrite, Doublewords: 128, Addr: 128}, 0xdfc00000, 128},
		{"read max burst", Request{Dir: DirRead, Doublewords: MaxBurstDoublewords, Addr: 20000}, 0x7fc00000, 20000},
		{"write single", Request{Dir: DirWrite, Doublewords: 1, Addr: 0xffffffff}, 0xc0000000, 0xffffffff},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hi, lo := tc.req.Encode()
			require.Equal(t, tc.hi, hi, "hi 0x%08x", hi)
			require.Equal(t, tc.lo, lo)
			decoded, ok := DecodeRequest(hi, lo)
			require.True(t, ok)
			require.Equal(t, tc.req, decoded)
		})
	}
}

func TestDecodeRequestDisabled(t *testing.T) {
	_, ok := DecodeRequest(0x81c00000, 0)
	require.False(t, ok)
}

func TestCheckLength(t *testing.T) {
	testCases := []struct {
		n   int
		dw  int
		err error
	}{
		{8, 1, nil},
		{1024, 128, nil},
		{MaxBurstBytes, MaxBurstDoublewords, nil},
		{0, 0, ErrBadLength},
		{-8, 0, ErrBadLength},
		{12, 0, ErrBadLength},
		{MaxBurstBytes + 8, 0, ErrBurstTooLarge},
	}

	for _, tc := range testCases {
		dw, err := CheckLength(tc.n)
		if tc.err != nil {
			require.Truef(t, errors.Is(err, tc.err), "%d: unexpected %v", tc.n, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.dw, dw)
	}
}

func TestWordSplit(t *testing.T) {
	p := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	w := WordFrom(p)
	require.Equal(t, Word{Hi: 0xefcdab89, Lo: 0x67452301}, w)
	out := make([]byte, 8)
	w.Put(out)
	require.Equal(t, p, out)
}
