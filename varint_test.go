package negentropy

import (
	"bytes"
	"math"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
)

func TestVarintEncoding(t *testing.T) {
	for _, tc := range []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{300, []byte{0x82, 0x2c}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x81, 0x80, 0x00}},
		{math.MaxUint64, []byte{0x81, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	} {
		enc := encodeVarint(tc.v)
		require.Equal(t, tc.want, enc, "value %d", tc.v)
		require.Equal(t, len(tc.want), varintLen(tc.v), "length of %d", tc.v)
	}
}

func TestVarintMaxHighBits(t *testing.T) {
	enc := encodeVarint(math.MaxUint64)
	require.Len(t, enc, maxVarintLen)
	for i, b := range enc[:len(enc)-1] {
		require.NotZero(t, b&0x80, "byte %d", i)
	}
	require.Zero(t, enc[len(enc)-1]&0x80)
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 2, 127, 128, 255, 256,
		1<<14 - 1, 1 << 14, 1<<21 - 1, 1 << 21, 1 << 42,
		math.MaxUint64 - 1, math.MaxUint64,
	}
	f := fuzz.NewWithSeed(1001)
	for i := 0; i < 1000; i++ {
		var v uint64
		f.Fuzz(&v)
		values = append(values, v)
	}
	for _, v := range values {
		enc := appendVarint(nil, v)
		got, n, err := decodeVarint(enc)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(enc), n)
	}
}

func TestVarintIgnoresTrailingData(t *testing.T) {
	enc := append(encodeVarint(777), 0xaa, 0xbb)
	got, n, err := decodeVarint(enc)
	require.NoError(t, err)
	require.Equal(t, uint64(777), got)
	require.Equal(t, len(enc)-2, n)
}

func TestVarintAcceptsNonMinimal(t *testing.T) {
	// A leading zero group is wasteful but not an error.
	got, n, err := decodeVarint([]byte{0x80, 0x81, 0x7f})
	require.NoError(t, err)
	require.Equal(t, uint64(255), got)
	require.Equal(t, 3, n)
}

func TestVarintDecodeErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		buf  []byte
	}{
		{"empty input", nil},
		{"missing final byte", []byte{0x80}},
		{"truncated", []byte{0xff, 0xff, 0xff}},
		{"continuation never clears", bytes.Repeat([]byte{0x80}, 10)},
		{"continuation past limit", bytes.Repeat([]byte{0x80}, 11)},
		{"one past max", []byte{0x82, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}},
		{"all groups full", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decodeVarint(tc.buf)
			require.ErrorIs(t, err, ErrVarint)
		})
	}
}
