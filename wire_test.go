package negentropy_test

import (
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/nostrsync/negentropy"
)

func TestMessageRoundTrip(t *testing.T) {
	fp := negentropy.CalculateFingerprint([]negentropy.ID{negentropy.MustParseHexID(hexID1)})
	msg := &negentropy.Message{Ranges: []negentropy.Range{
		negentropy.SkipRange(negentropy.Bound{Timestamp: 100}),
		negentropy.FingerprintRange(negentropy.Bound{Timestamp: 200, Prefix: []byte{0xaa, 0xbb}}, fp),
		negentropy.IDListRange(negentropy.Bound{Timestamp: 300}, []negentropy.ID{
			negentropy.MustParseHexID(hexID1),
			negentropy.MustParseHexID(hexID2),
		}),
		negentropy.SkipRange(negentropy.InfinityBound()),
	}}

	got, err := negentropy.DecodeMessage(msg.Encode())
	require.NoError(t, err)
	require.Equal(t, msg, got)

	got, err = negentropy.DecodeHexMessage(msg.EncodeHex())
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestMessageEncodeExactBytes(t *testing.T) {
	id := negentropy.MustParseHexID(hexID1)
	msg := &negentropy.Message{Ranges: []negentropy.Range{
		negentropy.IDListRange(negentropy.InfinityBound(), []negentropy.ID{id}),
	}}
	want := append([]byte{0x61, 0x00, 0x00, 0x02, 0x01}, id[:]...)
	require.Equal(t, want, msg.Encode())

	var fp negentropy.Fingerprint
	for i := range fp {
		fp[i] = 0xaa
	}
	msg = &negentropy.Message{Ranges: []negentropy.Range{
		negentropy.FingerprintRange(negentropy.Bound{Timestamp: 500}, fp),
		negentropy.SkipRange(negentropy.InfinityBound()),
	}}
	want = []byte{0x61, 0x83, 0x75, 0x00, 0x01}
	want = append(want, fp[:]...)
	want = append(want, 0x00, 0x00, 0x00)
	require.Equal(t, want, msg.Encode())
}

func TestDecodeMessageErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		data     []byte
		err      error
		contains string
	}{
		{
			name:     "empty message",
			err:      negentropy.ErrProtocol,
			contains: "empty message",
		},
		{
			name:     "not negentropy",
			data:     []byte{0x41, 0x01, 0x00, 0x00},
			err:      negentropy.ErrProtocol,
			contains: "not a negentropy message",
		},
		{
			name:     "future version",
			data:     []byte{0x62, 0x01, 0x00, 0x00},
			err:      negentropy.ErrProtocol,
			contains: "unsupported protocol version 2",
		},
		{
			name: "truncated bound timestamp",
			data: []byte{0x61, 0x80},
			err:  negentropy.ErrVarint,
		},
		{
			name: "oversized bound prefix",
			data: []byte{0x61, 0x01, 0x21},
			err:  negentropy.ErrProtocol,
		},
		{
			name: "truncated bound prefix",
			data: []byte{0x61, 0x01, 0x02, 0xaa},
			err:  negentropy.ErrProtocol,
		},
		{
			name: "unknown range mode",
			data: []byte{0x61, 0x01, 0x00, 0x03},
			err:  negentropy.ErrProtocol,
		},
		{
			name: "truncated fingerprint",
			data: []byte{0x61, 0x01, 0x00, 0x01, 0xde, 0xad, 0xbe, 0xef},
			err:  negentropy.ErrProtocol,
		},
		{
			name: "id list exceeds payload",
			data: []byte{0x61, 0x01, 0x00, 0x02, 0x05},
			err:  negentropy.ErrProtocol,
		},
		{
			name:     "bound does not increase",
			data:     []byte{0x61, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00},
			err:      negentropy.ErrProtocol,
			contains: "does not increase",
		},
		{
			name:     "bound after infinity",
			data:     []byte{0x61, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00},
			err:      negentropy.ErrProtocol,
			contains: "does not increase",
		},
		{
			name: "partial trailing range",
			data: []byte{0x61, 0x01, 0x00, 0x00, 0x01},
			err:  negentropy.ErrVarint,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := negentropy.DecodeMessage(tc.data)
			require.ErrorIs(t, err, tc.err)
			if tc.contains != "" {
				require.ErrorContains(t, err, tc.contains)
			}
		})
	}
}

func TestDecodeHexMessage(t *testing.T) {
	_, err := negentropy.DecodeHexMessage("zz")
	require.ErrorIs(t, err, negentropy.ErrCodec)

	_, err = negentropy.DecodeHexMessage("6")
	require.ErrorIs(t, err, negentropy.ErrCodec)

	// Hex errors are framing errors, decoded-byte errors are not.
	_, err = negentropy.DecodeHexMessage("41")
	require.ErrorIs(t, err, negentropy.ErrProtocol)
	require.NotErrorIs(t, err, negentropy.ErrCodec)
}

func TestMessageIsComplete(t *testing.T) {
	inf := negentropy.InfinityBound()
	var fp negentropy.Fingerprint
	for _, tc := range []struct {
		name   string
		ranges []negentropy.Range
		want   bool
	}{
		{"empty", nil, true},
		{"skip", []negentropy.Range{negentropy.SkipRange(inf)}, true},
		{"fingerprint", []negentropy.Range{negentropy.FingerprintRange(inf, fp)}, false},
		{"id list then skip", []negentropy.Range{
			negentropy.IDListRange(negentropy.Bound{Timestamp: 10}, nil),
			negentropy.SkipRange(inf),
		}, true},
		{"fingerprint in the middle", []negentropy.Range{
			negentropy.SkipRange(negentropy.Bound{Timestamp: 10}),
			negentropy.FingerprintRange(negentropy.Bound{Timestamp: 20}, fp),
			negentropy.SkipRange(inf),
		}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			msg := &negentropy.Message{Ranges: tc.ranges}
			require.Equal(t, tc.want, msg.IsComplete())
		})
	}
}

func TestMessageRoundTripFuzz(t *testing.T) {
	f := fuzz.NewWithSeed(1001).NumElements(1, 64)
	for i := 0; i < 100; i++ {
		var records []negentropy.Record
		f.Fuzz(&records)
		for j := range records {
			// Keep timestamps below the infinity sentinel.
			records[j].Timestamp %= math.MaxUint64
		}
		negentropy.SortRecords(records)
		records = slices.Compact(records)

		msg := &negentropy.Message{}
		for j, rec := range records {
			upper := negentropy.BoundFromRecord(rec)
			switch j % 3 {
			case 0:
				msg.Ranges = append(msg.Ranges, negentropy.SkipRange(upper))
			case 1:
				msg.Ranges = append(msg.Ranges,
					negentropy.FingerprintRange(upper, negentropy.CalculateFingerprint([]negentropy.ID{rec.ID})))
			case 2:
				msg.Ranges = append(msg.Ranges,
					negentropy.IDListRange(upper, []negentropy.ID{rec.ID}))
			}
		}

		got, err := negentropy.DecodeMessage(msg.Encode())
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(msg, got))
	}
}

func TestMessageClone(t *testing.T) {
	msg := &negentropy.Message{Ranges: []negentropy.Range{
		negentropy.IDListRange(negentropy.Bound{Timestamp: 10, Prefix: []byte{1, 2}},
			[]negentropy.ID{negentropy.MustParseHexID(hexID1)}),
	}}
	clone := msg.Clone()
	msg.Ranges[0].UpperBound.Prefix[0] = 9
	msg.Ranges[0].IDs[0] = negentropy.MustParseHexID(hexID2)
	require.Equal(t, []byte{1, 2}, clone.Ranges[0].UpperBound.Prefix)
	require.Equal(t, negentropy.MustParseHexID(hexID1), clone.Ranges[0].IDs[0])

	var nilMsg *negentropy.Message
	require.Nil(t, nilMsg.Clone())
}

func TestModeString(t *testing.T) {
	require.Equal(t, "skip", negentropy.ModeSkip.String())
	require.Equal(t, "fingerprint", negentropy.ModeFingerprint.String())
	require.Equal(t, "idlist", negentropy.ModeIDList.String())
	require.Equal(t, "<unknown 9>", negentropy.Mode(9).String())
}
