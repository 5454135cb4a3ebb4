package negentropy_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nostrsync/negentropy"
)

const (
	hexID1 = "1111111111111111111111111111111111111111111111111111111111111111"
	hexID2 = "2222222222222222222222222222222222222222222222222222222222222222"
	hexID3 = "3333333333333333333333333333333333333333333333333333333333333333"
	hexID4 = "4444444444444444444444444444444444444444444444444444444444444444"
)

func TestParseHexID(t *testing.T) {
	id, err := negentropy.ParseHexID(hexID1)
	require.NoError(t, err)
	require.Equal(t, hexID1, id.String())
	require.Equal(t, "1111111111", id.ShortString())

	_, err = negentropy.ParseHexID("zz")
	require.Error(t, err)

	_, err = negentropy.ParseHexID("abcd")
	require.ErrorIs(t, err, negentropy.ErrProtocol)

	require.Panics(t, func() { negentropy.MustParseHexID("abcd") })
}

func TestIDFromBytes(t *testing.T) {
	b := make([]byte, negentropy.IDSize)
	b[0] = 0xfe
	id, err := negentropy.IDFromBytes(b)
	require.NoError(t, err)
	b[0] = 0
	require.Equal(t, byte(0xfe), id[0])

	_, err = negentropy.IDFromBytes(b[:31])
	require.ErrorIs(t, err, negentropy.ErrProtocol)
}

func TestRecordOrdering(t *testing.T) {
	early := negentropy.Record{Timestamp: 100, ID: negentropy.MustParseHexID(hexID2)}
	tieLow := negentropy.Record{Timestamp: 200, ID: negentropy.MustParseHexID(hexID1)}
	tieHigh := negentropy.Record{Timestamp: 200, ID: negentropy.MustParseHexID(hexID3)}

	require.Negative(t, early.Compare(tieLow))
	require.Negative(t, tieLow.Compare(tieHigh))
	require.Zero(t, tieLow.Compare(tieLow))
	require.Positive(t, tieHigh.Compare(early))
}

func TestSortRecords(t *testing.T) {
	want := []negentropy.Record{
		{Timestamp: 100, ID: negentropy.MustParseHexID(hexID4)},
		{Timestamp: 200, ID: negentropy.MustParseHexID(hexID1)},
		{Timestamp: 200, ID: negentropy.MustParseHexID(hexID2)},
		{Timestamp: 300, ID: negentropy.MustParseHexID(hexID3)},
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		records := slices.Clone(want)
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
		negentropy.SortRecords(records)
		require.Equal(t, want, records)
	}
}

func TestRecordString(t *testing.T) {
	r := negentropy.Record{Timestamp: 1700000000, ID: negentropy.MustParseHexID(hexID1)}
	require.Equal(t, "1700000000/1111111111", r.String())
}
