package negentropy

import (
	"fmt"
	"math"
)

// maxVarintLen is the longest legal encoding: 64 bits split into base-128
// groups never need more than 10 bytes.
const maxVarintLen = 10

// appendVarint appends the variable-length encoding of v to dst and
// returns the extended slice. The encoding is big-endian base 128: the
// most significant 7-bit group comes first and every byte except the last
// has its high bit set. Zero encodes as the single byte 0x00.
func appendVarint(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, 0)
	}
	var tmp [maxVarintLen]byte
	i := len(tmp)
	for ; v != 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	tmp[len(tmp)-1] &^= 0x80
	return append(dst, tmp[i:]...)
}

// encodeVarint returns the variable-length encoding of v.
func encodeVarint(v uint64) []byte {
	return appendVarint(make([]byte, 0, maxVarintLen), v)
}

// varintLen returns the encoded length of v in bytes without allocating.
func varintLen(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// decodeVarint reads one varint from the head of buf, returning the value
// and the number of bytes consumed. Decoding is all-or-nothing: on error
// nothing is considered consumed. All errors wrap ErrVarint.
func decodeVarint(buf []byte) (uint64, int, error) {
	var v uint64
	for i, b := range buf {
		if i == maxVarintLen {
			return 0, 0, fmt.Errorf("%w: continuation past %d bytes", ErrVarint, maxVarintLen)
		}
		if v > math.MaxUint64>>7 {
			return 0, 0, fmt.Errorf("%w: value overflows uint64", ErrVarint)
		}
		v = v<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: empty input", ErrVarint)
	}
	return 0, 0, fmt.Errorf("%w: truncated after %d bytes", ErrVarint, len(buf))
}
