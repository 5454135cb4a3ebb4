package negentropy

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
)

// TimestampInfinity is the reserved timestamp sentinel that sorts above
// every real timestamp. It never travels literally on the wire: an
// infinity bound encodes as a zero timestamp delta. Record timestamps must
// stay below it.
const TimestampInfinity uint64 = math.MaxUint64

// Bound is an exclusive cut point in the (timestamp, id) keyspace. A bound
// with an empty prefix sits below every id at its timestamp; a bound with
// a partial prefix sits below every id that extends the prefix. Within a
// message, each range covers the keys from the previous range's bound
// (inclusive) up to its own (exclusive).
type Bound struct {
	Timestamp uint64
	Prefix    []byte
}

// NewBound builds a bound from a timestamp and an id prefix of at most
// IDSize bytes. The prefix is copied.
func NewBound(timestamp uint64, prefix []byte) (Bound, error) {
	if len(prefix) > IDSize {
		return Bound{}, fmt.Errorf("%w: id prefix of %d bytes", ErrProtocol, len(prefix))
	}
	return Bound{Timestamp: timestamp, Prefix: slices.Clone(prefix)}, nil
}

// ZeroBound returns the bound below every possible record.
func ZeroBound() Bound { return Bound{} }

// InfinityBound returns the bound above every possible record. It closes
// the final range of every message.
func InfinityBound() Bound { return Bound{Timestamp: TimestampInfinity} }

// BoundFromRecord returns the bound that cuts exactly at r's own key, so
// that r is the first record at or above it.
func BoundFromRecord(r Record) Bound {
	return Bound{Timestamp: r.Timestamp, Prefix: slices.Clone(r.ID[:])}
}

// IsInfinity reports whether b sorts above every record.
func (b Bound) IsInfinity() bool { return b.Timestamp == TimestampInfinity }

// Compare returns -1, 0 or 1 ordering bounds by (Timestamp, Prefix). A
// shorter prefix sorts below every longer prefix extending it.
func (b Bound) Compare(other Bound) int {
	if b.Timestamp != other.Timestamp {
		return cmp.Compare(b.Timestamp, other.Timestamp)
	}
	return bytes.Compare(b.Prefix, other.Prefix)
}

// CompareRecord orders the bound against a record key. A record r lies
// inside [lower, upper) exactly when lower.CompareRecord(r) <= 0 and
// upper.CompareRecord(r) > 0.
func (b Bound) CompareRecord(r Record) int {
	if b.Timestamp != r.Timestamp {
		return cmp.Compare(b.Timestamp, r.Timestamp)
	}
	return bytes.Compare(b.Prefix, r.ID[:])
}

// String implements fmt.Stringer.
func (b Bound) String() string {
	if b.IsInfinity() {
		return "(inf)"
	}
	if len(b.Prefix) == 0 {
		return fmt.Sprintf("(%d)", b.Timestamp)
	}
	return fmt.Sprintf("(%d/%s)", b.Timestamp, hex.EncodeToString(b.Prefix))
}

// appendTo appends the relative encoding of b to dst: the timestamp delta
// since prev offset by one (zero is reserved for infinity), then the
// prefix length and prefix bytes. It returns the extended slice and the
// timestamp context for the next bound in the message.
func (b Bound) appendTo(dst []byte, prev uint64) ([]byte, uint64) {
	if b.Timestamp == TimestampInfinity {
		dst = appendVarint(dst, 0)
		prev = TimestampInfinity
	} else {
		dst = appendVarint(dst, b.Timestamp-prev+1)
		prev = b.Timestamp
	}
	dst = appendVarint(dst, uint64(len(b.Prefix)))
	return append(dst, b.Prefix...), prev
}

// encodedLen returns the wire size of b given the running timestamp
// context, plus the context for the bound after it.
func (b Bound) encodedLen(prev uint64) (int, uint64) {
	var deltaLen int
	if b.Timestamp == TimestampInfinity {
		deltaLen = 1
		prev = TimestampInfinity
	} else {
		deltaLen = varintLen(b.Timestamp - prev + 1)
		prev = b.Timestamp
	}
	return deltaLen + varintLen(uint64(len(b.Prefix))) + len(b.Prefix), prev
}

// decodeBound reads one bound from the head of buf using the running
// timestamp context, returning the bound, the bytes consumed and the
// context for the next bound. Once the context has saturated at infinity
// every later timestamp decodes as infinity too, which the caller's
// monotonicity check then rejects.
func decodeBound(buf []byte, prev uint64) (Bound, int, uint64, error) {
	delta, n, err := decodeVarint(buf)
	if err != nil {
		return Bound{}, 0, 0, fmt.Errorf("bound timestamp: %w", err)
	}
	var b Bound
	switch {
	case delta == 0:
		b.Timestamp = TimestampInfinity
	case prev == TimestampInfinity:
		b.Timestamp = TimestampInfinity
	default:
		b.Timestamp = prev + delta - 1
	}
	prefixLen, pn, err := decodeVarint(buf[n:])
	if err != nil {
		return Bound{}, 0, 0, fmt.Errorf("bound prefix length: %w", err)
	}
	n += pn
	if prefixLen > IDSize {
		return Bound{}, 0, 0, fmt.Errorf("%w: id prefix of %d bytes", ErrProtocol, prefixLen)
	}
	if uint64(len(buf[n:])) < prefixLen {
		return Bound{}, 0, 0, fmt.Errorf("%w: truncated bound prefix", ErrProtocol)
	}
	if prefixLen > 0 {
		b.Prefix = slices.Clone(buf[n : n+int(prefixLen)])
		n += int(prefixLen)
	}
	return b, n, b.Timestamp, nil
}
