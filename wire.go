package negentropy

import (
	"encoding/hex"
	"fmt"
	"slices"

	"go.uber.org/zap/zapcore"
)

const (
	// ProtocolVersion is the leading byte of every encoded message:
	// protocol version 1 of the 0x60 version range.
	ProtocolVersion byte = 0x61

	// versionLow and versionHigh delimit the byte range reserved for
	// protocol versions. A leading byte outside it is not a negentropy
	// message at all.
	versionLow  byte = 0x60
	versionHigh byte = 0x6f
)

// Mode tags how a single range is being reconciled.
type Mode byte

const (
	// ModeSkip marks a range needing no further processing on the
	// sender's side.
	ModeSkip Mode = iota
	// ModeFingerprint carries a digest of the sender's records in the
	// range, for the receiver to compare against its own.
	ModeFingerprint
	// ModeIDList enumerates every record id the sender holds in the
	// range.
	ModeIDList
)

var modeNames = []string{"skip", "fingerprint", "idlist"}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("<unknown %d>", byte(m))
}

// Range is one slice of the keyspace within a message. It spans from the
// previous range's bound (or ZeroBound for the first range) exclusive up
// to its own UpperBound, and carries the payload selected by Mode.
type Range struct {
	UpperBound  Bound
	Mode        Mode
	Fingerprint Fingerprint // set in ModeFingerprint only
	IDs         []ID        // set in ModeIDList only
}

// SkipRange builds a range with no payload.
func SkipRange(upper Bound) Range {
	return Range{UpperBound: upper, Mode: ModeSkip}
}

// FingerprintRange builds a range carrying a digest of its records.
func FingerprintRange(upper Bound, fp Fingerprint) Range {
	return Range{UpperBound: upper, Mode: ModeFingerprint, Fingerprint: fp}
}

// IDListRange builds a range enumerating the sender's record ids.
func IDListRange(upper Bound, ids []ID) Range {
	return Range{UpperBound: upper, Mode: ModeIDList, IDs: ids}
}

// appendTo appends the wire form of r to dst using the running timestamp
// context and returns the extended slice plus the next context.
func (r *Range) appendTo(dst []byte, prev uint64) ([]byte, uint64) {
	dst, prev = r.UpperBound.appendTo(dst, prev)
	dst = appendVarint(dst, uint64(r.Mode))
	switch r.Mode {
	case ModeSkip:
	case ModeFingerprint:
		dst = append(dst, r.Fingerprint[:]...)
	case ModeIDList:
		dst = appendVarint(dst, uint64(len(r.IDs)))
		for i := range r.IDs {
			dst = append(dst, r.IDs[i][:]...)
		}
	default:
		panic(fmt.Sprintf("BUG: encoding range with invalid mode %d", r.Mode))
	}
	return dst, prev
}

// encodedLen returns the wire size of r given the running timestamp
// context, plus the context for the range after it.
func (r *Range) encodedLen(prev uint64) (int, uint64) {
	n, prev := r.UpperBound.encodedLen(prev)
	n += varintLen(uint64(r.Mode))
	switch r.Mode {
	case ModeFingerprint:
		n += FingerprintSize
	case ModeIDList:
		n += varintLen(uint64(len(r.IDs))) + len(r.IDs)*IDSize
	}
	return n, prev
}

// decodeRange reads one range from the head of buf using the running
// timestamp context, returning the range, the bytes consumed and the
// context for the next range.
func decodeRange(buf []byte, prev uint64) (Range, int, uint64, error) {
	bound, n, prev, err := decodeBound(buf, prev)
	if err != nil {
		return Range{}, 0, 0, err
	}
	mode, mn, err := decodeVarint(buf[n:])
	if err != nil {
		return Range{}, 0, 0, fmt.Errorf("range mode: %w", err)
	}
	n += mn
	r := Range{UpperBound: bound, Mode: Mode(mode)}
	switch {
	case mode == uint64(ModeSkip):
	case mode == uint64(ModeFingerprint):
		if len(buf[n:]) < FingerprintSize {
			return Range{}, 0, 0, fmt.Errorf("%w: truncated fingerprint", ErrProtocol)
		}
		copy(r.Fingerprint[:], buf[n:])
		n += FingerprintSize
	case mode == uint64(ModeIDList):
		count, cn, err := decodeVarint(buf[n:])
		if err != nil {
			return Range{}, 0, 0, fmt.Errorf("id list length: %w", err)
		}
		n += cn
		if count > uint64(len(buf[n:]))/IDSize {
			return Range{}, 0, 0, fmt.Errorf("%w: id list of %d entries exceeds payload", ErrProtocol, count)
		}
		r.IDs = make([]ID, count)
		for i := range r.IDs {
			copy(r.IDs[i][:], buf[n:])
			n += IDSize
		}
	default:
		return Range{}, 0, 0, fmt.Errorf("%w: unknown range mode %d", ErrProtocol, mode)
	}
	return r, n, prev, nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r *Range) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("upper", r.UpperBound.String())
	enc.AddString("mode", r.Mode.String())
	switch r.Mode {
	case ModeFingerprint:
		enc.AddString("fingerprint", r.Fingerprint.String())
	case ModeIDList:
		enc.AddInt("ids", len(r.IDs))
	}
	return nil
}

// Message is one direction's worth of a reconciliation round: an ordered
// run of ranges whose bounds strictly increase. Construction performs no
// validation; Encode trusts the caller, while DecodeMessage vets anything
// that arrived off the wire.
type Message struct {
	Ranges []Range
}

// Encode returns the binary form of the message: the protocol version
// byte followed by each range encoded against the running timestamp
// context.
func (m *Message) Encode() []byte {
	size := 1
	prev := uint64(0)
	for i := range m.Ranges {
		var n int
		n, prev = m.Ranges[i].encodedLen(prev)
		size += n
	}
	out := make([]byte, 1, size)
	out[0] = ProtocolVersion
	prev = 0
	for i := range m.Ranges {
		out, prev = m.Ranges[i].appendTo(out, prev)
	}
	return out
}

// EncodeHex returns the lowercase hex form of the encoded message, as
// embedded in NEG-OPEN and NEG-MSG frames.
func (m *Message) EncodeHex() string {
	return hex.EncodeToString(m.Encode())
}

// IsComplete reports whether the holder's side of the exchange has
// converged: no range still carries a fingerprint, so every residual
// difference has been spelled out explicitly. Once both an incoming
// message and the reply to it are complete the session is over.
func (m *Message) IsComplete() bool {
	for i := range m.Ranges {
		if m.Ranges[i].Mode == ModeFingerprint {
			return false
		}
	}
	return true
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *Message) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	var skips, fingerprints, idLists, ids int
	for i := range m.Ranges {
		switch m.Ranges[i].Mode {
		case ModeSkip:
			skips++
		case ModeFingerprint:
			fingerprints++
		case ModeIDList:
			idLists++
			ids += len(m.Ranges[i].IDs)
		}
	}
	enc.AddInt("ranges", len(m.Ranges))
	enc.AddInt("skips", skips)
	enc.AddInt("fingerprints", fingerprints)
	enc.AddInt("idLists", idLists)
	enc.AddInt("ids", ids)
	return nil
}

// DecodeMessage parses data into a message. Decoding is all-or-nothing:
// any unknown version, truncated range, invalid mode, oversized prefix or
// non-monotonic bound rejects the whole message with an error wrapping
// ErrVarint or ErrProtocol.
func DecodeMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrProtocol)
	}
	if data[0] < versionLow || data[0] > versionHigh {
		return nil, fmt.Errorf("%w: not a negentropy message (leading byte %#02x)", ErrProtocol, data[0])
	}
	if data[0] != ProtocolVersion {
		return nil, fmt.Errorf("%w: unsupported protocol version %d", ErrProtocol, data[0]-versionLow)
	}
	var (
		msg  Message
		prev uint64
		buf  = data[1:]
	)
	for len(buf) > 0 {
		r, n, next, err := decodeRange(buf, prev)
		if err != nil {
			return nil, fmt.Errorf("range %d: %w", len(msg.Ranges), err)
		}
		if len(msg.Ranges) > 0 && r.UpperBound.Compare(msg.Ranges[len(msg.Ranges)-1].UpperBound) <= 0 {
			return nil, fmt.Errorf("%w: bound %s of range %d does not increase",
				ErrProtocol, r.UpperBound, len(msg.Ranges))
		}
		msg.Ranges = append(msg.Ranges, r)
		buf = buf[n:]
		prev = next
	}
	return &msg, nil
}

// DecodeHexMessage parses the hex transport form of a message. Hex
// failures wrap ErrCodec; the decoded bytes then go through DecodeMessage.
func DecodeHexMessage(s string) (*Message, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return DecodeMessage(data)
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := &Message{Ranges: slices.Clone(m.Ranges)}
	for i := range c.Ranges {
		c.Ranges[i].UpperBound.Prefix = slices.Clone(c.Ranges[i].UpperBound.Prefix)
		c.Ranges[i].IDs = slices.Clone(c.Ranges[i].IDs)
	}
	return c
}
