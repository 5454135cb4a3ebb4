package negentropy

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"slices"
)

const (
	// IDSize is the length of a record id in bytes. For Nostr this is the
	// 32-byte sha256 event id.
	IDSize = 32
	// FingerprintSize is the length of a range fingerprint in bytes.
	FingerprintSize = 16
)

// ID is a fixed-size content-addressed record identifier.
type ID [IDSize]byte

// IDFromBytes converts b into an ID, returning an error if it has the
// wrong length.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return id, fmt.Errorf("%w: id of %d bytes", ErrProtocol, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseHexID parses a 64-character hex string into an ID.
func ParseHexID(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("id hex: %w", err)
	}
	return IDFromBytes(b)
}

// MustParseHexID is ParseHexID that panics on bad input. Useful for
// constants and tests.
func MustParseHexID(s string) ID {
	id, err := ParseHexID(s)
	if err != nil {
		panic("MustParseHexID: " + err.Error())
	}
	return id
}

// String implements fmt.Stringer.
func (id ID) String() string { return hex.EncodeToString(id[:]) }

// ShortString returns an abbreviated hex representation of the id for use
// in logs.
func (id ID) ShortString() string { return hex.EncodeToString(id[:5]) }

// Compare returns -1, 0 or 1 ordering ids lexicographically by their bytes.
func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

// Record is one reconcilable item: a record id keyed by its creation
// timestamp. Records order by (Timestamp, ID); that order is the keyspace
// every bound and range of the protocol refers to.
type Record struct {
	Timestamp uint64
	ID        ID
}

// Compare returns -1, 0 or 1 ordering records by (Timestamp, ID).
func (r Record) Compare(other Record) int {
	if r.Timestamp != other.Timestamp {
		return cmp.Compare(r.Timestamp, other.Timestamp)
	}
	return bytes.Compare(r.ID[:], other.ID[:])
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("%d/%s", r.Timestamp, r.ID.ShortString())
}

// SortRecords sorts records in place into canonical (Timestamp, ID) order.
func SortRecords(records []Record) {
	slices.SortFunc(records, Record.Compare)
}

// Fingerprint is the order-independent 16-byte digest of the record ids
// within a range. Two ranges carry equal fingerprints exactly when they
// hold the same multiset of ids, up to digest collisions.
type Fingerprint [FingerprintSize]byte

// String implements fmt.Stringer.
func (fp Fingerprint) String() string { return hex.EncodeToString(fp[:]) }
