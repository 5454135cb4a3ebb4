package negentropy

import (
	"encoding/binary"
	"hash"
	"math/bits"
	"sync"

	"github.com/minio/sha256-simd"
)

// hasherPool amortizes sha256 state allocations: a split-heavy round
// recomputes digests for many sub-ranges in quick succession.
var hasherPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// Accumulator folds record ids into a running 32-byte sum, little-endian
// modulo 2^256. Addition commutes, so the fold does not depend on
// insertion order, and adding an id twice keeps moving the sum, so the
// digest distinguishes multisets, not just sets. The zero value is ready
// to use.
type Accumulator struct {
	sum [IDSize]byte
}

// Reset returns the accumulator to its initial state.
func (a *Accumulator) Reset() {
	a.sum = [IDSize]byte{}
}

// AddID adds the id into the running sum.
func (a *Accumulator) AddID(id ID) {
	var carry uint64
	for i := 0; i < IDSize; i += 8 {
		var limb uint64
		limb, carry = bits.Add64(
			binary.LittleEndian.Uint64(a.sum[i:]),
			binary.LittleEndian.Uint64(id[i:]),
			carry,
		)
		binary.LittleEndian.PutUint64(a.sum[i:], limb)
	}
	// Carry out of the top limb falls off: the sum wraps modulo 2^256.
}

// Fingerprint seals the accumulator into a range digest: sha256 over the
// running sum followed by the varint record count, truncated to
// FingerprintSize bytes. The count makes ranges that sum alike but differ
// in cardinality distinguishable.
func (a *Accumulator) Fingerprint(count int) Fingerprint {
	h := hasherPool.Get().(hash.Hash)
	h.Write(a.sum[:])
	h.Write(encodeVarint(uint64(count)))
	var digest [sha256.Size]byte
	h.Sum(digest[:0])
	h.Reset()
	hasherPool.Put(h)
	var fp Fingerprint
	copy(fp[:], digest[:FingerprintSize])
	return fp
}

// CalculateFingerprint digests the given ids irrespective of their order.
func CalculateFingerprint(ids []ID) Fingerprint {
	var acc Accumulator
	for _, id := range ids {
		acc.AddID(id)
	}
	return acc.Fingerprint(len(ids))
}
