package negentropy

import "slices"

//go:generate mockgen -typed -package=negentropy -destination=./mocks.go -source=./storage.go

// Storage gives the reconciler ordered access to one session's record
// snapshot. Implementations expose records in canonical (Timestamp, ID)
// order with no duplicates, and are never mutated by the reconciler: all
// loading happens before the session starts, and every lookup is a read.
type Storage interface {
	// Size returns the number of records in the snapshot.
	Size() int
	// Record returns the record at position i in canonical order.
	Record(i int) Record
	// FindLowerBound returns the position of the first record within
	// [begin, end) whose key is at or above b, or end if there is none.
	FindLowerBound(begin, end int, b Bound) int
	// Fingerprint digests the ids of the records within [begin, end).
	Fingerprint(begin, end int) Fingerprint
	// Iterate calls fn for each record within [begin, end) in order,
	// stopping early if fn returns false.
	Iterate(begin, end int, fn func(Record) bool)
}

// Vector is the in-memory Storage: a slice of records sorted once at
// construction and binary-searched afterwards.
type Vector struct {
	records []Record
}

var _ Storage = (*Vector)(nil)

// NewVector builds a snapshot from records in any order. The input is
// copied, sorted into canonical order and deduplicated.
func NewVector(records []Record) *Vector {
	rs := slices.Clone(records)
	SortRecords(rs)
	return &Vector{records: slices.Compact(rs)}
}

// Size implements Storage.
func (v *Vector) Size() int { return len(v.records) }

// Record implements Storage.
func (v *Vector) Record(i int) Record { return v.records[i] }

// FindLowerBound implements Storage.
func (v *Vector) FindLowerBound(begin, end int, b Bound) int {
	i, _ := slices.BinarySearchFunc(v.records[begin:end], b, func(r Record, b Bound) int {
		return -b.CompareRecord(r)
	})
	return begin + i
}

// Fingerprint implements Storage.
func (v *Vector) Fingerprint(begin, end int) Fingerprint {
	var acc Accumulator
	for i := begin; i < end; i++ {
		acc.AddID(v.records[i].ID)
	}
	return acc.Fingerprint(end - begin)
}

// Iterate implements Storage.
func (v *Vector) Iterate(begin, end int, fn func(Record) bool) {
	for _, r := range v.records[begin:end] {
		if !fn(r) {
			return
		}
	}
}
