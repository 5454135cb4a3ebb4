package negentropy

import "go.uber.org/zap"

const (
	// DefaultSplitThreshold is the largest number of records for which a
	// mismatching range is answered with an explicit id list instead of
	// being bisected further.
	DefaultSplitThreshold = 1

	// minFrameSizeLimit is the smallest usable frame size limit: below
	// this even a single split range may not fit and the session cannot
	// make progress.
	minFrameSizeLimit = 4096

	// frameSizeHeadroom keeps produced messages this many bytes under the
	// configured limit, leaving room for the transport envelope.
	frameSizeHeadroom = 200
)

// Option is a configuration option for a Reconciler.
type Option func(r *Reconciler)

// WithLogger specifies the logger for the reconciler. Range processing
// logs at debug level only.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// WithSplitThreshold sets the largest range, in records, that is sent as
// an explicit id list. Mismatching ranges above the threshold are bisected
// into two fingerprinted halves instead. Must be at least 1.
func WithSplitThreshold(n int) Option {
	return func(r *Reconciler) {
		r.splitThreshold = n
	}
}

// WithFrameSizeLimit caps the encoded size of produced messages in bytes.
// When a reply would overflow the cap, the rest of the keyspace is
// summarized as a single fingerprint range and reconciled over additional
// rounds. Zero, the default, disables the cap; nonzero values below 4096
// are rejected.
func WithFrameSizeLimit(n int) Option {
	return func(r *Reconciler) {
		r.frameSizeLimit = n
	}
}
