// Package negentropy implements the NIP-77 range-based set reconciliation
// protocol used to synchronize two divergent sets of timestamped,
// content-addressed records across a relay/client link.
//
// The package covers the binary wire codec (varints, bounds, ranges,
// messages) and the reconciliation algorithm itself: order-independent
// range fingerprinting, recursive range bisection and the per-message diff
// step that accumulates the ids each side must send (have) or fetch (need).
// A session converges in O(log N) round trips for N records in the
// mismatching region, and its memory cost is bounded by the size of the
// divergence rather than the size of the agreeing set.
//
// The core is pure: it performs no I/O, storage or networking. Callers feed
// it a record snapshot and inbound protocol messages, and ship the outbound
// messages over whatever transport carries the session (for Nostr, the
// NEG-OPEN/NEG-MSG control frames implemented by the envelope subpackage).
package negentropy
