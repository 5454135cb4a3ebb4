package negentropy

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Reconciler drives one side of a negentropy session. It owns an immutable
// record snapshot plus the diff accumulated so far: the ids the peer turned
// out to lack (have) and the ids the local side must fetch (need). It also
// remembers which of its own ids it has already enumerated to the peer, so
// a range the peer keeps asking about is answered with Skip instead of the
// same id list again. Either side of the protocol runs the same machine;
// the initiator additionally opens the session with Initiate.
//
// A Reconciler is not safe for concurrent use. Sessions that may receive
// messages from multiple goroutines serialize access externally, as the
// sessions package does.
type Reconciler struct {
	storage        Storage
	splitThreshold int
	frameSizeLimit int
	log            *zap.Logger

	have    []ID
	need    []ID
	haveSet map[ID]struct{}
	needSet map[ID]struct{}
	sent    map[ID]struct{}
}

// NewReconciler builds a reconciler over an in-memory snapshot of records,
// given in any order.
func NewReconciler(records []Record, opts ...Option) *Reconciler {
	return NewReconcilerWithStorage(NewVector(records), opts...)
}

// NewReconcilerWithStorage builds a reconciler over a prepared snapshot.
// The storage must not change for the lifetime of the session.
func NewReconcilerWithStorage(storage Storage, opts ...Option) *Reconciler {
	r := &Reconciler{
		storage:        storage,
		splitThreshold: DefaultSplitThreshold,
		log:            zap.NewNop(),
		haveSet:        make(map[ID]struct{}),
		needSet:        make(map[ID]struct{}),
		sent:           make(map[ID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.splitThreshold < 1 {
		panic("bad split threshold")
	}
	if r.frameSizeLimit != 0 && r.frameSizeLimit < minFrameSizeLimit {
		panic("frame size limit too small")
	}
	return r
}

// Initiate builds the opening message of a session: the whole keyspace from
// the zero bound to infinity, described from the local snapshot. The
// initiator ships it inside a NEG-OPEN frame and feeds every reply to
// Process until both directions are complete.
func (r *Reconciler) Initiate() *Message {
	b := replyBuilder{r: r, size: 1}
	b.addFitted(r.splitRange(ZeroBound(), InfinityBound(), 0, r.storage.Size()), 0)
	messageSize.Observe(float64(b.size))
	msg := b.msg
	r.log.Debug("initiated session", zap.Object("out", &msg))
	return &msg
}

// Process consumes one incoming message and produces the reply, folding any
// id list differences into the have/need accumulators along the way. It
// never fails: DecodeMessage has already vetted anything that arrived off
// the wire. The reply answers the incoming ranges one for one, except that
// a mismatching fingerprint range splits in two and the frame size limit,
// when set, may cut the reply short with a fingerprint over the rest of
// the keyspace. Each local id is enumerated to the peer at most once per
// session: a range whose records have all been listed in an earlier reply
// is answered with Skip, which keeps capped frames from being spent on
// repeats.
func (r *Reconciler) Process(in *Message) *Message {
	b := replyBuilder{r: r, size: 1}
	var (
		lower Bound
		lo    int
	)
	total := r.storage.Size()
	for i := range in.Ranges {
		rng := &in.Ranges[i]
		upper := rng.UpperBound
		hi := r.storage.FindLowerBound(lo, total, upper)
		rangesProcessed.WithLabelValues(rng.Mode.String()).Inc()

		var reply []Range
		switch rng.Mode {
		case ModeSkip:
			switch {
			case lo == hi, r.enumerated(lo, hi):
				reply = []Range{SkipRange(upper)}
			default:
				// The peer is done with this range but does not know our
				// records yet.
				reply = []Range{IDListRange(upper, r.collectIDs(lo, hi))}
			}
		case ModeFingerprint:
			if r.storage.Fingerprint(lo, hi) == rng.Fingerprint {
				reply = []Range{SkipRange(upper)}
			} else {
				reply = r.splitRange(lower, upper, lo, hi)
			}
		case ModeIDList:
			local := r.collectIDs(lo, hi)
			r.diffIDLists(local, rng.IDs)
			switch {
			case len(local) == 0 && len(rng.IDs) == 0:
				reply = []Range{SkipRange(upper)}
			case len(local) > 0 && r.enumerated(lo, hi):
				reply = []Range{SkipRange(upper)}
			default:
				reply = []Range{IDListRange(upper, local)}
			}
		default:
			panic(fmt.Sprintf("BUG: processing range with invalid mode %d", rng.Mode))
		}

		if !b.addFitted(reply, lo) {
			r.log.Debug("frame size limit reached",
				zap.Int("limit", r.frameSizeLimit),
				zap.Int("processed", i+1),
				zap.Int("ranges", len(in.Ranges)))
			break
		}
		lower = upper
		lo = hi
	}
	messagesProcessed.Inc()
	messageSize.Observe(float64(b.size))
	msg := b.msg
	r.log.Debug("processed message", zap.Object("in", in), zap.Object("out", &msg))
	return &msg
}

// Reconcile decodes one incoming message, processes it and encodes the
// reply. Transport adapters that shuttle raw frames use it directly.
func (r *Reconciler) Reconcile(data []byte) ([]byte, error) {
	in, err := DecodeMessage(data)
	if err != nil {
		return nil, err
	}
	return r.Process(in).Encode(), nil
}

// Have returns the ids the local side holds and the peer was seen to lack,
// deduplicated, in the order they were discovered. The returned slice is a
// copy.
func (r *Reconciler) Have() []ID { return slices.Clone(r.have) }

// Need returns the ids the peer holds and the local side lacks,
// deduplicated, in the order they were discovered. The returned slice is a
// copy.
func (r *Reconciler) Need() []ID { return slices.Clone(r.need) }

// DiffSizes returns how many have and need ids have accumulated so far.
// Drivers use it to detect that a round taught them nothing new.
func (r *Reconciler) DiffSizes() (have, need int) {
	return len(r.have), len(r.need)
}

// splitRange answers one mismatching range [lower, upper) backed by the
// local records [lo, hi). Subdivision is one level deep per round: a small
// enough slice is enumerated outright, anything bigger is bisected into two
// fingerprinted halves at the middle record's own key, and the peer narrows
// further on its next turn.
func (r *Reconciler) splitRange(lower, upper Bound, lo, hi int) []Range {
	n := hi - lo
	switch {
	case n == 0:
		return []Range{SkipRange(upper)}
	case n <= r.splitThreshold:
		return []Range{IDListRange(upper, r.collectIDs(lo, hi))}
	default:
		mid := lo + n/2
		middle := BoundFromRecord(r.storage.Record(mid))
		rangesSplit.Inc()
		r.log.Debug("splitting range",
			zap.Stringer("lower", lower),
			zap.Stringer("middle", middle),
			zap.Stringer("upper", upper),
			zap.Int("records", n))
		return []Range{
			FingerprintRange(middle, r.storage.Fingerprint(lo, mid)),
			FingerprintRange(upper, r.storage.Fingerprint(mid, hi)),
		}
	}
}

func (r *Reconciler) collectIDs(lo, hi int) []ID {
	ids := make([]ID, 0, hi-lo)
	r.storage.Iterate(lo, hi, func(rec Record) bool {
		ids = append(ids, rec.ID)
		return true
	})
	return ids
}

// enumerated reports whether every record in [lo, hi) has already been
// listed in an earlier reply of this session, meaning the peer holds the
// full enumeration and a repeat would carry no new information.
func (r *Reconciler) enumerated(lo, hi int) bool {
	all := true
	r.storage.Iterate(lo, hi, func(rec Record) bool {
		_, ok := r.sent[rec.ID]
		all = all && ok
		return ok
	})
	return all
}

// diffIDLists folds the symmetric difference of one range's id lists into
// the accumulators: local ids missing remotely become haves, remote ids
// missing locally become needs.
func (r *Reconciler) diffIDLists(local, remote []ID) {
	remoteSet := make(map[ID]struct{}, len(remote))
	for _, id := range remote {
		remoteSet[id] = struct{}{}
	}
	for _, id := range local {
		if _, ok := remoteSet[id]; !ok {
			r.addHave(id)
		}
	}
	localSet := make(map[ID]struct{}, len(local))
	for _, id := range local {
		localSet[id] = struct{}{}
	}
	for _, id := range remote {
		if _, ok := localSet[id]; !ok {
			r.addNeed(id)
		}
	}
}

func (r *Reconciler) addHave(id ID) {
	if _, ok := r.haveSet[id]; ok {
		return
	}
	r.haveSet[id] = struct{}{}
	r.have = append(r.have, id)
	haveIDs.Inc()
}

func (r *Reconciler) addNeed(id ID) {
	if _, ok := r.needSet[id]; ok {
		return
	}
	r.needSet[id] = struct{}{}
	r.need = append(r.need, id)
	needIDs.Inc()
}

// replyBuilder accumulates outgoing ranges while tracking their exact
// encoded size against the frame size limit.
type replyBuilder struct {
	r    *Reconciler
	msg  Message
	size int    // encoded size so far, version byte included
	prev uint64 // timestamp context at the current end of msg
}

// fits reports whether n more bytes stay within the frame size limit,
// keeping the configured headroom free for the transport envelope.
func (b *replyBuilder) fits(n int) bool {
	return b.r.frameSizeLimit == 0 || b.size+n <= b.r.frameSizeLimit-frameSizeHeadroom
}

// add appends ranges to the reply unconditionally, marking any listed ids
// as enumerated: only ids that actually made it into a frame count, so a
// truncated list never suppresses the ids it left out.
func (b *replyBuilder) add(ranges ...Range) {
	for i := range ranges {
		var n int
		n, b.prev = ranges[i].encodedLen(b.prev)
		b.size += n
		for _, id := range ranges[i].IDs {
			b.r.sent[id] = struct{}{}
		}
		b.msg.Ranges = append(b.msg.Ranges, ranges[i])
	}
}

// addFitted adds the reply ranges produced for one incoming range. When
// they would overflow the frame size limit it instead salvages what fits
// and summarizes the rest of the keyspace, from storage index lo on, as a
// single fingerprint range up to infinity; the peer then re-queries that
// tail on the next round. Returns false once the frame is capped.
func (b *replyBuilder) addFitted(reply []Range, lo int) bool {
	batch, _ := encodedRangesLen(reply, b.prev)
	if b.fits(batch) {
		b.add(reply...)
		return true
	}
	lo = b.truncateIDList(reply, lo)
	b.add(FingerprintRange(InfinityBound(), b.r.storage.Fingerprint(lo, b.r.storage.Size())))
	return false
}

// truncateIDList salvages the longest fitting prefix of a single id list
// reply before the frame is capped, shrinking its bound to the key of the
// first record left out. It returns the storage index the remainder
// fingerprint must start from.
func (b *replyBuilder) truncateIDList(reply []Range, lo int) int {
	if len(reply) != 1 || reply[0].Mode != ModeIDList {
		return lo
	}
	// The remainder range that follows the truncated list: an infinity
	// bound is two bytes, the mode one, plus the fingerprint itself.
	const remainderLen = 2 + 1 + FingerprintSize
	ids := reply[0].IDs
	fit := 0
	for k := 1; k < len(ids); k++ {
		rng := IDListRange(BoundFromRecord(b.r.storage.Record(lo+k)), ids[:k])
		n, _ := rng.encodedLen(b.prev)
		if !b.fits(n + remainderLen) {
			break
		}
		fit = k
	}
	if fit == 0 {
		return lo
	}
	b.add(IDListRange(BoundFromRecord(b.r.storage.Record(lo+fit)), ids[:fit]))
	return lo + fit
}

func encodedRangesLen(ranges []Range, prev uint64) (int, uint64) {
	var total int
	for i := range ranges {
		var n int
		n, prev = ranges[i].encodedLen(prev)
		total += n
	}
	return total, prev
}
