// Package sessions tracks live reconciliation sessions keyed by
// subscription id, the way a relay or client multiplexes them over one
// connection. A bounded LRU caps how many sessions stay open at once and
// idle sessions can be pruned so abandoned subscriptions do not pin their
// record snapshots.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nostrsync/negentropy"
	"github.com/nostrsync/negentropy/metrics"
)

const subsystem = "sessions"

var (
	activeSessions = metrics.NewGauge(
		"active",
		subsystem,
		"currently open reconciliation sessions",
		[]string{}).WithLabelValues()

	evictedSessions = metrics.NewCounter(
		"evicted",
		subsystem,
		"sessions dropped to make room for newly opened ones",
		[]string{}).WithLabelValues()
)

// Session owns one subscription's reconciler and serializes access to it:
// processing mutates the accumulated diff, so rounds must land one at a
// time even when the transport delivers frames from multiple goroutines.
type Session struct {
	mu         sync.Mutex
	rec        *negentropy.Reconciler
	clock      clockwork.Clock
	lastActive time.Time
	done       bool
}

// Initiate builds the session's opening message for a NEG-OPEN frame.
func (s *Session) Initiate() *negentropy.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.clock.Now()
	return s.rec.Initiate()
}

// Process runs one reconciliation round. The session counts as converged
// once a round is complete in both directions and taught this side nothing
// new; Done then reports true. The final reply must still be delivered
// before closing: the peer may need one more round to converge on its end.
func (s *Session) Process(in *negentropy.Message) *negentropy.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.clock.Now()
	haveBefore, needBefore := s.rec.DiffSizes()
	out := s.rec.Process(in)
	haveAfter, needAfter := s.rec.DiffSizes()
	s.done = in.IsComplete() && out.IsComplete() &&
		haveBefore == haveAfter && needBefore == needAfter
	return out
}

// ProcessHex runs one round on the hex payload of a NEG-MSG or NEG-OPEN
// frame and returns the hex payload of the reply.
func (s *Session) ProcessHex(msg string) (string, error) {
	in, err := negentropy.DecodeHexMessage(msg)
	if err != nil {
		return "", err
	}
	return s.Process(in).EncodeHex(), nil
}

// Done reports whether the session has converged.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Have returns the ids this side holds and the peer lacks, so far.
func (s *Session) Have() []negentropy.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Have()
}

// Need returns the ids the peer holds and this side lacks, so far.
func (s *Session) Need() []negentropy.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Need()
}

// LastActive returns when the session last built or processed a message.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Registry tracks sessions by subscription id. It is safe for concurrent
// use.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	clock    clockwork.Clock
	log      *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(g *Registry)

// WithLogger specifies the logger for the registry.
func WithLogger(log *zap.Logger) RegistryOption {
	return func(g *Registry) {
		g.log = log
	}
}

// WithClock substitutes the clock used for idle tracking. Tests inject a
// fake one.
func WithClock(clock clockwork.Clock) RegistryOption {
	return func(g *Registry) {
		g.clock = clock
	}
}

// NewRegistry builds a registry holding at most maxSessions open sessions.
// Opening a session past the cap silently drops the least recently used
// one, the way relays shed negentropy subscriptions under pressure.
func NewRegistry(maxSessions int, opts ...RegistryOption) *Registry {
	g := &Registry{
		clock: clockwork.NewRealClock(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	cache, err := lru.NewWithEvict[string, *Session](maxSessions, g.onRemove)
	if err != nil {
		panic(fmt.Sprintf("could not initialize session cache: %v", err))
	}
	g.sessions = cache
	return g
}

// onRemove fires for every removal: LRU eviction, Close and PruneIdle
// alike.
func (g *Registry) onRemove(subID string, _ *Session) {
	activeSessions.Dec()
	g.log.Debug("session removed", zap.String("subscription", subID))
}

// Open registers a session reconciling the given records and returns it.
// An existing session under the same subscription id is replaced.
func (g *Registry) Open(subID string, records []negentropy.Record, opts ...negentropy.Option) *Session {
	return g.OpenWithStorage(subID, negentropy.NewVector(records), opts...)
}

// OpenWithStorage registers a session over a prepared snapshot.
func (g *Registry) OpenWithStorage(subID string, storage negentropy.Storage, opts ...negentropy.Option) *Session {
	s := &Session{
		rec:        negentropy.NewReconcilerWithStorage(storage, opts...),
		clock:      g.clock,
		lastActive: g.clock.Now(),
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	replaced := g.sessions.Contains(subID)
	evicted := g.sessions.Add(subID, s)
	if !replaced {
		activeSessions.Inc()
	}
	if evicted {
		evictedSessions.Inc()
	}
	g.log.Info("session opened",
		zap.String("subscription", subID),
		zap.Int("records", storage.Size()),
		zap.Bool("replaced", replaced))
	return s
}

// Get returns the session under subID, refreshing its LRU recency.
func (g *Registry) Get(subID string) (*Session, bool) {
	return g.sessions.Get(subID)
}

// Close drops the session under subID, reporting whether it existed.
func (g *Registry) Close(subID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions.Remove(subID)
}

// Len returns the number of open sessions.
func (g *Registry) Len() int {
	return g.sessions.Len()
}

// PruneIdle drops sessions that have not processed a message for at least
// maxIdle and returns how many went. Callers run it periodically, or leave
// that to RunGC.
func (g *Registry) PruneIdle(maxIdle time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := g.clock.Now().Add(-maxIdle)
	var pruned int
	for _, subID := range g.sessions.Keys() {
		s, ok := g.sessions.Peek(subID)
		if !ok || s.LastActive().After(cutoff) {
			continue
		}
		g.sessions.Remove(subID)
		pruned++
	}
	if pruned > 0 {
		g.log.Info("pruned idle sessions", zap.Int("count", pruned), zap.Duration("maxIdle", maxIdle))
	}
	return pruned
}

// RunGC prunes idle sessions every interval until ctx is cancelled. Hosts
// run it in a background goroutine for the lifetime of the registry.
func (g *Registry) RunGC(ctx context.Context, interval, maxIdle time.Duration) {
	g.log.Info("session gc launched",
		zap.Duration("interval", interval),
		zap.Duration("maxIdle", maxIdle))
	for {
		select {
		case <-ctx.Done():
			g.log.Debug("session gc stopped")
			return
		case <-g.clock.After(interval):
			g.PruneIdle(maxIdle)
		}
	}
}
