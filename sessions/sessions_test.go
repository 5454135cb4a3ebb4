package sessions_test

import (
	"context"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/nostrsync/negentropy"
	"github.com/nostrsync/negentropy/sessions"
)

func makeRecords(rng *rand.Rand, n int) []negentropy.Record {
	records := make([]negentropy.Record, n)
	for i := range records {
		var id negentropy.ID
		rng.Read(id[:])
		records[i] = negentropy.Record{Timestamp: 1700000000 + uint64(i), ID: id}
	}
	return records
}

func recordIDs(records []negentropy.Record) []negentropy.ID {
	ids := make([]negentropy.ID, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func TestSessionReconciles(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	shared := makeRecords(rng, 60)
	clientRecs := append(slices.Clone(shared), makeRecords(rng, 7)...)
	serverRecs := append(slices.Clone(shared), makeRecords(rng, 4)...)

	reg := sessions.NewRegistry(8, sessions.WithLogger(zaptest.NewLogger(t)))
	sess := reg.Open("sub1", serverRecs)
	client := negentropy.NewReconciler(clientRecs)

	clientDone := false
	msg := client.Initiate()
	for msgs := 1; ; msgs++ {
		require.LessOrEqual(t, msgs, 64, "still exchanging after %d messages", msgs)
		replyHex, err := sess.ProcessHex(msg.EncodeHex())
		require.NoError(t, err)
		if clientDone && sess.Done() {
			break
		}
		reply, err := negentropy.DecodeHexMessage(replyHex)
		require.NoError(t, err)

		haveBefore, needBefore := client.DiffSizes()
		out := client.Process(reply)
		haveAfter, needAfter := client.DiffSizes()
		clientDone = reply.IsComplete() && out.IsComplete() &&
			haveBefore == haveAfter && needBefore == needAfter
		if clientDone && sess.Done() {
			break
		}
		msg = out
	}

	require.ElementsMatch(t, client.Have(), sess.Need())
	require.ElementsMatch(t, client.Need(), sess.Have())
	require.Len(t, sess.Have(), 4)
	require.Len(t, sess.Need(), 7)
}

func TestSessionDone(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	records := makeRecords(rng, 2)

	reg := sessions.NewRegistry(8)
	sess := reg.Open("sub1", records)
	client := negentropy.NewReconciler(records)

	reply := sess.Process(client.Initiate())
	require.False(t, sess.Done(), "fingerprint rounds are not convergence")

	sess.Process(client.Process(reply))
	require.True(t, sess.Done())
}

func TestSessionSerializesProcess(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	records := makeRecords(rng, 40)
	foreign := makeRecords(rng, 3)

	reg := sessions.NewRegistry(4)
	sess := reg.Open("sub1", records)
	in := &negentropy.Message{Ranges: []negentropy.Range{
		negentropy.IDListRange(negentropy.InfinityBound(), recordIDs(foreign)),
	}}

	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			for j := 0; j < 50; j++ {
				sess.Process(in.Clone())
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	// Rounds land one at a time, so repeated deliveries accumulate each id
	// exactly once.
	require.ElementsMatch(t, recordIDs(records), sess.Have())
	require.ElementsMatch(t, recordIDs(foreign), sess.Need())
}

func TestSessionProcessHexErrors(t *testing.T) {
	reg := sessions.NewRegistry(8)
	sess := reg.Open("sub1", nil)

	_, err := sess.ProcessHex("zz")
	require.ErrorIs(t, err, negentropy.ErrCodec)

	_, err = sess.ProcessHex("41")
	require.ErrorIs(t, err, negentropy.ErrProtocol)
}

func TestRegistryGetAndClose(t *testing.T) {
	reg := sessions.NewRegistry(8)
	a := reg.Open("a", nil)
	reg.Open("b", nil)
	require.Equal(t, 2, reg.Len())

	got, ok := reg.Get("a")
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = reg.Get("missing")
	require.False(t, ok)

	require.True(t, reg.Close("a"))
	require.False(t, reg.Close("a"))
	require.Equal(t, 1, reg.Len())
}

func TestRegistryReplacesSameSubscription(t *testing.T) {
	reg := sessions.NewRegistry(8)
	a := reg.Open("a", nil)
	b := reg.Open("a", nil)
	require.Equal(t, 1, reg.Len())
	got, ok := reg.Get("a")
	require.True(t, ok)
	require.NotSame(t, a, got)
	require.Same(t, b, got)
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	reg := sessions.NewRegistry(2, sessions.WithLogger(zaptest.NewLogger(t)))
	reg.Open("a", nil)
	reg.Open("b", nil)

	// Touching a makes b the eviction candidate.
	_, ok := reg.Get("a")
	require.True(t, ok)

	reg.Open("c", nil)
	require.Equal(t, 2, reg.Len())
	_, ok = reg.Get("b")
	require.False(t, ok)
	_, ok = reg.Get("a")
	require.True(t, ok)
	_, ok = reg.Get("c")
	require.True(t, ok)
}

func TestRegistryPruneIdle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	reg := sessions.NewRegistry(8, sessions.WithClock(fc))

	reg.Open("stale", nil)
	fc.Advance(10 * time.Minute)
	reg.Open("fresh", nil)
	fc.Advance(5 * time.Minute)

	require.Equal(t, 1, reg.PruneIdle(10*time.Minute))
	require.Equal(t, 1, reg.Len())
	_, ok := reg.Get("stale")
	require.False(t, ok)
	_, ok = reg.Get("fresh")
	require.True(t, ok)
}

func TestRegistryRunGC(t *testing.T) {
	fc := clockwork.NewFakeClock()
	reg := sessions.NewRegistry(8,
		sessions.WithClock(fc), sessions.WithLogger(zaptest.NewLogger(t)))
	reg.Open("stale", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		reg.RunGC(ctx, time.Minute, 10*time.Minute)
	}()

	fc.BlockUntil(1)
	fc.Advance(11 * time.Minute)
	require.Eventually(t, func() bool { return reg.Len() == 0 },
		time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestRegistryPruneSparesActive(t *testing.T) {
	fc := clockwork.NewFakeClock()
	reg := sessions.NewRegistry(8, sessions.WithClock(fc))

	sess := reg.Open("busy", nil)
	fc.Advance(10 * time.Minute)
	sess.Initiate()
	fc.Advance(5 * time.Minute)

	require.Zero(t, reg.PruneIdle(10*time.Minute))
	require.Equal(t, 1, reg.Len())
}

func TestSessionLastActive(t *testing.T) {
	fc := clockwork.NewFakeClock()
	reg := sessions.NewRegistry(8, sessions.WithClock(fc))

	sess := reg.Open("a", nil)
	opened := sess.LastActive()
	require.Equal(t, fc.Now(), opened)

	fc.Advance(time.Minute)
	sess.Initiate()
	require.Equal(t, opened.Add(time.Minute), sess.LastActive())
}
