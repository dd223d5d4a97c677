package queue

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1 — single publisher, three consumers, sequential read.
func TestLog_ThreeConsumersSequentialRead(t *testing.T) {
	log := NewLog(nil)
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)

	a := log.CreateConsumer("A")
	b := log.CreateConsumer("B")
	c := log.CreateConsumer("C")

	for i := 1; i <= 5; i++ {
		seq, err := pub.Publish("data", strconv.Itoa(i))
		require.NoError(t, err)
		require.EqualValues(t, i, seq)
	}

	for _, cons := range []*Consumer{a, b, c} {
		msgs, err := cons.ReadBatch(10)
		require.NoError(t, err)
		require.Len(t, msgs, 5)
		for i, m := range msgs {
			assert.EqualValues(t, i+1, m.Sequence)
			assert.Equal(t, strconv.Itoa(i+1), m.Payload)
		}
	}
}

// S2 — consumer created mid-stream only sees messages published after
// registration.
func TestLog_ConsumerCreatedMidStream(t *testing.T) {
	log := NewLog(nil)
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)

	_, err = pub.Publish("data", "m1")
	require.NoError(t, err)
	_, err = pub.Publish("data", "m2")
	require.NoError(t, err)

	x := log.CreateConsumer("X")

	_, err = pub.Publish("data", "m3")
	require.NoError(t, err)
	_, err = pub.Publish("data", "m4")
	require.NoError(t, err)

	msgs, err := x.ReadBatch(10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.EqualValues(t, 3, msgs[0].Sequence)
	assert.EqualValues(t, 4, msgs[1].Sequence)
}

// S3 — GC never drops a message a live consumer has not yet read.
func TestLog_GCPreservesLiveConsumer(t *testing.T) {
	log := NewLog(nil, WithMemoryThresholdBytes(1))

	y := log.CreateConsumer("Y")
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)

	large := strings.Repeat("x", 4096)
	for i := 0; i < 3; i++ {
		_, err := pub.Publish("data", large)
		require.NoError(t, err)

		// Y has not yet read sequence i+1, so GC must not have dropped it.
		assert.LessOrEqual(t, log.baseSequence, uint64(i+1))

		msg, ok, err := y.ReadOne()
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, i+1, msg.Sequence)
	}
}

// invariant 2: publish returns next_sequence, and it increments by one.
func TestLog_PublishSequenceInvariant(t *testing.T) {
	log := NewLog(nil)
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)

	seq1, err := pub.Publish("t", "a")
	require.NoError(t, err)
	seq2, err := pub.Publish("t", "b")
	require.NoError(t, err)

	assert.EqualValues(t, 1, seq1)
	assert.EqualValues(t, 2, seq2)
}

// invariant 3: memory_stats.total_messages == next_sequence - base_sequence.
func TestLog_MemoryStatsInvariant(t *testing.T) {
	log := NewLog(nil)
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := pub.Publish("t", "x")
		require.NoError(t, err)
	}
	stats := log.MemoryStats()
	assert.Equal(t, int(log.nextSequence-log.baseSequence), stats.TotalMessages)
	assert.Equal(t, 4, stats.PerProducerCounts["p"])
}

func TestLog_SequenceOutOfBoundsAfterGC(t *testing.T) {
	log := NewLog(nil, WithMemoryThresholdBytes(1))
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)

	lagging := log.CreateConsumer("lagging")

	large := strings.Repeat("x", 4096)
	for i := 0; i < 3; i++ {
		_, err := pub.Publish("t", large)
		require.NoError(t, err)
	}
	// Force the lagging consumer past the collected prefix.
	removed := log.CollectGarbage()
	_ = removed
	log.mu.Lock()
	log.baseSequence = log.nextSequence
	log.mu.Unlock()

	_, _, err = lagging.ReadOne()
	require.ErrorIs(t, err, ErrSequenceOutOfBounds)
}

func TestLog_EmptyProducerIDRejected(t *testing.T) {
	log := NewLog(nil)
	_, err := log.CreatePublisher("")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLog_DetectAndCleanupStaleConsumers(t *testing.T) {
	log := NewLog(nil, WithStaleIdleBound(0))
	pub, err := log.CreatePublisher("p")
	require.NoError(t, err)
	stale := log.CreateConsumer("stale")

	for i := 0; i < 5; i++ {
		_, err := pub.Publish("t", "x")
		require.NoError(t, err)
	}

	time.Sleep(time.Millisecond)
	infos := log.DetectStaleConsumers(0)
	require.Len(t, infos, 1)
	assert.Equal(t, stale.ID, infos[0].ConsumerID)

	removed := log.CleanupStaleConsumers(0)
	assert.Equal(t, 1, removed)

	_, _, err = stale.ReadOne()
	require.ErrorIs(t, err, ErrConsumerNotFound)
}
