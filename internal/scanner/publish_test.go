package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/queue"
)

// PublishingSink throttles ScanProgress but never drops any other variant,
// resolving the publish-frequency open question at the sink layer rather
// than in Run itself.
func TestPublishingSink_ThrottlesOnlyScanProgress(t *testing.T) {
	l := queue.NewLog(notifications.NewBus())
	pub, err := l.CreatePublisher("scanner-1")
	require.NoError(t, err)
	consumer := l.CreateConsumer("test-consumer")
	sink := NewPublishingSink(pub, 1) // 1/s, burst 1: the 2nd rapid call is dropped

	require.NoError(t, sink.Emit(context.Background(), Message{Kind: KindScanProgress, Progress: &Progress{CommitsScanned: 1}}))
	require.NoError(t, sink.Emit(context.Background(), Message{Kind: KindScanProgress, Progress: &Progress{CommitsScanned: 2}}))
	require.NoError(t, sink.Emit(context.Background(), Message{Kind: KindCommitData, Commit: &CommitData{Hash: "c1"}}))
	require.NoError(t, sink.Emit(context.Background(), Message{Kind: KindScanCompleted, Completed: &Completed{}}))

	msgs, err := l.ReadBatch(consumer, 100)
	require.NoError(t, err)

	var progressCount, otherCount int
	for _, m := range msgs {
		if m.MessageType == string(KindScanProgress) {
			progressCount++
		} else {
			otherCount++
		}
	}
	require.Equal(t, 1, progressCount, "burst-1 limiter should drop the second immediate ScanProgress publish")
	require.Equal(t, 2, otherCount, "non-progress variants are never throttled")
}

// Run driven end to end through a real PublishingSink: the sink, not Run,
// is responsible for dropping excess ScanProgress messages.
func TestRun_ThroughPublishingSink_ProgressThrottled(t *testing.T) {
	l := queue.NewLog(notifications.NewBus())
	pub, err := l.CreatePublisher("scanner-1")
	require.NoError(t, err)
	consumer := l.CreateConsumer("test-consumer")
	sink := NewPublishingSink(pub, 1)

	src := newFakeSource()
	require.NoError(t, Run(context.Background(), src, FileChanges, sink))

	msgs, err := l.ReadBatch(consumer, 100)
	require.NoError(t, err)

	progressCount := 0
	for _, m := range msgs {
		if m.MessageType == string(KindScanProgress) {
			progressCount++
		}
	}
	require.Less(t, progressCount, 2, "the fake source's two commits both trigger a progress emit; the limiter must drop at least one")
}
