package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/queue"
)

// A PublishingSink's JSON-encoded output round-trips through
// queue.GroupReader: each commit and its file changes reconstruct as one
// Group, closed implicitly by the ungrouped ScanProgress (or ScanCompleted)
// message that follows it.
func TestGroupReader_ReconstructsCommitGroupsFromPublishedScan(t *testing.T) {
	l := queue.NewLog(notifications.NewBus())
	pub, err := l.CreatePublisher("scanner-1")
	require.NoError(t, err)
	consumer := l.CreateConsumer("grouping-consumer")
	sink := NewPublishingSink(pub, 1000) // high rate: nothing throttled here

	require.NoError(t, Run(context.Background(), newFakeSource(), FileChanges, sink))

	r := NewGroupReader(consumer)

	g1, ok, err := r.ReadGroup()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", g1.ID)
	assert.Len(t, g1.Messages, 3, "c1's CommitData plus its two FileChange messages")

	g2, ok, err := r.ReadGroup()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c2", g2.ID)
	assert.Len(t, g2.Messages, 2, "c2's CommitData plus its one FileChange message")

	g3, ok, err := r.ReadGroup()
	require.NoError(t, err)
	assert.False(t, ok, "ScanStarted/ScanProgress/ScanCompleted carry no GroupID and never form a group")
	assert.Empty(t, g3.Messages)
}
