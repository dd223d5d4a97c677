package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal Source implementation for tests: a fixed
// repository plus a fixed list of commits with their file changes.
type fakeSource struct {
	id      string
	repo    RepositoryData
	commits []CommitData
	changes map[string][]FileChange
}

func (f *fakeSource) ScannerID() string { return f.id }

func (f *fakeSource) Repository(ctx context.Context) (RepositoryData, error) {
	return f.repo, nil
}

func (f *fakeSource) WalkCommits(ctx context.Context, requires Requires, visit func(CommitData, []FileChange) error) error {
	for _, c := range f.commits {
		if err := visit(c, f.changes[c.Hash]); err != nil {
			return err
		}
	}
	return nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		id:   "scanner-1",
		repo: RepositoryData{Path: "/repo", DefaultBranch: "main"},
		commits: []CommitData{
			{Hash: "c1", Author: "a"},
			{Hash: "c2", Author: "b"},
		},
		changes: map[string][]FileChange{
			"c1": {{CommitHash: "c1", Path: "f1.go"}, {CommitHash: "c1", Path: "f2.go"}},
			"c2": {{CommitHash: "c2", Path: "f3.go"}},
		},
	}
}

// S5 — requirement aggregation: requesting FileChanges also yields Commits,
// even though FileChanges alone was asked for.
func TestRun_RequiresClosureIncludesCommits(t *testing.T) {
	src := newFakeSource()
	sink := &AccumulatingSink{}

	err := Run(context.Background(), src, FileChanges, sink)
	require.NoError(t, err)

	kinds := kindsOf(sink.Messages)
	assert.Equal(t, []Kind{
		KindScanStarted,
		KindCommitData, KindFileChange, KindFileChange, KindScanProgress,
		KindCommitData, KindFileChange, KindScanProgress,
		KindScanCompleted,
	}, kinds)
}

// Variants not requested are omitted entirely.
func TestRun_OmitsUnrequestedVariants(t *testing.T) {
	src := newFakeSource()
	sink := &AccumulatingSink{}

	err := Run(context.Background(), src, RepositoryInfo, sink)
	require.NoError(t, err)

	kinds := kindsOf(sink.Messages)
	assert.Equal(t, []Kind{KindScanStarted, KindRepositoryData, KindScanCompleted}, kinds)
}

// invariant 5: ScanStarted precedes every CommitData; FileChange follows
// its owning CommitData before the next commit's messages; ScanCompleted is
// last iff no ScanError was emitted.
func TestRun_CanonicalOrdering(t *testing.T) {
	src := newFakeSource()
	sink := &AccumulatingSink{}

	err := Run(context.Background(), src, Union(RepositoryInfo, FileChanges), sink)
	require.NoError(t, err)

	msgs := sink.Messages
	require.Equal(t, KindScanStarted, msgs[0].Kind)
	require.Equal(t, KindScanCompleted, msgs[len(msgs)-1].Kind)

	seenCommit := ""
	for _, m := range msgs {
		if m.Kind == KindFileChange {
			require.NotEmpty(t, seenCommit, "file change before any commit")
			assert.Equal(t, seenCommit, m.FileChange.CommitHash)
		}
		if m.Kind == KindCommitData {
			seenCommit = m.Commit.Hash
		}
	}
}

// S6 — scanner cancellation: sink returns error on the 3rd call, scanner
// returns that error and makes no 4th call.
func TestRun_SinkCancellationStopsImmediately(t *testing.T) {
	src := newFakeSource()
	var calls int
	failAt := 3
	sentinel := errors.New("boom")

	sink := SinkFunc(func(ctx context.Context, msg Message) error {
		calls++
		if calls == failAt {
			return sentinel
		}
		return nil
	})

	err := Run(context.Background(), src, Union(RepositoryInfo, FileChanges), sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, failAt, calls)
}

// invariant 5: a Source-side domain error surfaces as a final ScanError
// message, and Run returns nil (not both).
func TestRun_SourceErrorSurfacesAsScanErrorMessage(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("disk fell over")
	src.commits = nil
	failingSrc := &failingWalkSource{fakeSource: src, err: boom}

	sink := &AccumulatingSink{}
	err := Run(context.Background(), failingSrc, Commits, sink)
	require.NoError(t, err)

	last := sink.Messages[len(sink.Messages)-1]
	require.Equal(t, KindScanError, last.Kind)
	assert.Equal(t, ErrorIO, last.Failure.Kind)
}

type failingWalkSource struct {
	*fakeSource
	err error
}

func (f *failingWalkSource) WalkCommits(ctx context.Context, requires Requires, visit func(CommitData, []FileChange) error) error {
	return f.err
}

// Run emits a ScanProgress message after every commit, carrying running
// totals — the variant PublishingSink exists specifically to throttle.
func TestRun_EmitsProgressAfterEachCommit(t *testing.T) {
	src := newFakeSource()
	sink := &AccumulatingSink{}

	err := Run(context.Background(), src, FileChanges, sink)
	require.NoError(t, err)

	var progress []*Progress
	for _, m := range sink.Messages {
		if m.Kind == KindScanProgress {
			progress = append(progress, m.Progress)
		}
	}
	require.Len(t, progress, 2)
	assert.Equal(t, 1, progress[0].CommitsScanned)
	assert.Equal(t, 2, progress[1].CommitsScanned)
	assert.Equal(t, 3, progress[1].FilesScanned)
}

func kindsOf(msgs []Message) []Kind {
	out := make([]Kind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}
