package scanner

import (
	"context"
	"fmt"
	"time"
)

// Sink receives the canonical message sequence. Returning an error aborts
// the scan immediately; no further calls to Emit occur afterward (spec
// §4.4 invariant 2).
type Sink interface {
	Emit(ctx context.Context, msg Message) error
}

// Source is the external collaborator that supplies scan data. It is the
// seam a git-plumbing traversal library plugs into; this package only
// depends on the interface (spec §1 "the traversal library is a
// dependency").
type Source interface {
	// ScannerID identifies this scanner instance in every emitted message.
	ScannerID() string
	// Repository returns metadata about the repository being scanned. Only
	// called when RepositoryInfo is in the (closed) requirements set.
	Repository(ctx context.Context) (RepositoryData, error)
	// WalkCommits streams commits in canonical order, calling visit once
	// per commit with that commit's file changes (empty if FileChanges is
	// not requested). WalkCommits must stop and propagate visit's error the
	// moment visit returns one, keeping memory O(1) in commits processed.
	// Only called when Commits is in the requirements set.
	WalkCommits(ctx context.Context, requires Requires, visit func(CommitData, []FileChange) error) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Emit(ctx context.Context, msg Message) error { return f(ctx, msg) }

// sinkCancelled marks an error as originating from Sink.Emit, so Run can
// tell it apart from a Source-side domain failure and honor invariant 5
// ("wrapped ... and surfaced as a final ScanError message OR as the
// returned error, not both"): sink cancellations always propagate as the
// returned error with no trailing ScanError message.
type sinkCancelled struct{ cause error }

func (e *sinkCancelled) Error() string { return e.cause.Error() }
func (e *sinkCancelled) Unwrap() error { return e.cause }

// Run emits the canonical ScanMessage sequence for source, restricted to
// the closure of requires, into sink. It returns the error a sink call
// raised, if any; a Source-side domain error is instead surfaced as a final
// ScanError message and Run returns nil.
func Run(ctx context.Context, source Source, requires Requires, sink Sink) error {
	requires = requires.Closure()
	scannerID := source.ScannerID()
	started := time.Now()

	emit := func(msg Message) error {
		msg.ScannerID = scannerID
		msg.Timestamp = time.Now()
		if err := sink.Emit(ctx, msg); err != nil {
			return &sinkCancelled{cause: err}
		}
		return nil
	}

	if err := emit(Message{Kind: KindScanStarted, Started: &Started{RequirementsRequested: requires}}); err != nil {
		return unwrapSinkErr(err)
	}

	var totalCommits, totalFiles int

	if requires.Has(RepositoryInfo) {
		repo, err := source.Repository(ctx)
		if err != nil {
			return failScan(ctx, emit, ErrorRepository, err)
		}
		if err := emit(Message{Kind: KindRepositoryData, Repository: &repo}); err != nil {
			return unwrapSinkErr(err)
		}
	}

	if requires.Has(Commits) {
		walkErr := source.WalkCommits(ctx, requires, func(c CommitData, changes []FileChange) error {
			if err := emit(Message{Kind: KindCommitData, Commit: &c}); err != nil {
				return err
			}
			totalCommits++
			if requires.Has(FileChanges) {
				for _, fc := range changes {
					if err := emit(Message{Kind: KindFileChange, FileChange: &fc}); err != nil {
						return err
					}
					totalFiles++
				}
			}
			// Progress is reported after every commit; PublishingSink throttles
			// how many of these actually reach the log (spec §9 open question).
			return emit(Message{
				Kind: KindScanProgress,
				Progress: &Progress{
					CommitsScanned: totalCommits,
					FilesScanned:   totalFiles,
					Elapsed:        time.Since(started),
				},
			})
		})
		if walkErr != nil {
			if _, ok := walkErr.(*sinkCancelled); ok {
				return unwrapSinkErr(walkErr)
			}
			if ctx.Err() != nil {
				return failScan(ctx, emit, ErrorCancelled, ctx.Err())
			}
			return failScan(ctx, emit, ErrorIO, walkErr)
		}
	}

	return unwrapSinkErr(emit(Message{
		Kind: KindScanCompleted,
		Completed: &Completed{
			TotalCommits: totalCommits,
			TotalFiles:   totalFiles,
			Duration:     time.Since(started),
		},
	}))
}

// failScan surfaces a Source-side domain error as a final ScanError
// message. If the sink itself rejects that final message, that rejection
// is what Run returns (there is nothing else left to report).
func failScan(_ context.Context, emit func(Message) error, kind ErrorKind, cause error) error {
	err := emit(Message{Kind: KindScanError, Failure: &ScanFailure{Kind: kind, Message: cause.Error()}})
	return unwrapSinkErr(err)
}

func unwrapSinkErr(err error) error {
	if err == nil {
		return nil
	}
	if sc, ok := err.(*sinkCancelled); ok {
		return fmt.Errorf("scanner: sink cancelled scan: %w", sc.cause)
	}
	return err
}
