package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// Opener is an optional capability a Source can implement when acquiring it
// involves a fallible setup step (e.g. cloning or opening a repository).
// RunWithRetry calls Open with exponential backoff before handing control
// to Run, mirroring the teacher's connection-retry pattern
// (pkg/common/kafka.go ConnectKafkaWithRetry).
type Opener interface {
	Open(ctx context.Context) error
}

// RetryConfig configures RunWithRetry's exponential backoff.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig matches the teacher's Kafka connect retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{InitialInterval: 5 * time.Second, MaxElapsedTime: 5 * time.Minute}
}

// RunWithRetry retries acquiring source (if it implements Opener) with
// exponential backoff, then delegates to Run. A cancelled context aborts
// the retry loop and is surfaced as a final ScanError{Cancelled} message,
// per invariant 5.
func RunWithRetry(ctx context.Context, source Source, requires Requires, sink Sink, cfg RetryConfig) error {
	opener, ok := source.(Opener)
	if !ok {
		return Run(ctx, source, requires, sink)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.InitialInterval
	expBackoff.MaxElapsedTime = cfg.MaxElapsedTime

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return opener.Open(ctx)
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		emit := func(msg Message) error {
			msg.ScannerID = source.ScannerID()
			msg.Timestamp = time.Now()
			return sink.Emit(ctx, msg)
		}
		if ctx.Err() != nil {
			return failScan(ctx, emit, ErrorCancelled, ctx.Err())
		}
		return failScan(ctx, emit, ErrorRepository, fmt.Errorf("open source after retries: %w", err))
	}

	return Run(ctx, source, requires, sink)
}
