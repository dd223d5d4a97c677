package queue

import (
	"errors"
	"fmt"
)

// Sentinel errors for the log's error taxonomy (spec §7 "Log errors"). Kept
// as a closed set of package-level values so callers can compare with
// errors.Is rather than matching on strings, following the teacher's
// fmt.Errorf("...: %w", err) wrapping convention throughout
// (pkg/common/kafka.go, internal/app/commands/scanning/scan.go).
var (
	// ErrConsumerNotFound is returned when an operation references a
	// consumer id the log does not know about.
	ErrConsumerNotFound = errors.New("queue: consumer not found")
	// ErrProducerNotFound is returned when an operation references a
	// producer id the log does not know about.
	ErrProducerNotFound = errors.New("queue: producer not found")
	// ErrSequenceOutOfBounds is returned when a consumer's position has
	// fallen below the log's base_sequence because of garbage collection.
	ErrSequenceOutOfBounds = errors.New("queue: sequence out of bounds")
	// ErrInvalidConfiguration is returned for malformed configuration, such
	// as an empty producer id.
	ErrInvalidConfiguration = errors.New("queue: invalid configuration")
	// ErrOperationFailed is a catch-all for internal invariant violations
	// that should never occur in practice.
	ErrOperationFailed = errors.New("queue: operation failed")
	// ErrQueueFull exists to complete the error taxonomy from spec §4.1 but
	// is never returned: the log is intentionally unbounded, and
	// backpressure is expressed through garbage collection and MemoryLow
	// events instead.
	ErrQueueFull = errors.New("queue: full")
)

func fmtConsumerNotFound(id uint64) error {
	return fmt.Errorf("%w: %d", ErrConsumerNotFound, id)
}

func fmtProducerNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrProducerNotFound, id)
}

func fmtSequenceOutOfBounds(seq uint64) error {
	return fmt.Errorf("%w: %d", ErrSequenceOutOfBounds, seq)
}
