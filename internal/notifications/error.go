package notifications

import (
	"errors"
	"fmt"
)

// Sentinel and structured errors for the event bus's error taxonomy
// (spec §7 "Event-bus errors").
var (
	ErrSubscriberNotFound = errors.New("notifications: subscriber not found")
	ErrChannelClosed      = errors.New("notifications: channel closed")
	ErrAlreadyExists      = errors.New("notifications: subscriber already exists")
	// ErrFatal signals a bus-level condition callers must not treat as
	// recoverable, matching the taxonomy's plain Fatal kind.
	ErrFatal = errors.New("notifications: fatal")
)

// PublishFailed reports that delivery to one or more subscribers failed
// during a Publish call. Publish returns it whenever one or more matching
// deliveries failed; the event is still delivered to every other matching
// subscriber, and zero matching subscribers is not a failure.
type PublishFailed struct {
	FailedIDs []string
}

func (e *PublishFailed) Error() string {
	return fmt.Sprintf("notifications: delivery failed for subscribers: %v", e.FailedIDs)
}

// OutOfMemory reports that aggregate queued events across all subscribers
// exceeded the configured ceiling. It is always propagated to the caller of
// Publish and is never auto-recovered.
type OutOfMemory struct {
	QueueSizes map[string]int
	Total      int
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("notifications: out of memory: %d events queued across %d subscribers", e.Total, len(e.QueueSizes))
}

// SystemOverload reports that the number of active subscribers exceeded the
// configured ceiling. No Bus method returns it: AssessHealth reports the same
// condition through HealthCounts.Overload, and Publish never checks it.
type SystemOverload struct {
	SubscriberCount int
}

func (e *SystemOverload) Error() string {
	return fmt.Sprintf("notifications: system overload: %d active subscribers", e.SubscriberCount)
}
