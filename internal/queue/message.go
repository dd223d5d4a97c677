// Package queue implements the append-only, multi-consumer message log that
// sits at the center of repostats: producers publish immutable messages,
// and each consumer reads them at its own independent pace.
package queue

import "time"

// Message is an immutable record shared by reference among all readers.
// Once published, a Message is never mutated; every consumer that observes
// a given Sequence sees byte-identical content.
type Message struct {
	// Sequence is the strictly monotonic identifier assigned on publish.
	Sequence uint64
	// Timestamp is the wall-clock instant the message was published.
	Timestamp time.Time
	// ProducerID identifies the producer that created this message.
	ProducerID string
	// MessageType is a free-form tag used for routing/filtering by consumers.
	MessageType string
	// Payload is the opaque textual body of the message.
	Payload string
}

// Grouper is an optional contract a producer's payload encoding can satisfy
// so consumers can reconstruct logical groupings (e.g. a commit and its file
// changes) without buffering the log. Grounded on the original source's
// GroupedMessage trait (original_source/src/queue/traits.rs); the scanner's
// ScanMessage encoder implements it for CommitData/FileChange framing.
type Grouper interface {
	// GroupID returns the identifier of the group this message belongs to,
	// if any.
	GroupID() (id string, ok bool)
	// StartsGroup reports whether this message opens a new group, along with
	// the group id and its expected member count (0 if unknown).
	StartsGroup() (id string, count int, ok bool)
	// CompletesGroup reports whether this message is the last of its group.
	CompletesGroup() (id string, ok bool)
}
