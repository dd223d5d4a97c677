package scanner

import (
	"encoding/json"

	"github.com/deeprave/repostats/internal/queue"
)

// DecodeGroupedMessage decodes a queue message's Payload back into the
// scanner Message it encodes, returning it as the queue.Grouper view
// PublishingSink's JSON encoding satisfies.
func DecodeGroupedMessage(payload string) (queue.Grouper, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// NewGroupReader wraps consumer with the scanner's own payload decoding,
// letting a Processing plugin reconstruct each commit and its file changes
// as one Group instead of tracking commit boundaries itself.
func NewGroupReader(consumer *queue.Consumer) *queue.GroupReader {
	return queue.NewGroupReader(consumer, DecodeGroupedMessage)
}
