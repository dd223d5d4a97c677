package queue

// Group is one logical grouping of messages reconstructed by GroupReader,
// e.g. a commit and its file changes.
type Group struct {
	ID       string
	Messages []Message
	// Complete reports whether the payload decoder for this group's last
	// message reported CompletesGroup itself, as opposed to the group having
	// been closed implicitly by a boundary (a differing GroupID, an
	// ungrouped message, or end of stream).
	Complete bool
}

// GroupReader replays a Consumer's stream and reconstructs the logical
// groupings its payloads' Grouper encoding describes, without buffering more
// of the log than one group needs. Grounded on the original source's
// GroupedMessage-consuming reader (original_source/src/queue/traits.rs);
// decode turns a Message's opaque Payload into the Grouper view of it.
type GroupReader struct {
	consumer *Consumer
	decode   func(payload string) (Grouper, error)
	pending  *Message
}

// NewGroupReader builds a GroupReader over consumer, using decode to recover
// each message's Grouper view from its Payload.
func NewGroupReader(consumer *Consumer, decode func(payload string) (Grouper, error)) *GroupReader {
	return &GroupReader{consumer: consumer, decode: decode}
}

// ReadGroup accumulates messages into the next logical group. A group ends
// when its payload reports CompletesGroup, when a message with a different
// (or absent) GroupID is seen, or when the consumer catches up to the log's
// head with a group already in progress. ok is false only when there is
// nothing left to read and no group was in progress.
func (r *GroupReader) ReadGroup() (Group, bool, error) {
	var group Group
	started := false

	for {
		msg, ok, err := r.next()
		if err != nil {
			return Group{}, false, err
		}
		if !ok {
			return group, started, nil
		}

		grouped, err := r.decode(msg.Payload)
		if err != nil {
			return Group{}, false, err
		}

		id, hasGroup := grouped.GroupID()
		if !hasGroup {
			if !started {
				continue
			}
			r.pending = msg
			return group, true, nil
		}
		if !started {
			group.ID = id
			started = true
		} else if id != group.ID {
			r.pending = msg
			return group, true, nil
		}

		group.Messages = append(group.Messages, *msg)

		if completesID, ok := grouped.CompletesGroup(); ok && completesID == id {
			group.Complete = true
			return group, true, nil
		}
	}
}

func (r *GroupReader) next() (*Message, bool, error) {
	if r.pending != nil {
		msg := r.pending
		r.pending = nil
		return msg, true, nil
	}
	return r.consumer.ReadOne()
}
