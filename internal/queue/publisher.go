package queue

// Publisher holds a non-owning reference to a Log so that dropping the
// engine that owns publishers does not keep the log alive on their account
// (spec §9 "weak producer→log link"). In Go this is expressed by never
// having the Log hold a reference back to its publishers; Close simply
// clears the local pointer.
type Publisher struct {
	producerID string
	log        *Log
}

// ProducerID returns the identifier this publisher stamps on every message.
func (p *Publisher) ProducerID() string { return p.producerID }

// Publish appends a message to the log under this publisher's producer id,
// returning its assigned sequence number. Publishing through a Publisher
// whose Close has already run reports ErrProducerNotFound, since Close's
// only effect is to drop this publisher's producer id from further use.
func (p *Publisher) Publish(messageType, payload string) (uint64, error) {
	if p.log == nil {
		return 0, fmtProducerNotFound(p.producerID)
	}
	return p.log.publish(p.producerID, messageType, payload)
}

// Close releases this publisher's reference to the log.
func (p *Publisher) Close() { p.log = nil }
