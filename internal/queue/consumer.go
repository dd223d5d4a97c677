package queue

// Consumer is the client-owned handle to a registered read position. Its
// mutable state (position, last_read_at) lives in the owning Log, guarded
// by the log's mutex during reads; the handle itself only carries identity.
// Call Close when done to unregister; an unclosed Consumer pins its
// unread messages in memory (spec §4.1 GC algorithm).
type Consumer struct {
	ID    uint64
	Label string
	log   *Log
}

// ReadOne returns the next message for this consumer, or ok=false if it has
// caught up to the head of the log.
func (c *Consumer) ReadOne() (msg *Message, ok bool, err error) {
	return c.log.ReadOne(c)
}

// ReadBatch returns up to n pending messages for this consumer.
func (c *Consumer) ReadBatch(n int) ([]*Message, error) {
	return c.log.ReadBatch(c, n)
}

// Lag returns how many published messages this consumer has yet to read.
func (c *Consumer) Lag() (uint64, error) {
	return c.log.Lag(c)
}

// Position returns the consumer's current read position.
func (c *Consumer) Position() uint64 {
	return c.log.consumerPosition(c.ID)
}

// Close unregisters the consumer from its log.
func (c *Consumer) Close() error {
	return c.log.removeConsumer(c.ID)
}
