package queue

import (
	"sync"
	"time"

	"github.com/deeprave/repostats/internal/notifications"
)

// defaultStaleIdleBound is the idle bound CleanupStaleConsumers applies when
// checking last_read_at, distinct from the caller-supplied idle_duration
// DetectStaleConsumers takes as a parameter (spec §4.1).
const defaultStaleIdleBound = 10 * time.Minute

// Log is the append-only, multi-consumer sequenced message log described in
// spec §4.1. Sequence assignment, append, and timestamp stamping happen
// under a single critical section (Log.mu) even when many producers
// publish concurrently; reads are non-blocking with respect to each other.
type Log struct {
	mu sync.Mutex

	messages     []*Message // messages[i] has Sequence == baseSequence+i
	baseSequence uint64
	nextSequence uint64

	consumers      map[uint64]*consumerState
	nextConsumerID uint64

	totalBytes        int
	perProducerCounts map[string]int

	memoryThresholdBytes int // 0 disables GC
	overThreshold        bool
	staleIdleBound       time.Duration

	bus *notifications.Bus
}

type consumerState struct {
	id         uint64
	label      string
	position   uint64
	lastReadAt time.Time
}

// LogOption configures a Log at construction time.
type LogOption func(*Log)

// WithMemoryThresholdBytes sets the initial soft cap that triggers garbage
// collection after publish. Zero (the default) disables automatic GC.
func WithMemoryThresholdBytes(n int) LogOption {
	return func(l *Log) { l.memoryThresholdBytes = n }
}

// WithStaleIdleBound overrides the last_read_at age CleanupStaleConsumers
// requires in addition to lag_threshold before removing a consumer.
func WithStaleIdleBound(d time.Duration) LogOption {
	return func(l *Log) { l.staleIdleBound = d }
}

// NewLog constructs an empty Log. bus may be nil, in which case memory
// pressure events are computed but not published (used by tests that don't
// need the notification side channel).
func NewLog(bus *notifications.Bus, opts ...LogOption) *Log {
	l := &Log{
		baseSequence:      1,
		nextSequence:      1, // sequence numbering starts at 1, matching original_source/src/queue/internal.rs
		consumers:         make(map[uint64]*consumerState),
		perProducerCounts: make(map[string]int),
		staleIdleBound:    defaultStaleIdleBound,
		bus:               bus,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.bus != nil {
		_ = l.bus.Publish(notifications.NewEvent(notifications.KindQueue, notifications.QueueStarted, "global", nil))
	}
	return l
}

// CreatePublisher returns a Publisher bound to this log for producerID.
// producerID must be non-empty.
func (l *Log) CreatePublisher(producerID string) (*Publisher, error) {
	if producerID == "" {
		return nil, ErrInvalidConfiguration
	}
	return &Publisher{producerID: producerID, log: l}, nil
}

// CreateConsumer registers a new consumer positioned at the current head of
// the log, so it only observes messages published after registration.
func (l *Log) CreateConsumer(label string) *Consumer {
	l.mu.Lock()
	id := l.nextConsumerID
	l.nextConsumerID++
	l.consumers[id] = &consumerState{
		id:         id,
		label:      label,
		position:   l.nextSequence,
		lastReadAt: time.Now(),
	}
	l.mu.Unlock()
	return &Consumer{ID: id, Label: label, log: l}
}

func messageSize(m *Message) int {
	return len(m.ProducerID) + len(m.MessageType) + len(m.Payload) + 32 // fixed overhead for sequence/timestamp
}

// publish assigns the next sequence, stamps the timestamp, appends the
// message, and triggers the memory-pressure check. It is the log's single
// writer-serialized entry point.
func (l *Log) publish(producerID, messageType, payload string) (uint64, error) {
	if producerID == "" {
		return 0, ErrInvalidConfiguration
	}

	l.mu.Lock()
	seq := l.nextSequence
	l.nextSequence++
	msg := &Message{
		Sequence:    seq,
		Timestamp:   time.Now(),
		ProducerID:  producerID,
		MessageType: messageType,
		Payload:     payload,
	}
	l.messages = append(l.messages, msg)
	l.totalBytes += messageSize(msg)
	l.perProducerCounts[producerID]++
	l.mu.Unlock()

	if l.bus != nil {
		l.bus.Publish(notifications.NewEvent(notifications.KindQueue, notifications.QueueMessageAdded, producerID, seq))
	}

	l.checkMemoryPressure()
	return seq, nil
}

// checkMemoryPressure runs garbage collection when the configured threshold
// is exceeded, and emits MemoryLow/MemoryNormal transitions (spec §4.1
// GC algorithm, steps 4-5).
func (l *Log) checkMemoryPressure() {
	l.mu.Lock()
	threshold := l.memoryThresholdBytes
	l.mu.Unlock()
	if threshold == 0 {
		return
	}

	l.mu.Lock()
	over := l.totalBytes > threshold
	l.mu.Unlock()
	if !over {
		return
	}

	l.mu.Lock()
	l.collectGarbageLocked()
	stillOver := l.totalBytes > threshold
	wasOver := l.overThreshold
	l.overThreshold = stillOver
	stats := l.memoryStatsLocked()
	l.mu.Unlock()

	if l.bus == nil {
		return
	}
	switch {
	case stillOver:
		l.bus.Publish(notifications.NewEvent(notifications.KindQueue, notifications.QueueMemoryLow, "global", stats))
	case wasOver && !stillOver:
		l.bus.Publish(notifications.NewEvent(notifications.KindQueue, notifications.QueueMemoryNormal, "global", stats))
	}
}

// ReadOne returns the message at consumer's current position and advances
// it by one, or (nil, false, nil) if the consumer has caught up.
func (l *Log) ReadOne(c *Consumer) (*Message, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cs, ok := l.consumers[c.ID]
	if !ok {
		return nil, false, fmtConsumerNotFound(c.ID)
	}
	if cs.position < l.baseSequence {
		return nil, false, fmtSequenceOutOfBounds(cs.position)
	}
	if cs.position >= l.nextSequence {
		return nil, false, nil
	}

	idx := cs.position - l.baseSequence
	msg := l.messages[idx]
	cs.position++
	cs.lastReadAt = time.Now()
	return msg, true, nil
}

// ReadBatch returns up to n messages starting at consumer's current
// position, advancing it accordingly. It never blocks; an empty result
// means the consumer has caught up.
func (l *Log) ReadBatch(c *Consumer, n int) ([]*Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cs, ok := l.consumers[c.ID]
	if !ok {
		return nil, fmtConsumerNotFound(c.ID)
	}
	if cs.position < l.baseSequence {
		return nil, fmtSequenceOutOfBounds(cs.position)
	}

	out := make([]*Message, 0, n)
	for len(out) < n && cs.position < l.nextSequence {
		idx := cs.position - l.baseSequence
		out = append(out, l.messages[idx])
		cs.position++
	}
	if len(out) > 0 {
		cs.lastReadAt = time.Now()
	}
	return out, nil
}

// Lag returns next_sequence - consumer.position.
func (l *Log) Lag(c *Consumer) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cs, ok := l.consumers[c.ID]
	if !ok {
		return 0, fmtConsumerNotFound(c.ID)
	}
	return l.nextSequence - cs.position, nil
}

// LagStats aggregates lag across every registered consumer.
func (l *Log) LagStats() LagStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LagStats{TotalConsumers: len(l.consumers)}
	if len(l.consumers) == 0 {
		return stats
	}
	var sum uint64
	first := true
	for _, cs := range l.consumers {
		lag := l.nextSequence - cs.position
		sum += lag
		if first {
			stats.MaxLag, stats.MinLag = lag, lag
			first = false
		}
		if lag > stats.MaxLag {
			stats.MaxLag = lag
		}
		if lag < stats.MinLag {
			stats.MinLag = lag
		}
	}
	stats.AvgLag = float64(sum) / float64(len(l.consumers))
	return stats
}

// MemoryStats reports the log's current message and byte footprint.
func (l *Log) MemoryStats() MemoryStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.memoryStatsLocked()
}

func (l *Log) memoryStatsLocked() MemoryStats {
	counts := make(map[string]int, len(l.perProducerCounts))
	for k, v := range l.perProducerCounts {
		counts[k] = v
	}
	return MemoryStats{
		TotalMessages:     int(l.nextSequence - l.baseSequence),
		TotalBytes:        l.totalBytes,
		PerProducerCounts: counts,
	}
}

// SetMemoryThresholdBytes sets the soft cap that triggers automatic GC.
// Zero disables it.
func (l *Log) SetMemoryThresholdBytes(t int) {
	l.mu.Lock()
	l.memoryThresholdBytes = t
	l.mu.Unlock()
}

// CollectGarbage manually triggers garbage collection and returns the
// number of messages removed.
func (l *Log) CollectGarbage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collectGarbageLocked()
}

// collectGarbageLocked implements spec §4.1's GC algorithm steps 1-3. It
// must be called with l.mu held.
func (l *Log) collectGarbageLocked() int {
	minPosition := l.nextSequence
	for _, cs := range l.consumers {
		if cs.position < minPosition {
			minPosition = cs.position
		}
	}

	d := minPosition
	if d <= l.baseSequence {
		return 0
	}

	dropCount := int(d - l.baseSequence)
	if dropCount > len(l.messages) {
		dropCount = len(l.messages)
	}
	for i := 0; i < dropCount; i++ {
		removed := l.messages[i]
		l.totalBytes -= messageSize(removed)
		l.perProducerCounts[removed.ProducerID]--
		if l.perProducerCounts[removed.ProducerID] <= 0 {
			delete(l.perProducerCounts, removed.ProducerID)
		}
	}
	l.messages = l.messages[dropCount:]
	l.baseSequence += uint64(dropCount)
	return dropCount
}

// DetectStaleConsumers reports, without removing, every consumer whose
// last_read_at is older than idleDuration.
func (l *Log) DetectStaleConsumers(idleDuration time.Duration) []StaleConsumerInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var out []StaleConsumerInfo
	for _, cs := range l.consumers {
		idle := now.Sub(cs.lastReadAt)
		if idle >= idleDuration {
			out = append(out, StaleConsumerInfo{
				ConsumerID: cs.id,
				Lag:        l.nextSequence - cs.position,
				IdleFor:    idle,
			})
		}
	}
	return out
}

// CleanupStaleConsumers removes consumers whose lag exceeds lagThreshold
// AND whose last_read_at is older than the log's configured stale idle
// bound (WithStaleIdleBound), returning the count removed.
func (l *Log) CleanupStaleConsumers(lagThreshold uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var toRemove []uint64
	for id, cs := range l.consumers {
		lag := l.nextSequence - cs.position
		if lag > lagThreshold && now.Sub(cs.lastReadAt) >= l.staleIdleBound {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		delete(l.consumers, id)
	}
	return len(toRemove)
}

// removeConsumer unregisters a consumer, called from Consumer.Close.
func (l *Log) removeConsumer(id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.consumers[id]; !ok {
		return fmtConsumerNotFound(id)
	}
	delete(l.consumers, id)
	return nil
}

// consumerPosition returns a consumer's current read position.
func (l *Log) consumerPosition(id uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cs, ok := l.consumers[id]; ok {
		return cs.position
	}
	return 0
}
