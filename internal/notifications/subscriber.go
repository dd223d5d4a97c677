package notifications

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SubscriberStatistics is the point-in-time view exported by
// Bus.SubscriberStatistics.
type SubscriberStatistics struct {
	ID             string
	QueuedCount    int
	ProcessedCount uint64
	ErrorCount     uint64
	LastActivity   time.Time
}

// subscriber owns an unbounded FIFO of events and the receiver endpoint the
// client reads from. The queue is a mutex-guarded slice signaled with a
// sync.Cond rather than a buffered channel, since spec §4.2 requires
// per-subscriber queues to be "logically unbounded" and Go channels are not.
type subscriber struct {
	id        string
	filter    Filter
	sourceTag string

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []Event
	closed   bool
	outCh    chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}

	processedCount uint64
	errorCount     uint64
	lastActivity   time.Time

	// errorLimiter suppresses per-delivery error logs once a subscriber's
	// error rate crosses the 10% threshold (spec §4.2 "error rate
	// limiting"), allowing one log line per 60s while still counting every
	// error toward statistics.
	errorLimiter *rate.Limiter
}

func newSubscriber(id string, filter Filter, sourceTag string) *subscriber {
	s := &subscriber{
		id:           id,
		filter:       filter,
		sourceTag:    sourceTag,
		outCh:        make(chan Event),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		lastActivity: time.Now(),
		errorLimiter: rate.NewLimiter(rate.Every(60*time.Second), 1),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// Receive returns the channel the client reads delivered events from.
func (s *subscriber) Receive() <-chan Event { return s.outCh }

// enqueue appends an event to the subscriber's unbounded queue. It never
// blocks the publisher. It reports false if the subscriber's receiver
// endpoint has already been dropped, per the design note that delivery
// failure only occurs once the endpoint is gone.
func (s *subscriber) enqueue(e Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, e)
	s.cond.Signal()
	s.mu.Unlock()
	return true
}

// queuedCount returns the number of events waiting to be delivered.
func (s *subscriber) queuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// pump drains the pending queue into outCh in FIFO order, one event at a
// time, blocking only when the queue is empty. This is the subscriber's
// canonical suspension point (spec §5).
func (s *subscriber) pump() {
	defer close(s.doneCh)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		// The event stays queued (and counted) until the client receives it.
		e := s.pending[0]
		s.mu.Unlock()

		select {
		case s.outCh <- e:
			s.mu.Lock()
			s.pending = s.pending[1:]
			s.processedCount++
			s.lastActivity = time.Now()
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// close stops the pump goroutine and releases the receiver endpoint.
func (s *subscriber) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	close(s.stopCh)
	<-s.doneCh
	close(s.outCh)
}

func (s *subscriber) recordError() {
	s.mu.Lock()
	s.errorCount++
	s.mu.Unlock()
}

func (s *subscriber) stats() SubscriberStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubscriberStatistics{
		ID:             s.id,
		QueuedCount:    len(s.pending),
		ProcessedCount: s.processedCount,
		ErrorCount:     s.errorCount,
		LastActivity:   s.lastActivity,
	}
}

// errorRateExceeded reports whether error_count/processed_count exceeds the
// 10% threshold from spec §4.2.
func (s *subscriber) errorRateExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processedCount == 0 {
		return false
	}
	return float64(s.errorCount)/float64(s.processedCount) > 0.10
}
