package notifications

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Default policy constants (spec §4.2 "Auto-management policies"). These
// are defaults, not invariants: a Bus built with NewBus can override them
// via BusOption.
const (
	DefaultHighWaterMark      = 10_000
	DefaultStaleIdle          = 5 * time.Minute
	DefaultOutOfMemoryTotal   = 1_000_000
	DefaultOverloadSubscriber = 1_000
	defaultJanitorInterval    = 30 * time.Second
)

// HealthCounts summarizes subscriber health across the bus.
type HealthCounts struct {
	Healthy  int
	Warning  int
	Critical int
	Overload bool
}

// Bus is the in-memory publish/subscribe event fan-out described in spec
// §4.2. It is safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	order       []string // preserves subscribe order for deterministic iteration

	highWaterMark      int
	staleIdle          time.Duration
	outOfMemoryTotal   int
	overloadSubscriber int

	janitorCancel context.CancelFunc
	janitorDone   chan struct{}

	metrics *busMetrics
}

// BusOption configures a Bus at construction time.
type BusOption func(*Bus)

// WithMeterProvider enables OpenTelemetry instrumentation, reporting
// publish counts, failure counts, active subscriber count, and per-publish
// queue depth through mp. Without this option the bus emits no metrics.
func WithMeterProvider(mp metric.MeterProvider) BusOption {
	return func(b *Bus) { b.metrics = newBusMetrics(mp) }
}

// WithHighWaterMark overrides the per-subscriber queued-event warning
// threshold.
func WithHighWaterMark(n int) BusOption { return func(b *Bus) { b.highWaterMark = n } }

// WithStaleIdle overrides how long a subscriber above the high-water mark
// may go without dequeue progress before being auto-removed.
func WithStaleIdle(d time.Duration) BusOption { return func(b *Bus) { b.staleIdle = d } }

// WithOutOfMemoryTotal overrides the aggregate queued-event ceiling that
// triggers OutOfMemory.
func WithOutOfMemoryTotal(n int) BusOption { return func(b *Bus) { b.outOfMemoryTotal = n } }

// WithOverloadSubscriberCount overrides the active-subscriber ceiling above
// which AssessHealth sets HealthCounts.Overload.
func WithOverloadSubscriberCount(n int) BusOption {
	return func(b *Bus) { b.overloadSubscriber = n }
}

// NewBus constructs a Bus and starts its background janitor, which sweeps
// for stale subscribers on an interval (spec §4.2 "stale subscriber").
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers:        make(map[string]*subscriber),
		highWaterMark:      DefaultHighWaterMark,
		staleIdle:          DefaultStaleIdle,
		outOfMemoryTotal:   DefaultOutOfMemoryTotal,
		overloadSubscriber: DefaultOverloadSubscriber,
	}
	for _, opt := range opts {
		opt(b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.janitorCancel = cancel
	b.janitorDone = make(chan struct{})
	go b.janitor(ctx)
	return b
}

// Close stops the background janitor and closes every subscriber's
// receiver endpoint.
func (b *Bus) Close() {
	b.janitorCancel()
	<-b.janitorDone

	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.subscribers = make(map[string]*subscriber)
	b.order = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Subscribe registers a new subscriber and returns the receiver endpoint it
// should read events from. id must be unique; double-registration fails
// with ErrAlreadyExists.
func (b *Bus) Subscribe(id string, filter Filter, sourceTag string) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return nil, ErrAlreadyExists
	}
	s := newSubscriber(id, filter, sourceTag)
	b.subscribers[id] = s
	b.order = append(b.order, id)
	b.metrics.recordSubscribe()
	return s.Receive(), nil
}

// Unsubscribe removes a subscriber and closes its receiver endpoint. It is
// idempotent: unsubscribing an unknown id is a no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	s, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		b.order = removeID(b.order, id)
	}
	b.mu.Unlock()

	if ok {
		s.close()
		b.metrics.recordUnsubscribe()
	}
}

// Publish fans an event out to every subscriber whose filter matches. It
// returns a *PublishFailed naming subscribers whose endpoint was already
// dropped, unless every match succeeded, and returns an *OutOfMemory error
// (skipping ordinary delivery bookkeeping) if the aggregate queued count
// across all subscribers would exceed the configured ceiling.
func (b *Bus) Publish(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	matched := make([]*subscriber, 0, len(b.order))
	total := 0
	for _, id := range b.order {
		s := b.subscribers[id]
		q := s.queuedCount()
		total += q
		b.metrics.recordQueueDepth(q)
		if s.filter.Matches(e) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	if total >= b.outOfMemoryTotal {
		sizes := make(map[string]int, len(matched))
		for _, s := range matched {
			sizes[s.id] = s.queuedCount()
		}
		return &OutOfMemory{QueueSizes: sizes, Total: total}
	}

	var failed []string
	for _, s := range matched {
		if !s.enqueue(e) {
			failed = append(failed, s.id)
			s.recordError()
		}
	}

	b.metrics.recordPublish(string(e.Kind), len(matched)-len(failed), len(failed))

	if len(failed) > 0 {
		return &PublishFailed{FailedIDs: failed}
	}
	return nil
}

// RecordDeliveryError marks a delivery failure against a subscriber, e.g.
// when a plugin's handler returns an error while processing an event it
// already received. It only records the failure; the caller decides
// whether to surface it.
func (b *Bus) RecordDeliveryError(id string) {
	b.mu.RLock()
	s, ok := b.subscribers[id]
	b.mu.RUnlock()
	if ok {
		s.recordError()
	}
}

// ShouldLogError reports whether a per-delivery error for this subscriber
// should be logged right now, applying the rate-limited suppression from
// spec §4.2 once the subscriber's error rate exceeds 10%.
func (b *Bus) ShouldLogError(id string) bool {
	b.mu.RLock()
	s, ok := b.subscribers[id]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if !s.errorRateExceeded() {
		return true
	}
	return s.errorLimiter.Allow()
}

// SubscriberStatistics returns a point-in-time snapshot for one subscriber.
func (b *Bus) SubscriberStatistics(id string) (SubscriberStatistics, error) {
	b.mu.RLock()
	s, ok := b.subscribers[id]
	b.mu.RUnlock()
	if !ok {
		return SubscriberStatistics{}, ErrSubscriberNotFound
	}
	return s.stats(), nil
}

// AssessHealth classifies every subscriber as healthy, warning (above the
// high-water mark), or critical (stale beyond the idle bound), and reports
// system overload when the number of active subscribers exceeds the
// configured ceiling.
func (b *Bus) AssessHealth() HealthCounts {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var counts HealthCounts
	for _, id := range b.order {
		s := b.subscribers[id]
		q := s.queuedCount()
		switch {
		case q >= b.highWaterMark && time.Since(s.stats().LastActivity) >= b.staleIdle:
			counts.Critical++
		case q >= b.highWaterMark:
			counts.Warning++
		default:
			counts.Healthy++
		}
	}
	counts.Overload = len(b.order) > b.overloadSubscriber
	return counts
}

// janitor periodically removes stale subscribers: those above the
// high-water mark that have made no dequeue progress within the idle bound.
func (b *Bus) janitor(ctx context.Context) {
	defer close(b.janitorDone)
	ticker := time.NewTicker(defaultJanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweepStale()
		}
	}
}

func (b *Bus) sweepStale() {
	b.mu.RLock()
	var stale []*subscriber
	for _, id := range b.order {
		s := b.subscribers[id]
		st := s.stats()
		if st.QueuedCount >= b.highWaterMark && time.Since(st.LastActivity) >= b.staleIdle {
			stale = append(stale, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range stale {
		b.Unsubscribe(s.id)
		warn := NewEvent(KindSystem, SystemConfigReload, "notifications", nil)
		warn.Sub = "SubscriberRemoved"
		warn.Headers = map[string]string{"subscriber_id": s.id, "reason": "stale"}
		_ = b.Publish(warn)
	}
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
