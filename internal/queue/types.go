package queue

import "time"

// MemoryStats reports the log's current message and byte footprint.
type MemoryStats struct {
	TotalMessages      int
	TotalBytes         int
	PerProducerCounts  map[string]int
}

// LagStats aggregates lag across every registered consumer. Grounded on
// original_source/src/queue/types.rs.
type LagStats struct {
	TotalConsumers int
	MaxLag         uint64
	MinLag         uint64
	AvgLag         float64
}

// StaleConsumerInfo describes a consumer flagged by DetectStaleConsumers.
type StaleConsumerInfo struct {
	ConsumerID uint64
	Lag        uint64
	IdleFor    time.Duration
}
