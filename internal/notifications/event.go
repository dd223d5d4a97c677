// Package notifications implements the in-memory event bus that carries
// lifecycle notifications (scan progress, queue memory pressure, plugin
// registration, system shutdown) orthogonal to the message log. Named after
// original_source/src/notifications, the Rust package this was distilled
// from.
package notifications

import "time"

// Kind is one of the four top-level event categories a subscriber can
// filter on.
type Kind string

const (
	KindSystem Kind = "System"
	KindScan   Kind = "Scan"
	KindQueue  Kind = "Queue"
	KindPlugin Kind = "Plugin"
)

// System sub-kinds.
const (
	SystemStartup      = "Startup"
	SystemShutdown     = "Shutdown"
	SystemConfigReload = "ConfigReload"
)

// Queue sub-kinds.
const (
	QueueStarted      = "Started"
	QueueShutdown     = "Shutdown"
	QueueMessageAdded = "MessageAdded"
	QueueMemoryLow    = "MemoryLow"
	QueueMemoryNormal = "MemoryNormal"
)

// Scan sub-kinds.
const (
	ScanStarted   = "Started"
	ScanProgress  = "Progress"
	ScanDataReady = "DataReady"
	ScanWarning   = "Warning"
	ScanError     = "Error"
	ScanCompleted = "Completed"
)

// Plugin sub-kinds.
const (
	PluginRegistered   = "Registered"
	PluginProcessing   = "Processing"
	PluginDataReady    = "DataReady"
	PluginError        = "Error"
	PluginUnregistered = "Unregistered"
)

// Event is a single notification carried on the bus. Sub is one of the
// per-Kind sub-kind constants above; Source identifies the component that
// raised the event (e.g. a scanner id or plugin name).
type Event struct {
	Kind      Kind
	Sub       string
	Source    string
	Timestamp time.Time
	// Payload carries event-specific data (e.g. a queue.MemoryStats
	// snapshot for QueueMemoryLow, or the activation error for PluginError).
	Payload any
	// Headers carry free-form metadata, e.g. a correlation id set by the
	// plugin engine for an activation run.
	Headers map[string]string
}

// NewEvent constructs an Event stamped with the current time.
func NewEvent(kind Kind, sub, source string, payload any) Event {
	return Event{Kind: kind, Sub: sub, Source: source, Timestamp: time.Now(), Payload: payload}
}
