// Package registry is a process-wide container exposing the singletons the
// rest of the process shares: the message log and the event bus. It mirrors
// the facade pattern of a hand-written "services" module — internal packages
// own their state, this package only owns lazy construction and access.
//
// The mutable state a caller can touch before construction (bus/log options
// registered via Configure*, and the constructed instances themselves) lives
// behind a Guard, matching spec §4.5's "services that need mutation are
// wrapped in an exclusive-access guard."
package registry

import (
	"sync"

	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/queue"
)

// registryState is the guarded value: pending options plus the constructed
// singletons once they exist.
type registryState struct {
	bus     *notifications.Bus
	busOpts []notifications.BusOption

	log     *queue.Log
	logOpts []queue.LogOption
}

var (
	busOnce sync.Once
	logOnce sync.Once
	guard   = NewGuard(registryState{})
)

// EventBus returns the process-wide event bus, constructing it on first
// call. Every subsequent call returns the same instance.
func EventBus() *notifications.Bus {
	busOnce.Do(func() {
		var opts []notifications.BusOption
		guard.With(func(s *registryState) { opts = s.busOpts })

		b := notifications.NewBus(opts...)
		guard.With(func(s *registryState) { s.bus = b })
	})

	var b *notifications.Bus
	guard.With(func(s *registryState) { b = s.bus })
	return b
}

// MessageLog returns the process-wide message log, constructing it (and its
// dependency on EventBus) on first call.
func MessageLog() *queue.Log {
	logOnce.Do(func() {
		var opts []queue.LogOption
		guard.With(func(s *registryState) { opts = s.logOpts })

		l := queue.NewLog(EventBus(), opts...)
		guard.With(func(s *registryState) { s.log = l })
	})

	var l *queue.Log
	guard.With(func(s *registryState) { l = s.log })
	return l
}

// ConfigureEventBus registers options applied the first time EventBus is
// constructed. It panics if the bus has already been constructed, matching
// the registry's "configure before first access" contract.
func ConfigureEventBus(opts ...notifications.BusOption) {
	guard.With(func(s *registryState) {
		if s.bus != nil {
			panic("registry: ConfigureEventBus called after the event bus was already constructed")
		}
		s.busOpts = append(s.busOpts, opts...)
	})
}

// ConfigureMessageLog registers options applied the first time MessageLog is
// constructed. It panics if the log has already been constructed.
func ConfigureMessageLog(opts ...queue.LogOption) {
	guard.With(func(s *registryState) {
		if s.log != nil {
			panic("registry: ConfigureMessageLog called after the message log was already constructed")
		}
		s.logOpts = append(s.logOpts, opts...)
	})
}

// reset tears down the singletons so tests can start from a clean registry.
// Not exported: production code never needs to reconstruct these.
func reset() {
	busOnce = sync.Once{}
	logOnce = sync.Once{}
	guard = NewGuard(registryState{})
}
