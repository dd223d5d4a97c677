package plugin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/queue"
)

// activation is one plugin the engine currently owns, bundling everything
// the shutdown sequence needs to unwind cleanly and in reverse order.
type activation struct {
	plugin   Plugin
	name     string
	consumer *queue.Consumer // nil unless the plugin is Processing
	eventCh  <-chan notifications.Event
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Engine drives the full plugin life-cycle described in spec §4.3:
// discovery already happened via Registry; Engine handles segmentation,
// activation, requirement aggregation, and the start/stop sequences.
type Engine struct {
	registry  *Registry
	segmenter *Segmenter
	activator *Activator
	log       *queue.Log
	bus       *notifications.Bus
	config    *viper.Viper
	useColors bool

	active []activation
}

// NewEngine wires an Engine against the given plugin registry, message
// log, event bus, and config document. autoActivePlugins names the plugins
// activated unconditionally regardless of command-line segments.
func NewEngine(registry *Registry, l *queue.Log, bus *notifications.Bus, cfg *viper.Viper, useColors bool, autoActivePlugins []string) *Engine {
	instances := registry.Instances()
	known := make([]string, 0, len(instances)*2)
	for _, p := range instances {
		info := p.Info()
		known = append(known, info.Name)
		for _, fn := range info.Functions {
			known = append(known, fn.Name)
			known = append(known, fn.Aliases...)
		}
	}

	return &Engine{
		registry:  registry,
		segmenter: NewSegmenter(known),
		activator: NewActivator(autoActivePlugins),
		log:       l,
		bus:       bus,
		config:    cfg,
		useColors: useColors,
	}
}

// RequirementsRequested returns the union-closure of every currently active
// plugin's Requires, ready to hand to the Scanner (spec §4.3 "requirement
// aggregation").
func (e *Engine) RequirementsRequested() Requires {
	var union Requires
	for _, a := range e.active {
		p, ok := e.registry.Lookup(a.name)
		if !ok {
			continue
		}
		union |= p.Info().Requires
	}
	return union.Closure()
}

// Activate segments args against the registry's known commands, resolves
// active plugins (applying auto-activation and the Output uniqueness
// constraint), then runs the activation sequence: consumer allocation,
// event subscription, Initialize, and ParseArguments. A per-plugin failure
// during Initialize or ParseArguments is recorded and skipped; it does not
// abort activation of the remaining plugins (spec §7 propagation policy).
func (e *Engine) Activate(ctx context.Context, args []string) error {
	segments, err := e.segmenter.Segment(args)
	if err != nil {
		return err
	}

	instances := e.registry.Instances()
	candidates := make([]candidate, 0, len(instances))
	for _, p := range instances {
		candidates = append(candidates, candidate{Name: p.Info().Name, Info: p.Info()})
	}

	activePlugins, err := e.activator.Activate(segments, candidates)
	if err != nil {
		return err
	}

	correlationID := uuid.NewString()

	for _, ap := range activePlugins {
		p, ok := e.registry.Lookup(ap.PluginName)
		if !ok {
			continue
		}
		if err := e.activateOne(ctx, p, ap, correlationID); err != nil {
			log.Printf("plugin %q: activation failed: %v", ap.PluginName, err)
			e.publishPluginEvent(notifications.PluginError, ap.PluginName, correlationID, err)
			continue
		}
	}

	return nil
}

func (e *Engine) activateOne(ctx context.Context, p Plugin, ap ActivePlugin, correlationID string) error {
	info := p.Info()

	var consumer *queue.Consumer
	if info.Type == TypeProcessing {
		consumer = e.log.CreateConsumer(info.Name)
	}

	eventCh, err := e.bus.Subscribe(info.Name, notifications.All(), info.Name)
	if err != nil {
		if consumer != nil {
			_ = consumer.Close()
		}
		return newExecutionFailed(info.Name, "subscribe", err)
	}

	if err := p.Initialize(ctx); err != nil {
		e.bus.Unsubscribe(info.Name)
		if consumer != nil {
			_ = consumer.Close()
		}
		return fmt.Errorf("%w: %s", ErrInitializationFailed, err)
	}

	cfg := NewConfig(e.useColors, e.config, info.Name)
	if err := p.ParseArguments(ctx, ap.Args, cfg); err != nil {
		e.bus.Unsubscribe(info.Name)
		if consumer != nil {
			_ = consumer.Close()
		}
		return newExecutionFailed(info.Name, "parse_arguments", err)
	}

	a := activation{
		plugin:   p,
		name:     info.Name,
		consumer: consumer,
		eventCh:  eventCh,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	e.active = append(e.active, a)
	e.publishPluginEvent(notifications.PluginRegistered, info.Name, correlationID, nil)

	if proc, ok := p.(Processing); ok && consumer != nil {
		if err := e.startConsuming(ctx, proc, &a); err != nil {
			log.Printf("plugin %q: start_consuming failed: %v", info.Name, err)
			e.active = e.active[:len(e.active)-1]
			e.deactivate(a)
			return newExecutionFailed(info.Name, "start_consuming", err)
		}
	}

	return nil
}

// startConsuming hands consumer to proc's own receive loop via the narrow
// ConsumerHandle seam, so this package never exposes queue.Message directly
// across the plugin boundary.
func (e *Engine) startConsuming(ctx context.Context, proc Processing, a *activation) error {
	handle := &ConsumerHandle{
		Label: a.name,
		ReadOne: func() (string, string, bool, error) {
			msg, ok, err := a.consumer.ReadOne()
			if err != nil || !ok {
				return "", "", ok, err
			}
			return msg.Payload, msg.MessageType, true, nil
		},
		ReadN: func(n int) ([]string, error) {
			msgs, err := a.consumer.ReadBatch(n)
			if err != nil {
				return nil, err
			}
			out := make([]string, len(msgs))
			for i, m := range msgs {
				out[i] = m.Payload
			}
			return out, nil
		},
	}
	return proc.StartConsuming(ctx, handle)
}

// Shutdown runs the reverse activation sequence: stop_consuming on every
// Processing plugin, drain event receivers, cleanup on all plugins,
// unsubscribe, drop consumers (spec §4.3 "Shutdown sequence").
func (e *Engine) Shutdown(ctx context.Context) {
	for i := len(e.active) - 1; i >= 0; i-- {
		e.deactivate(e.active[i])
	}
	e.active = nil
}

func (e *Engine) deactivate(a activation) {
	if proc, ok := a.plugin.(Processing); ok && a.consumer != nil {
		if err := proc.StopConsuming(context.Background()); err != nil {
			log.Printf("plugin %q: stop_consuming failed: %v", a.name, err)
		}
	}

	e.drainEvents(a)

	if err := a.plugin.Cleanup(context.Background()); err != nil {
		log.Printf("plugin %q: cleanup failed: %v", a.name, err)
	}

	e.bus.Unsubscribe(a.name)

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			log.Printf("plugin %q: consumer close failed: %v", a.name, err)
		}
	}
}

// drainEvents discards any events already queued for a's receiver so
// Unsubscribe (which closes the channel) never races a plugin still trying
// to send. A single poll interval bounds the wait, matching spec §5's
// "bounded by a single poll interval" cancellation contract.
func (e *Engine) drainEvents(a activation) {
	const pollInterval = 50 * time.Millisecond
	deadline := time.After(pollInterval)
	for {
		select {
		case _, ok := <-a.eventCh:
			if !ok {
				return
			}
		case <-deadline:
			return
		}
	}
}

func (e *Engine) publishPluginEvent(sub, pluginName, correlationID string, cause error) {
	evt := notifications.NewEvent(notifications.KindPlugin, sub, pluginName, cause)
	evt.Headers = map[string]string{"correlation_id": correlationID}
	if err := e.bus.Publish(evt); err != nil {
		log.Printf("plugin engine: publish %s event for %q: %v", sub, pluginName, err)
	}
}
