package plugin

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/plugin/dynload"
	"github.com/deeprave/repostats/internal/queue"
	"github.com/deeprave/repostats/internal/scanner"
)

// fakeProcessingPlugin is a Processing plugin recording every lifecycle
// call it received, for asserting activation/shutdown ordering.
type fakeProcessingPlugin struct {
	mu    sync.Mutex
	name  string
	calls []string

	initErr        error
	parseArgsErr   error
	startConsumErr error

	handle *ConsumerHandle

	// resolvedFormat demonstrates the CLI-over-config precedence rule
	// (spec §4.3): ParseArguments below builds a flag set from its own
	// segment args and resolves "format" through cfg.ResolveString.
	resolvedFormat string
}

func (f *fakeProcessingPlugin) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeProcessingPlugin) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeProcessingPlugin) Info() Descriptor {
	return Descriptor{
		Name:      f.name,
		Type:      TypeProcessing,
		Functions: []Function{{Name: "consume"}},
		Requires:  scanner.Commits,
	}
}

func (f *fakeProcessingPlugin) Initialize(context.Context) error {
	f.record("initialize")
	return f.initErr
}

func (f *fakeProcessingPlugin) ParseArguments(_ context.Context, args []string, cfg *Config) error {
	f.record("parse_arguments")
	if f.parseArgsErr != nil {
		return f.parseArgsErr
	}

	flags := pflag.NewFlagSet(f.name, pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("format", "table", "")
	_ = flags.Parse(args)
	f.resolvedFormat = cfg.ResolveString(flags, "format", "table")

	return nil
}

func (f *fakeProcessingPlugin) Execute(context.Context, []string) error { return nil }

func (f *fakeProcessingPlugin) Cleanup(context.Context) error {
	f.record("cleanup")
	return nil
}

func (f *fakeProcessingPlugin) StartConsuming(_ context.Context, handle *ConsumerHandle) error {
	f.record("start_consuming")
	f.handle = handle
	return f.startConsumErr
}

func (f *fakeProcessingPlugin) StopConsuming(context.Context) error {
	f.record("stop_consuming")
	return nil
}

func newTestEngine(t *testing.T, autoActive []string, plugins ...*fakeProcessingPlugin) (*Engine, *notifications.Bus, *queue.Log) {
	t.Helper()
	bus := notifications.NewBus()
	t.Cleanup(bus.Close)
	l := queue.NewLog(bus)

	reg := NewRegistry(dynload.NewFakeLoader())
	for _, p := range plugins {
		p := p
		reg.RegisterBuiltin(p.name, func() Plugin { return p })
	}

	e := NewEngine(reg, l, bus, viper.New(), false, autoActive)
	return e, bus, l
}

func TestEngine_ActivateRunsInitializeThenParseArgumentsThenStartConsuming(t *testing.T) {
	p := &fakeProcessingPlugin{name: "consume"}
	e, _, _ := newTestEngine(t, nil, p)

	err := e.Activate(context.Background(), []string{"consume", "--x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"initialize", "parse_arguments", "start_consuming"}, p.Calls())
	assert.Len(t, e.active, 1)
}

// spec §4.3: CLI args always take precedence over config values, exercised
// end to end through a real Engine activation.
func TestEngine_ParseArgumentsResolvesCLIOverConfigPrecedence(t *testing.T) {
	p := &fakeProcessingPlugin{name: "consume"}
	bus := notifications.NewBus()
	t.Cleanup(bus.Close)
	l := queue.NewLog(bus)

	v := viper.New()
	v.Set("consume.format", "json")

	reg := NewRegistry(dynload.NewFakeLoader())
	reg.RegisterBuiltin(p.name, func() Plugin { return p })
	e := NewEngine(reg, l, bus, v, false, nil)

	require.NoError(t, e.Activate(context.Background(), []string{"consume", "--format=yaml"}))
	assert.Equal(t, "yaml", p.resolvedFormat, "the segment's own --format flag must win over the config file value")

	e.Shutdown(context.Background())
}

// With no CLI flag on the segment, the plugin's config-file value wins.
func TestEngine_ParseArgumentsFallsBackToConfigWhenCLIUnset(t *testing.T) {
	p := &fakeProcessingPlugin{name: "consume"}
	bus := notifications.NewBus()
	t.Cleanup(bus.Close)
	l := queue.NewLog(bus)

	v := viper.New()
	v.Set("consume.format", "json")

	reg := NewRegistry(dynload.NewFakeLoader())
	reg.RegisterBuiltin(p.name, func() Plugin { return p })
	e := NewEngine(reg, l, bus, v, false, nil)

	require.NoError(t, e.Activate(context.Background(), []string{"consume"}))
	assert.Equal(t, "json", p.resolvedFormat)

	e.Shutdown(context.Background())
}

func TestEngine_RequirementsRequestedUnionsActivePlugins(t *testing.T) {
	p := &fakeProcessingPlugin{name: "consume"}
	e, _, _ := newTestEngine(t, nil, p)

	require.NoError(t, e.Activate(context.Background(), []string{"consume"}))
	assert.True(t, e.RequirementsRequested().Has(scanner.Commits))
}

func TestEngine_InitializeFailureSkipsPluginWithoutAbortingEngine(t *testing.T) {
	failing := &fakeProcessingPlugin{name: "bad", initErr: assertErr}
	ok := &fakeProcessingPlugin{name: "good"}
	e, _, _ := newTestEngine(t, nil, failing, ok)

	err := e.Activate(context.Background(), []string{"bad", "good"})
	require.NoError(t, err, "per-plugin activation failure does not abort the engine")

	assert.Len(t, e.active, 1)
	assert.Equal(t, "good", e.active[0].name)
}

func TestEngine_ShutdownRunsReverseSequence(t *testing.T) {
	p := &fakeProcessingPlugin{name: "consume"}
	e, _, _ := newTestEngine(t, nil, p)

	require.NoError(t, e.Activate(context.Background(), []string{"consume"}))
	e.Shutdown(context.Background())

	assert.Equal(t, []string{
		"initialize", "parse_arguments", "start_consuming",
		"stop_consuming", "cleanup",
	}, p.Calls())
	assert.Empty(t, e.active)
}

var assertErr = &Generic{Message: "boom"}
