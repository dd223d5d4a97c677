package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/deeprave/repostats/internal/cliutil"
	"github.com/deeprave/repostats/internal/config"
	"github.com/deeprave/repostats/internal/notifications"
	"github.com/deeprave/repostats/internal/plugin"
	"github.com/deeprave/repostats/internal/plugin/dynload"
	"github.com/deeprave/repostats/internal/registry"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		log.Printf("automaxprocs: %v", err)
	}

	os.Exit(run(os.Args[1:]))
}

// Exit codes per spec §6: 0 success, 2 user error, 3 plugin error, 4
// scanner error, 1 internal error.
const (
	exitSuccess     = 0
	exitInternal    = 1
	exitUserError   = 2
	exitPluginError = 3
	exitScannerErr  = 4
)

func run(args []string) int {
	globalFlags := pflag.NewFlagSet("repostats", pflag.ContinueOnError)
	configPath := globalFlags.String("config", "", "path to the configuration document")
	pluginDir := globalFlags.String("plugin-dir", "", "directory to scan for external plugin manifests")
	listPlugins := globalFlags.Bool("plugins", false, "list discovered plugins and exit")
	verbose := globalFlags.Bool("verbose", false, "enable verbose logging")
	globalFlags.SetInterspersed(false) // stop at the first plugin command; its own flags are not ours to parse

	if err := globalFlags.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserError
	}

	doc, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}

	useColors := cliutil.ResolveUseColors(nil, doc.UseColors(), isTerminal(os.Stdout))
	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// A reader-less MeterProvider still aggregates instrument state in
	// memory; it costs nothing until a caller attaches an exporter, which
	// is outside this module's scope (spec Non-goal: deployment topology).
	meterProvider := sdkmetric.NewMeterProvider()
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	registry.ConfigureEventBus(notifications.WithMeterProvider(meterProvider))

	bus := registry.EventBus()
	l := registry.MessageLog()
	defer bus.Close()

	_ = bus.Publish(notifications.NewEvent(notifications.KindSystem, notifications.SystemStartup, "repostats", nil))

	reg := plugin.NewRegistry(dynload.NativeLoader{})
	registerBuiltins(reg)

	if *pluginDir != "" {
		for _, w := range reg.DiscoverExternal(afero.NewOsFs(), *pluginDir) {
			log.Printf("plugin discovery: %v", w)
		}
	}

	if *listPlugins {
		for _, p := range reg.Instances() {
			fmt.Println(p.Info().Name)
		}
		return exitSuccess
	}

	engine := plugin.NewEngine(reg, l, bus, doc.Raw(), useColors, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("repostats: shutting down")
		cancel()
	}()

	if err := engine.Activate(ctx, globalFlags.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, plugin.ErrPluginNotFound) {
			return exitUserError
		}
		return exitPluginError
	}
	defer engine.Shutdown(context.Background())

	_ = bus.Publish(notifications.NewEvent(notifications.KindSystem, notifications.SystemShutdown, "repostats", nil))

	return exitSuccess
}

// loadConfig loads the configuration document from path, or an empty
// document (every accessor falling back to its default) when path is
// empty.
func loadConfig(path string) (*config.Document, error) {
	if path == "" {
		return config.EmptyDocument(), nil
	}
	return config.NewFileLoader(path, nil).Load(context.Background())
}

// registerBuiltins registers every compiled-in plugin factory. There are
// none yet: this binary ships as a pure substrate, with built-in plugins
// added by callers that vendor this module.
func registerBuiltins(_ *plugin.Registry) {}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
