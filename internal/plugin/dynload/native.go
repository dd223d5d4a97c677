package dynload

import (
	"fmt"
	stdplugin "plugin"
)

// createSymbol and apiVersionSymbol are the two exported Go symbols every
// dynamic plugin library must have, standing in for the ABI's create_plugin
// and plugin_api_version entry points; they are resolved through Go's plugin
// package, not through C linkage.
const (
	createSymbol     = "CreatePlugin"
	apiVersionSymbol = "PluginAPIVersion"
)

// NativeLoader loads plugins via Go's plugin package. Only usable on
// platforms/build modes that support Go plugins (linux/darwin, non-static
// binaries); it is the seam's only implementation that ever touches
// stdplugin.Open.
type NativeLoader struct{}

func (NativeLoader) Open(path string) (Library, error) {
	p, err := stdplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynload: open %q: %w", path, err)
	}
	return &nativeLibrary{p: p}, nil
}

type nativeLibrary struct {
	p *stdplugin.Plugin
}

func (l *nativeLibrary) CreatePlugin() (Handle, error) {
	sym, err := l.p.Lookup(createSymbol)
	if err != nil {
		return nil, fmt.Errorf("dynload: lookup %s: %w", createSymbol, err)
	}
	fn, ok := sym.(func() Handle)
	if !ok {
		return nil, fmt.Errorf("dynload: symbol %s has unexpected signature", createSymbol)
	}
	return fn(), nil
}

func (l *nativeLibrary) APIVersion() (uint32, error) {
	sym, err := l.p.Lookup(apiVersionSymbol)
	if err != nil {
		return 0, fmt.Errorf("dynload: lookup %s: %w", apiVersionSymbol, err)
	}
	fn, ok := sym.(func() uint32)
	if !ok {
		return 0, fmt.Errorf("dynload: symbol %s has unexpected signature", apiVersionSymbol)
	}
	return fn(), nil
}

// Close is a no-op: Go's plugin package never unloads a library once opened.
func (l *nativeLibrary) Close() error { return nil }
