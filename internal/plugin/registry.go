package plugin

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/deeprave/repostats/internal/plugin/dynload"
)

// Factory constructs a built-in plugin instance. Built-in plugins register
// their factory at process startup (spec §4.3 "compiled into the binary;
// registered by factory closure at startup").
type Factory func() Plugin

// Registry holds every known plugin, built-in and externally discovered,
// under one unified namespace keyed by plugin name.
type Registry struct {
	loader    dynload.Loader
	factories map[string]Factory
	instances map[string]Plugin
	order     []string
}

// NewRegistry builds an empty Registry that uses loader to open external
// plugin libraries.
func NewRegistry(loader dynload.Loader) *Registry {
	return &Registry{
		loader:    loader,
		factories: make(map[string]Factory),
		instances: make(map[string]Plugin),
	}
}

// RegisterBuiltin registers a built-in plugin factory under name and calls
// it immediately to construct the instance (built-ins have no fallible
// discovery step).
func (r *Registry) RegisterBuiltin(name string, factory Factory) {
	r.factories[name] = factory
	p := factory()
	r.instances[name] = p
	r.order = append(r.order, name)
}

// DiscoverExternal scans dir for plugin manifests and loads the ones whose
// ABI version matches BaseAPIVersion. A mismatched or unloadable plugin is
// skipped and reported in the returned warnings slice rather than aborting
// discovery of the rest (spec §4.3 "On mismatch, skip with a warning, not a
// fatal error").
func (r *Registry) DiscoverExternal(fs afero.Fs, dir string) []error {
	manifests, warnings := DiscoverManifests(fs, dir)

	for _, m := range manifests {
		lib, err := r.loader.Open(m.LibraryPath(dir))
		if err != nil {
			warnings = append(warnings, fmt.Errorf("plugin %q: %w", m.Name, err))
			continue
		}

		version, err := lib.APIVersion()
		if err != nil {
			warnings = append(warnings, fmt.Errorf("plugin %q: %w", m.Name, err))
			continue
		}
		if version != BaseAPIVersion {
			warnings = append(warnings, fmt.Errorf("plugin %q: %w: host=%d plugin=%d",
				m.Name, ErrAPIVersionMismatch, BaseAPIVersion, version))
			continue
		}

		handle, err := lib.CreatePlugin()
		if err != nil {
			warnings = append(warnings, fmt.Errorf("plugin %q: %w", m.Name, err))
			continue
		}
		p, ok := handle.(Plugin)
		if !ok {
			warnings = append(warnings, fmt.Errorf("plugin %q: created handle does not satisfy the plugin contract", m.Name))
			continue
		}

		r.instances[m.Name] = p
		r.order = append(r.order, m.Name)
	}

	return warnings
}

// Instances returns every registered plugin instance in registration order.
func (r *Registry) Instances() []Plugin {
	out := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.instances[name])
	}
	return out
}

// Lookup returns the plugin registered under name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.instances[name]
	return p, ok
}
