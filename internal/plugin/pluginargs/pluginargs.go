// Package pluginargs merges a plugin's CLI-supplied flags with its
// config-supplied values, CLI always winning, mirroring the parse-then-merge
// shape of original_source/src/plugin/args.rs's PluginConfig accessors.
package pluginargs

import "github.com/spf13/pflag"

// Resolver merges the arguments a segment carried on the command line with
// the plugin's config-file section. It is built once per ParseArguments
// call from a *pflag.FlagSet the plugin defines its options on.
type Resolver struct {
	flags *pflag.FlagSet
}

// New wraps flags, which the caller has already populated with
// flags.Parse(args) so pflag's own "was this flag set on the command line"
// bookkeeping (flags.Changed) is available to String/Bool below.
func New(flags *pflag.FlagSet) *Resolver {
	return &Resolver{flags: flags}
}

// Option overrides how a Resolver looks up a config-supplied fallback.
// Mirrors the teacher's functional-options pattern
// (internal/state/manager Option func(*StateManager)) for these two
// override points instead of a growing positional-argument list.
type Option func(*lookup)

type lookup struct {
	configString func(key string) (string, bool)
	configBool   func(key string) (bool, bool)
}

// WithConfigString supplies the config-file fallback lookup for String.
func WithConfigString(f func(key string) (string, bool)) Option {
	return func(l *lookup) { l.configString = f }
}

// WithConfigBool supplies the config-file fallback lookup for Bool.
func WithConfigBool(f func(key string) (bool, bool)) Option {
	return func(l *lookup) { l.configBool = f }
}

// String resolves key with CLI precedence: if the flag was set on the
// command line, its value wins; otherwise the config-supplied value wins if
// present; otherwise def.
func (r *Resolver) String(key, def string, opts ...Option) string {
	l := &lookup{}
	for _, opt := range opts {
		opt(l)
	}
	if r.flags != nil && r.flags.Changed(key) {
		if v, err := r.flags.GetString(key); err == nil {
			return v
		}
	}
	if l.configString != nil {
		if v, ok := l.configString(key); ok {
			return v
		}
	}
	return def
}

// Bool resolves key with the same CLI-over-config-over-default precedence
// as String.
func (r *Resolver) Bool(key string, def bool, opts ...Option) bool {
	l := &lookup{}
	for _, opt := range opts {
		opt(l)
	}
	if r.flags != nil && r.flags.Changed(key) {
		if v, err := r.flags.GetBool(key); err == nil {
			return v
		}
	}
	if l.configBool != nil {
		if v, ok := l.configBool(key); ok {
			return v
		}
	}
	return def
}
