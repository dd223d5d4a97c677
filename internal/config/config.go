// Package config loads the process-wide hierarchical configuration
// document: the reserved use_colors key plus one table per plugin, keyed by
// plugin name (spec §6 "Config format").
package config

import "github.com/spf13/viper"

// Document wraps a *viper.Viper with the two accessors the rest of the
// process needs: the reserved top-level key and per-plugin sub-sections.
type Document struct {
	v *viper.Viper
}

// EmptyDocument returns a Document with no backing source, so every
// accessor falls back to its default. Used when the caller passed no
// --config path.
func EmptyDocument() *Document { return &Document{v: viper.New()} }

// UseColors returns the reserved top-level use_colors key, defaulting to
// false when unset.
func (d *Document) UseColors() bool {
	if d.v == nil {
		return false
	}
	return d.v.GetBool("use_colors")
}

// PluginSection returns the sub-document scoped to name's table, or nil if
// the document defines no such table.
func (d *Document) PluginSection(name string) *viper.Viper {
	if d.v == nil {
		return nil
	}
	return d.v.Sub(name)
}

// Raw exposes the underlying viper instance for components (like the plugin
// engine) that need direct access rather than going through Document's
// narrower accessors.
func (d *Document) Raw() *viper.Viper { return d.v }
