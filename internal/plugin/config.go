package plugin

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deeprave/repostats/internal/plugin/pluginargs"
)

// Config is the context handed to a plugin's ParseArguments (spec §4.3
// "PluginConfig"). UseColors reflects the process-wide NO_COLOR/--color
// resolution; the per-plugin table is a viper sub-tree scoped to a section
// named after the plugin.
type Config struct {
	UseColors bool
	section   *viper.Viper
}

// NewConfig builds a Config whose free-form table is v's sub-section named
// pluginName (nil if that section is absent, in which case every accessor
// falls back to its default).
func NewConfig(useColors bool, v *viper.Viper, pluginName string) *Config {
	var section *viper.Viper
	if v != nil {
		section = v.Sub(pluginName)
	}
	return &Config{UseColors: useColors, section: section}
}

// GetString returns the plugin's configured string value for key, or
// def if unset.
func (c *Config) GetString(key, def string) string {
	if c.section == nil || !c.section.IsSet(key) {
		return def
	}
	return c.section.GetString(key)
}

// GetBool returns the plugin's configured boolean value for key, or def if
// unset.
func (c *Config) GetBool(key string, def bool) bool {
	if c.section == nil || !c.section.IsSet(key) {
		return def
	}
	return c.section.GetBool(key)
}

// ResolveString applies spec §4.3's "CLI args always take precedence over
// config values" rule for one key: flags (already parsed against the
// segment's args by the caller) wins if set on the command line, this
// plugin's config section wins next, def last.
func (c *Config) ResolveString(flags *pflag.FlagSet, key, def string) string {
	return pluginargs.New(flags).String(key, def, pluginargs.WithConfigString(c.rawString))
}

// ResolveBool is ResolveString's boolean counterpart.
func (c *Config) ResolveBool(flags *pflag.FlagSet, key string, def bool) bool {
	return pluginargs.New(flags).Bool(key, def, pluginargs.WithConfigBool(c.rawBool))
}

func (c *Config) rawString(key string) (string, bool) {
	if c.section == nil || !c.section.IsSet(key) {
		return "", false
	}
	return c.section.GetString(key), true
}

func (c *Config) rawBool(key string) (bool, bool) {
	if c.section == nil || !c.section.IsSet(key) {
		return false, false
	}
	return c.section.GetBool(key), true
}
