// Package plugin implements discovery, activation, and lifecycle management
// for both built-in and dynamically loaded plugins, named after
// original_source/src/plugin, the Rust package this was distilled from.
package plugin

import "github.com/deeprave/repostats/internal/scanner"

// Requires is the same closed bitset the scanner contract uses: a plugin's
// descriptor and the engine's aggregate requirement set share one
// definition of the data-category atoms and their implication closure.
type Requires = scanner.Requires

// Type classifies what a plugin does with the messages and events it
// observes, and gates which lifecycle hooks the engine calls on it.
type Type string

const (
	TypeProcessing   Type = "Processing"
	TypeOutput       Type = "Output"
	TypeNotification Type = "Notification"
)

// Function describes one command a plugin advertises, together with the
// aliases a user may type instead of its canonical name.
type Function struct {
	Name        string
	Description string
	Aliases     []string
}

// Descriptor is the static metadata a plugin reports about itself.
type Descriptor struct {
	Name        string
	Version     string
	Description string
	Author      string
	APIVersion  uint32
	Type        Type
	Functions   []Function
	Requires    Requires
	AutoActive  bool
}

// MatchesCommand reports whether name is this descriptor's plugin name, one
// of its functions' canonical names, or one of their aliases.
func (d Descriptor) MatchesCommand(name string) bool {
	if d.Name == name {
		return true
	}
	for _, fn := range d.Functions {
		if fn.Name == name {
			return true
		}
		for _, alias := range fn.Aliases {
			if alias == name {
				return true
			}
		}
	}
	return false
}

// canonicalFunction returns the canonical (never-alias) function name a
// command token resolves to, and whether one was found.
func (d Descriptor) canonicalFunction(name string) (string, bool) {
	for _, fn := range d.Functions {
		if fn.Name == name {
			return fn.Name, true
		}
		for _, alias := range fn.Aliases {
			if alias == name {
				return fn.Name, true
			}
		}
	}
	if d.Name == name {
		if len(d.Functions) > 0 {
			return d.Functions[0].Name, true
		}
		return "", true
	}
	return "", false
}

// ActivePlugin records one activated invocation of a plugin: which function
// was selected (always canonical, never an alias) and the arguments the
// segment carried.
type ActivePlugin struct {
	PluginName   string
	FunctionName string
	Args         []string
}
