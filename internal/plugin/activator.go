package plugin

import "fmt"

// candidate is one plugin's static shape as the activator sees it: enough
// to match segments and enforce the Output-uniqueness constraint without
// depending on the loaded plugin instance itself.
type candidate struct {
	Name string
	Info Descriptor
}

// Activator turns command segments plus the auto-active set into the final
// list of ActivePlugins, applying the Output-plugin uniqueness constraint.
// Grounded on original_source/src/plugin/activation.rs's PluginActivator:
// this is not present in spec.md's distillation but does not conflict with
// any of its Non-goals, so it is carried over as a supplement.
type Activator struct {
	autoActive map[string]struct{}
}

// NewActivator builds an Activator that auto-activates exactly the named
// plugins.
func NewActivator(autoActivePlugins []string) *Activator {
	m := make(map[string]struct{}, len(autoActivePlugins))
	for _, name := range autoActivePlugins {
		m[name] = struct{}{}
	}
	return &Activator{autoActive: m}
}

// Activate resolves segments and the auto-active set against candidates,
// returning the final ActivePlugin list after the Output uniqueness
// constraint is applied. A segment matching no candidate is reported via
// ErrPluginNotFound naming the offending token.
func (a *Activator) Activate(segments []Segment, candidates []candidate) ([]ActivePlugin, error) {
	byName := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		byName[c.Name] = c
	}

	var active []ActivePlugin
	var outputPlugin string
	haveOutput := false

	for _, seg := range segments {
		c, fn, ok := matchSegment(seg.CommandName, candidates)
		if !ok {
			return nil, wrapNotFound(seg.CommandName)
		}
		active = append(active, ActivePlugin{PluginName: c.Name, FunctionName: fn, Args: seg.Args})
		// A segment match against an Output plugin always wins, even over
		// a previously chosen auto-activated Output plugin.
		if c.Info.Type == TypeOutput {
			outputPlugin = c.Name
			haveOutput = true
		}
	}

	for _, c := range candidates {
		if _, wants := a.autoActive[c.Name]; !wants {
			continue
		}
		if containsPlugin(active, c.Name) {
			continue
		}
		fn := ""
		if len(c.Info.Functions) > 0 {
			fn = c.Info.Functions[0].Name
		}
		active = append(active, ActivePlugin{PluginName: c.Name, FunctionName: fn})
		if !haveOutput && c.Info.Type == TypeOutput {
			outputPlugin = c.Name
			haveOutput = true
		}
	}

	if haveOutput {
		active = applyOutputConstraint(active, outputPlugin, byName)
	}

	return active, nil
}

// matchSegment finds the first candidate whose name or one of its
// functions' name/aliases equals command, returning the canonical function
// name selected.
func matchSegment(command string, candidates []candidate) (candidate, string, bool) {
	for _, c := range candidates {
		if fn, ok := c.Info.canonicalFunction(command); ok {
			return c, fn, true
		}
	}
	return candidate{}, "", false
}

// applyOutputConstraint drops every activated Output plugin except chosen,
// mirroring original_source/src/plugin/activation.rs's
// apply_output_constraint.
func applyOutputConstraint(active []ActivePlugin, chosen string, byName map[string]candidate) []ActivePlugin {
	filtered := active[:0]
	for _, ap := range active {
		c, ok := byName[ap.PluginName]
		if ok && c.Info.Type == TypeOutput && ap.PluginName != chosen {
			continue
		}
		filtered = append(filtered, ap)
	}
	return filtered
}

func containsPlugin(active []ActivePlugin, name string) bool {
	for _, ap := range active {
		if ap.PluginName == name {
			return true
		}
	}
	return false
}

func wrapNotFound(token string) error {
	return fmt.Errorf("unknown command %q: %w", token, ErrPluginNotFound)
}
