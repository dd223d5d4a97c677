package plugin

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the plugin-domain kinds that carry no payload (spec
// §7 "Plugin errors").
var (
	ErrPluginNotFound       = errors.New("plugin: not found")
	ErrAPIVersionMismatch   = errors.New("plugin: api version mismatch")
	ErrDiscoveryFailed      = errors.New("plugin: discovery failed")
	ErrInitializationFailed = errors.New("plugin: initialization failed")
)

// ExecutionFailed carries the plugin name, the lifecycle operation that
// failed, and the original cause, matching spec §7's
// `ExecutionFailed{plugin, op, cause}`. It is built on github.com/pkg/errors
// so the cause's stack trace survives the crossing back into engine code
// that logs a one-line summary per failure (spec §7 "user-visible
// behavior").
type ExecutionFailed struct {
	Plugin string
	Op     string
	Cause  error
}

func (e *ExecutionFailed) Error() string {
	return fmt.Sprintf("plugin %q: %s failed: %v", e.Plugin, e.Op, e.Cause)
}

func (e *ExecutionFailed) Unwrap() error { return e.Cause }

// newExecutionFailed wraps cause with errors.WithStack unless it already
// carries a stack trace, so the first frame recorded is always the deepest
// one available.
func newExecutionFailed(plugin, op string, cause error) *ExecutionFailed {
	if _, ok := cause.(interface{ StackTrace() errors.StackTrace }); ok {
		return &ExecutionFailed{Plugin: plugin, Op: op, Cause: cause}
	}
	return &ExecutionFailed{Plugin: plugin, Op: op, Cause: errors.WithStack(cause)}
}

// Generic wraps a plugin-domain error that does not fit any other kind,
// matching spec §7's `Generic{message}`.
type Generic struct {
	Message string
}

func (e *Generic) Error() string { return "plugin: " + e.Message }
