// Package cliutil holds small ambient helpers shared by the CLI surface,
// starting with color-output resolution.
package cliutil

import (
	"os"
)

// ResolveUseColors decides whether the process should emit colored output,
// combining (in precedence order) an explicit --color/--no-color flag
// value, the NO_COLOR convention (https://no-color.org, "any value, even
// empty, disables color"), the config document's use_colors key, and
// finally isTTY as the auto-detected fallback. flagValue is nil when the
// user did not pass --color/--no-color.
func ResolveUseColors(flagValue *bool, configUseColors bool, isTTY bool) bool {
	if flagValue != nil {
		return *flagValue
	}
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	if configUseColors {
		return true
	}
	return isTTY
}
