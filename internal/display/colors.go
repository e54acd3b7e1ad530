// Package display renders workflow state as plain text.
//
// The Format functions never emit ANSI codes: their output is returned to
// agents over MCP. The color helpers in this file are for the CLI only.
package display

import (
	"fmt"
	"os"
	"sync/atomic"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(true)
}

// InitColors turns CLI colors off when noColor is set or NO_COLOR is
// present in the environment (https://no-color.org/).
func InitColors(noColor bool) {
	_, envNoColor := os.LookupEnv("NO_COLOR")
	colorEnabled.Store(!noColor && !envNoColor)
}

// ColorsEnabled reports whether the CLI helpers emit ANSI codes.
func ColorsEnabled() bool {
	return colorEnabled.Load()
}

// SetColorsEnabled overrides the color setting. Tests use it.
func SetColorsEnabled(enabled bool) {
	colorEnabled.Store(enabled)
}

func paint(text, code string) string {
	if !ColorsEnabled() {
		return text
	}
	return code + text + reset
}

// Bold is used for CLI headings.
func Bold(text string) string { return paint(text, bold) }

// Warning highlights blocked advances and missing runbooks.
func Warning(text string) string { return paint(text, yellow) }

// Muted is for secondary text.
func Muted(text string) string { return paint(text, gray) }

// Cyan marks commands the user can run.
func Cyan(text string) string { return paint(text, cyan) }

// ErrorMsg is "✗ message" in red.
func ErrorMsg(format string, args ...any) string {
	return paint("✗", red) + " " + paint(fmt.Sprintf(format, args...), red)
}

// WarningMsg is "⚠ message" in yellow.
func WarningMsg(format string, args ...any) string {
	return paint("⚠", yellow) + " " + Warning(fmt.Sprintf(format, args...))
}

// InfoMsg is "→ message" with a blue arrow.
func InfoMsg(format string, args ...any) string {
	return paint("→", blue) + " " + fmt.Sprintf(format, args...)
}
