package main

import (
	"fmt"
	"os"
)

// ANSI escapes used by colorize.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// notice writes one marked line to stderr, keeping stdout for command output.
func notice(color, mark, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notice(colorGreen, "✓", format, args...) }
func printError(format string, args ...any) { notice(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notice(colorYellow, "⚠", format, args...) }

// printStatus writes an indented "label: value" line to stderr.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// availability renders a model's reachability for listings.
func availability(ok bool) string {
	if ok {
		return colorize(colorGreen, "available")
	}
	return colorize(colorYellow, "unavailable")
}

func currentMarker(current bool) string {
	if current {
		return colorize(colorCyan, "*")
	}
	return " "
}
