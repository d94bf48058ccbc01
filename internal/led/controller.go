// Package led shows the pipeline state on a board status LED.
package led

// Pattern is what an LED displays.
type Pattern string

// Patterns understood by every controller.
const (
	PatternOff   Pattern = "off"
	PatternSolid Pattern = "solid"
	PatternBlink Pattern = "blink"
)

// Controller drives one LED.
type Controller interface {
	// Set switches the LED to pattern.
	Set(pattern Pattern) error
	// Name identifies the LED, empty for the no-op controller.
	Name() string
}

// noop is used on boards without a usable LED.
type noop struct{}

func (noop) Set(Pattern) error { return nil }
func (noop) Name() string { return "" }
