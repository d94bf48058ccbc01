package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives an LED through the Linux LED class interface.
type sysfs struct {
	root string // sysfsLEDPath, replaced in tests
	name string
}

func newSysfs(name string) *sysfs {
	return &sysfs{root: sysfsLEDPath, name: name}
}

func (s *sysfs) Name() string { return s.name }

// Set maps pattern onto the kernel triggers: a steady LED needs the "none"
// trigger before brightness sticks, blinking uses "heartbeat".
func (s *sysfs) Set(pattern Pattern) error {
	ledPath := filepath.Join(s.root, s.name)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", s.name, ledPath, err)
	}

	trigger, brightness := "none", "0"
	switch pattern {
	case PatternOff:
	case PatternSolid:
		brightness = "1"
	case PatternBlink:
		trigger, brightness = "heartbeat", "1"
	default:
		return fmt.Errorf("unknown LED pattern %q", pattern)
	}

	if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger), 0o644); err != nil {
		return fmt.Errorf("failed to set LED trigger: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}
