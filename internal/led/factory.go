package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs maps device tree model fragments to the LED used for status.
var boardLEDs = []struct {
	model string
	led   string
}{
	{"NanoPC-T6", "sys_led"},
	{"Orange Pi", "green_led"},
	{"Raspberry Pi", "ACT"},
}

// New returns a controller for the named LED under /sys/class/leds. An empty
// name picks the status LED of a known board. Falls back to a no-op
// controller when no LED is available.
func New(name string, logger *slog.Logger) Controller {
	if name == "" {
		model := detectBoard(deviceTreeModelPath)
		name = boardLED(model)
		logger.Info("Detecting board for LED control", "board_model", model, "led", name)
	}
	if name == "" {
		logger.Info("No LED support detected, using no-op controller")
		return noop{}
	}
	if _, err := os.Stat(filepath.Join(sysfsLEDPath, name)); err != nil {
		logger.Warn("Status LED not available, using no-op controller", "led", name, "error", err)
		return noop{}
	}
	return newSysfs(name)
}

func boardLED(model string) string {
	for _, b := range boardLEDs {
		if strings.Contains(model, b.model) {
			return b.led
		}
	}
	return ""
}

// detectBoard reads the device tree model to identify the board.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	// Device tree strings are NUL terminated.
	return strings.TrimRight(string(data), "\x00")
}
