// Package devices locates the video nodes the pipeline works with: it
// resolves configured names to /dev paths, waits for nodes that are not
// there yet and reports hotplug events for them.
package devices

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Roles of a device within the pipeline.
const (
	RoleSource = "source"
	RoleSink   = "sink"
)

// ErrNotFound is returned when a device name cannot be resolved.
var ErrNotFound = errors.New("device not found")

const (
	devDir    = "/dev/"
	byIDDir   = "/dev/v4l/by-id/"
	byPathDir = "/dev/v4l/by-path/"
)

// lookupByID resolves stable IDs that have no udev symlink. Replaced in tests.
var lookupByID = findPathByID

// ResolvePath converts a configured device name to a node path. Accepted
// forms are a path (/dev/video0, /dev/v4l/by-id/...), a node name
// (video0), a bare by-id or by-path link name, or a stable ID as reported by
// List.
func ResolvePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty device name: %w", ErrNotFound)
	}
	if strings.HasPrefix(name, "/") {
		return name, nil
	}

	for _, dir := range []string{devDir, byIDDir, byPathDir} {
		candidate := dir + name
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	path, err := lookupByID(name)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", name, ErrNotFound)
	}
	return path, nil
}
