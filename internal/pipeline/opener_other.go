//go:build !linux

package pipeline

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("video4linux is only available on linux")

// V4L2Opener opens real device nodes. It always fails on this platform.
type V4L2Opener struct{}

// Open implements Opener.
func (V4L2Opener) Open(path string) (Device, error) {
	return nil, fmt.Errorf("open %s: %w", path, errUnsupported)
}
