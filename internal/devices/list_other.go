//go:build !linux

package devices

import (
	"errors"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

var errUnsupported = errors.New("video4linux is only available on linux")

// List returns the capture and output nodes present on the system.
func List() ([]v4l2.DeviceInfo, error) {
	return nil, errUnsupported
}

func findPathByID(string) (string, error) {
	return "", errUnsupported
}

// Formats returns the pixel formats the device at path offers on queue typ.
func Formats(string, v4l2.BufType) ([]v4l2.FormatInfo, error) {
	return nil, errUnsupported
}

// Resolutions returns the frame sizes the device at path offers for
// pixelFormat.
func Resolutions(string, uint32) ([]v4l2.Resolution, error) {
	return nil, errUnsupported
}
