//go:build linux

package devices

import (
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// List returns the capture and output nodes present on the system.
func List() ([]v4l2.DeviceInfo, error) {
	return v4l2.FindDevices()
}

func findPathByID(id string) (string, error) {
	return v4l2.GetDevicePathByID(id)
}

// Formats returns the pixel formats the device at path offers on queue typ.
func Formats(path string, typ v4l2.BufType) ([]v4l2.FormatInfo, error) {
	return v4l2.GetFormats(path, typ)
}

// Resolutions returns the frame sizes the device at path offers for
// pixelFormat.
func Resolutions(path string, pixelFormat uint32) ([]v4l2.Resolution, error) {
	return v4l2.GetResolutions(path, pixelFormat)
}
