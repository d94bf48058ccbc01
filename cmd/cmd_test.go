package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/videoloop/internal/pipeline"
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

type stubDevice struct {
	path      string
	caps      v4l2.Capability
	format    v4l2.Format
	formatErr error
	closed    bool
}

func (d *stubDevice) Path() string { return d.path }
func (d *stubDevice) Capability() (v4l2.Capability, error) { return d.caps, nil }
func (d *stubDevice) Format(v4l2.BufType) (v4l2.Format, error) { return d.format, d.formatErr }
func (d *stubDevice) SetFormat(_ v4l2.BufType, f v4l2.Format) (v4l2.Format, error) {
	return f, nil
}

func (d *stubDevice) Params(v4l2.BufType) (v4l2.StreamParams, error) {
	return v4l2.StreamParams{TimePerFrame: v4l2.Framerate{Numerator: 1, Denominator: 30}, Buffers: 2}, nil
}

func (d *stubDevice) StartStream(v4l2.BufType, int) (pipeline.Stream, error) {
	return nil, errors.New("not supported")
}

func (d *stubDevice) Close() error {
	d.closed = true
	return nil
}

type stubOpener map[string]*stubDevice

func (o stubOpener) Open(path string) (pipeline.Device, error) {
	dev, ok := o[path]
	if !ok {
		return nil, errors.New("no such device")
	}
	return dev, nil
}

func TestInspectorDescribe(t *testing.T) {
	camera := &stubDevice{
		path: "/dev/video0",
		caps: v4l2.Capability{
			Driver:       "uvcvideo",
			Card:         "USB Camera",
			BusInfo:      "usb-0000:00:14.0-1",
			Version:      0x060800,
			Capabilities: v4l2.CapDeviceCaps,
			DeviceCaps:   v4l2.CapVideoCapture | v4l2.CapStreaming,
		},
		format: v4l2.Format{Width: 640, Height: 480, PixelFormat: v4l2.PixFmtYUYV, BytesPerLine: 1280, SizeImage: 614400},
	}
	loopback := &stubDevice{
		path:      "/dev/video20",
		caps:      v4l2.Capability{Driver: "v4l2 loopback", Capabilities: v4l2.CapVideoOutput | v4l2.CapStreaming},
		formatErr: errors.New("invalid argument"),
	}

	var out bytes.Buffer
	ins := &inspector{
		out:    &out,
		opener: stubOpener{camera.path: camera, loopback.path: loopback},
		formats: func(path string, typ v4l2.BufType) ([]v4l2.FormatInfo, error) {
			if path == loopback.path {
				return nil, nil
			}
			return []v4l2.FormatInfo{
				{PixelFormat: v4l2.PixFmtYUYV, FormatName: "YUYV 4:2:2"},
				{PixelFormat: v4l2.PixFmtMJPEG, FormatName: "Motion-JPEG", Emulated: true},
			}, nil
		},
		resolutions: func(_ string, pixelFormat uint32) ([]v4l2.Resolution, error) {
			if pixelFormat == v4l2.PixFmtYUYV {
				return []v4l2.Resolution{{Width: 640, Height: 480}, {Width: 1280, Height: 720}}, nil
			}
			return nil, errors.New("not supported")
		},
	}

	if err := ins.describe(camera.path); err != nil {
		t.Fatalf("describe(camera) error = %v", err)
	}
	if err := ins.describe(loopback.path); err != nil {
		t.Fatalf("describe(loopback) error = %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Device: /dev/video0",
		"uvcvideo (6.8.0)",
		"[capture streaming]",
		"Format:     640x480 YUYV stride=1280 size=614400",
		"30.00 fps",
		"YUYV YUYV 4:2:2: 640x480 1280x720",
		"MJPG Motion-JPEG (emulated)",
		"Device: /dev/video20",
		"[output streaming]",
		"Output:",
		"Format:     unavailable (invalid argument)",
		"Formats:    none",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if !camera.closed || !loopback.closed {
		t.Error("devices must be closed after describe")
	}
}

func TestInspectorOpenError(t *testing.T) {
	ins := &inspector{out: &bytes.Buffer{}, opener: stubOpener{}}
	if err := ins.describe("/dev/video9"); err == nil {
		t.Error("describe() of a missing device should fail")
	}
}

func TestWriteDevicesTable(t *testing.T) {
	found := []v4l2.DeviceInfo{
		{DevicePath: "/dev/video0", DeviceName: "USB Camera", DeviceID: "usb-cam", Caps: v4l2.CapVideoCapture},
		{DevicePath: "/dev/video20", DeviceName: "Dummy video device", DeviceID: "platform-v4l2loopback-000", Caps: v4l2.CapVideoOutput},
		{DevicePath: "/dev/video30", DeviceName: "m2m", DeviceID: "m2m", Caps: v4l2.CapVideoCapture | v4l2.CapVideoOutput},
	}

	var out bytes.Buffer
	if err := writeDevicesTable(&out, found); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "PATH") {
		t.Errorf("header = %q", lines[0])
	}
	for i, want := range []string{"capture", "output", "capture+output"} {
		if fields := strings.Fields(lines[i+1]); len(fields) < 2 || fields[1] != want {
			t.Errorf("line %d direction = %v, want %s", i+1, fields, want)
		}
	}

	out.Reset()
	if err := writeDevicesTable(&out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No video devices found") {
		t.Errorf("empty table = %q", out.String())
	}
}

func TestWriteDevicesJSON(t *testing.T) {
	var out bytes.Buffer
	err := writeDevicesJSON(&out, []v4l2.DeviceInfo{
		{DevicePath: "/dev/video20", DeviceName: "Dummy video device", DeviceID: "lb", Caps: v4l2.CapVideoOutput},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []deviceJSON
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/dev/video20" || got[0].Capture || !got[0].Output {
		t.Errorf("got %+v", got)
	}
}
