package v4l2

import (
	"fmt"
	"time"
)

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// CanCapture reports whether the device exposes a video capture queue.
func (d DeviceInfo) CanCapture() bool { return d.Caps&CapVideoCapture != 0 }

// CanOutput reports whether the device exposes a video output queue.
func (d DeviceInfo) CanOutput() bool { return d.Caps&CapVideoOutput != 0 }

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// Framerate represents a supported framerate as a fraction.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// BufType selects the queue of a device a call operates on.
type BufType uint32

// Buffer types.
const (
	BufTypeVideoCapture BufType = 1
	BufTypeVideoOutput  BufType = 2
)

func (t BufType) String() string {
	switch t {
	case BufTypeVideoCapture:
		return "capture"
	case BufTypeVideoOutput:
		return "output"
	default:
		return fmt.Sprintf("buftype(%d)", uint32(t))
	}
}

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapVideoOutput  = 0x00000002
	CapVideoM2M     = 0x00008000
	CapReadWrite    = 0x01000000
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Format flags.
const (
	fmtFlagEmulated = 0x0002
)

// Common pixel formats.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtHEVC  = 0x43564548 // 'HEVC'
	PixFmtNV12  = 0x3231564E // 'NV12'
	PixFmtRGB24 = 0x33424752 // 'RGB3'
	PixFmtGREY  = 0x59455247 // 'GREY'
)

// Field orders.
const (
	FieldAny        = 0
	FieldNone       = 1
	FieldTop        = 2
	FieldBottom     = 3
	FieldInterlaced = 4
)

// Buffer flags.
const (
	BufFlagMapped        = 0x00000001
	BufFlagQueued        = 0x00000002
	BufFlagDone          = 0x00000004
	BufFlagError         = 0x00000040
	BufFlagTimestampCopy = 0x00004000
)

// Frame size types.
const (
	frmsizeTypeDiscrete   = 1
	frmsizeTypeContinuous = 2
	frmsizeTypeStepwise   = 3
)

// Frame interval types.
const (
	frmivalTypeDiscrete   = 1
	frmivalTypeContinuous = 2
	frmivalTypeStepwise   = 3
)

const memoryMmap = 1

// Capability is the decoded result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// Effective returns the capabilities of the opened node, falling back to the
// physical device capabilities for drivers that do not report per-node caps.
func (c Capability) Effective() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// CanCapture reports whether the node supports video capture.
func (c Capability) CanCapture() bool { return c.Effective()&CapVideoCapture != 0 }

// CanOutput reports whether the node supports video output.
func (c Capability) CanOutput() bool { return c.Effective()&CapVideoOutput != 0 }

// CanStream reports whether the node supports streaming I/O.
func (c Capability) CanStream() bool { return c.Effective()&CapStreaming != 0 }

// VersionString renders the kernel version encoded in Version.
func (c Capability) VersionString() string {
	return fmt.Sprintf("%d.%d.%d", (c.Version>>16)&0xff, (c.Version>>8)&0xff, c.Version&0xff)
}

func (c Capability) String() string {
	return fmt.Sprintf("driver=%s card=%q bus=%s version=%s caps=0x%08x",
		c.Driver, c.Card, c.BusInfo, c.VersionString(), c.Effective())
}

// Format is the single-planar pixel format of a queue.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
}

// Compatible reports whether f and other describe the same geometry and
// pixel encoding. Stride and image size are allowed to differ.
func (f Format) Compatible(other Format) bool {
	return f.Width == other.Width &&
		f.Height == other.Height &&
		f.PixelFormat == other.PixelFormat
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%d %s stride=%d size=%d",
		f.Width, f.Height, FormatFourCC(f.PixelFormat), f.BytesPerLine, f.SizeImage)
}

// StreamParams holds the streaming parameters of a queue (VIDIOC_G_PARM).
type StreamParams struct {
	Capability   uint32
	Mode         uint32
	TimePerFrame Framerate
	Buffers      uint32
}

// Metadata describes one dequeued frame buffer.
type Metadata struct {
	BytesUsed uint32
	Field     uint32
	Flags     uint32
	Sequence  uint32
	Timestamp time.Duration
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}

// ParseFourCC is the inverse of FormatFourCC. It returns false unless code
// is exactly four bytes long.
func ParseFourCC(code string) (uint32, bool) {
	if len(code) != 4 {
		return 0, false
	}
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24, true
}
