package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-02T10:00:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a tree with uncommitted changes"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// FormatData describes the pixel format of one queue.
type FormatData struct {
	Width        uint32 `json:"width" example:"640" doc:"Width in pixels"`
	Height       uint32 `json:"height" example:"480" doc:"Height in pixels"`
	PixelFormat  string `json:"pixel_format" example:"YUYV" doc:"FourCC pixel format"`
	BytesPerLine uint32 `json:"bytes_per_line" example:"1280" doc:"Row stride in bytes"`
	SizeImage    uint32 `json:"size_image" example:"614400" doc:"Buffer size of one frame in bytes"`
}

// Pipeline status models
type StatusData struct {
	State           string      `json:"state" enum:"idle,init,steady,fatal,stopped" example:"steady" doc:"Pipeline state"`
	Error           string      `json:"error,omitempty" doc:"Diagnostic of the error that stopped the pipeline"`
	Source          string      `json:"source" example:"/dev/video0" doc:"Capture device path"`
	Sink            string      `json:"sink" example:"/dev/video20" doc:"Output device path"`
	Transform       string      `json:"transform" example:"mirror" doc:"Active frame transform"`
	SourceFormat    *FormatData `json:"source_format,omitempty" doc:"Format reported by the capture device"`
	SinkFormat      *FormatData `json:"sink_format,omitempty" doc:"Format accepted by the output device"`
	CaptureBuffers  int         `json:"capture_buffers" example:"4" doc:"Capture buffers granted by the driver"`
	OutputBuffers   int         `json:"output_buffers" example:"4" doc:"Output buffers granted by the driver"`
	FramesForwarded uint64      `json:"frames_forwarded" example:"1800" doc:"Frames written to the output device"`
	BytesForwarded  uint64      `json:"bytes_forwarded" example:"1105920000" doc:"Payload bytes written to the output device"`
	WarmupDiscards  uint64      `json:"warmup_discards" example:"1" doc:"Capture frames dropped during warm-up"`
	CorruptFrames   uint64      `json:"corrupt_frames" example:"0" doc:"Forwarded capture frames the driver flagged as corrupt"`
	LastSequence    uint32      `json:"last_sequence" example:"1801" doc:"Driver sequence number of the last forwarded frame"`
	StartedAt       *time.Time  `json:"started_at,omitempty" doc:"When the pipeline started"`
	SteadySince     *time.Time  `json:"steady_since,omitempty" doc:"When frames started flowing"`
}

type StatusResponse struct {
	Body StatusData
}

// Device models
type DeviceInfo struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Device node path"`
	DeviceName string `json:"device_name" example:"USB Video" doc:"Card name reported by the driver"`
	DeviceID   string `json:"device_id" example:"usb-046d_HD_Webcam-video-index0" doc:"Stable device identifier"`
	Caps       uint32 `json:"caps" example:"69206017" doc:"Device capability bits"`
	Capture    bool   `json:"capture" doc:"Device exposes a capture queue"`
	Output     bool   `json:"output" doc:"Device exposes an output queue"`
}

type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Video devices present on the system"`
	Count   int          `json:"count" example:"2" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DeviceData
}

// Transform models
type TransformData struct {
	Active    string   `json:"active" example:"mirror" doc:"Active frame transform"`
	Available []string `json:"available" doc:"Transforms that can be selected"`
}

type TransformResponse struct {
	Body TransformData
}

type TransformRequest struct {
	Body struct {
		Name string `json:"name" example:"passthrough" minLength:"1" doc:"Transform to activate"`
	}
}
