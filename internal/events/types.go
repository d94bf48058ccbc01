package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeFormatNegotiated
	TypeDeviceChanged
	TypeTransformChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published whenever the transfer loop changes state.
type StateChangedEvent struct {
	State     string `json:"state" example:"steady" doc:"New loop state"`
	Previous  string `json:"previous" example:"init" doc:"Previous loop state"`
	Error     string `json:"error,omitempty" doc:"Error that caused the transition, if any"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// FormatNegotiatedEvent is published once the sink accepted the source format.
type FormatNegotiatedEvent struct {
	SourcePath string `json:"source_path" example:"/dev/video0" doc:"Capture device"`
	SinkPath   string `json:"sink_path" example:"/dev/video20" doc:"Output device"`
	Width      uint32 `json:"width" example:"640" doc:"Frame width in pixels"`
	Height     uint32 `json:"height" example:"480" doc:"Frame height in pixels"`
	FourCC     string `json:"fourcc" example:"YUYV" doc:"Pixel encoding"`
	Stride     uint32 `json:"stride" example:"1280" doc:"Source bytes per row"`
	SinkStride uint32 `json:"sink_stride" example:"1280" doc:"Sink bytes per row"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Negotiation timestamp"`
}

// Type returns the event type identifier for FormatNegotiatedEvent.
func (e FormatNegotiatedEvent) Type() uint32 { return TypeFormatNegotiated }

// DeviceChangedEvent is published when a kernel hotplug event touches one of
// the configured devices.
type DeviceChangedEvent struct {
	Role       string `json:"role" example:"source" doc:"source or sink"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Device node"`
	Action     string `json:"action" example:"remove" doc:"Kernel action: add, remove, change"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }

// TransformChangedEvent is published when the active frame transform is
// replaced at runtime.
type TransformChangedEvent struct {
	Name      string `json:"name" example:"mirror" doc:"Transform now applied to frames"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Change timestamp"`
}

// Type returns the event type identifier for TransformChangedEvent.
func (e TransformChangedEvent) Type() uint32 { return TypeTransformChanged }
