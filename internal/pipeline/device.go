package pipeline

import (
	"context"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// Opener opens video device nodes by path.
type Opener interface {
	Open(path string) (Device, error)
}

// Device is an open video device node.
type Device interface {
	Path() string
	Capability() (v4l2.Capability, error)
	Format(typ v4l2.BufType) (v4l2.Format, error)
	SetFormat(typ v4l2.BufType, format v4l2.Format) (v4l2.Format, error)
	Params(typ v4l2.BufType) (v4l2.StreamParams, error)
	// StartStream allocates count memory-mapped buffers on the queue and
	// starts streaming.
	StartStream(typ v4l2.BufType, count int) (Stream, error)
	Close() error
}

// Stream is a running buffer queue of a device.
type Stream interface {
	Len() int
	Dequeue(ctx context.Context) (Frame, error)
	Close() error
}

// Frame is a buffer owned by the application between Dequeue and Release.
type Frame interface {
	Data() []byte
	Metadata() *v4l2.Metadata
	Release() error
}
