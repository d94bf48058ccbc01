//go:build linux

package pipeline

import (
	"context"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// V4L2Opener opens real device nodes through pkg/linuxav/v4l2.
type V4L2Opener struct{}

// Open implements Opener.
func (V4L2Opener) Open(path string) (Device, error) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, err
	}
	return v4l2Device{dev}, nil
}

type v4l2Device struct {
	*v4l2.Device
}

func (d v4l2Device) StartStream(typ v4l2.BufType, count int) (Stream, error) {
	s, err := v4l2.NewMmapStream(d.Device, typ, count)
	if err != nil {
		return nil, err
	}
	return v4l2Stream{s}, nil
}

type v4l2Stream struct {
	*v4l2.MmapStream
}

func (s v4l2Stream) Dequeue(ctx context.Context) (Frame, error) {
	buf, err := s.MmapStream.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
