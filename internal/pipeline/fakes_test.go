package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

var errFakeDriver = errors.New("fake driver failure")

type fakeOpener struct {
	devices map[string]*fakeDevice
	openErr map[string]error
}

func (o *fakeOpener) Open(path string) (Device, error) {
	if err := o.openErr[path]; err != nil {
		return nil, err
	}
	dev, ok := o.devices[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such device", path)
	}
	dev.opened++
	return dev, nil
}

type fakeDevice struct {
	path   string
	caps   v4l2.Capability
	format v4l2.Format

	// adjust rewrites the requested format the way a driver would.
	adjust    func(v4l2.Format) v4l2.Format
	setErr    error
	streamErr error
	stream    *fakeStream

	opened        int
	closed        int
	streamStarted bool
}

func (d *fakeDevice) Path() string { return d.path }

func (d *fakeDevice) Capability() (v4l2.Capability, error) { return d.caps, nil }

func (d *fakeDevice) Format(v4l2.BufType) (v4l2.Format, error) { return d.format, nil }

func (d *fakeDevice) SetFormat(_ v4l2.BufType, f v4l2.Format) (v4l2.Format, error) {
	if d.setErr != nil {
		return v4l2.Format{}, d.setErr
	}
	if d.adjust != nil {
		f = d.adjust(f)
	}
	d.format = f
	return f, nil
}

func (d *fakeDevice) Params(v4l2.BufType) (v4l2.StreamParams, error) {
	return v4l2.StreamParams{TimePerFrame: v4l2.Framerate{Numerator: 1, Denominator: 30}}, nil
}

func (d *fakeDevice) StartStream(_ v4l2.BufType, count int) (Stream, error) {
	if d.streamErr != nil {
		return nil, d.streamErr
	}
	d.streamStarted = true
	d.stream.requested = count
	return d.stream, nil
}

func (d *fakeDevice) Close() error {
	d.closed++
	return nil
}

// fakeStream hands out frames built by next. When next returns an error the
// dequeue fails with it.
type fakeStream struct {
	mu        sync.Mutex
	granted   int
	requested int
	next      func(ctx context.Context, n int) (*fakeFrame, error)
	dequeues  int
	frames    []*fakeFrame
	closed    int
}

func (s *fakeStream) Len() int {
	if s.granted != 0 {
		return s.granted
	}
	return s.requested
}

func (s *fakeStream) Dequeue(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	s.dequeues++
	n := s.dequeues
	s.mu.Unlock()

	f, err := s.next(ctx, n)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return f, nil
}

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

type fakeFrame struct {
	data       []byte
	meta       v4l2.Metadata
	releases   int
	releaseErr error
	// released holds a copy of data and meta at the first Release.
	released     []byte
	releasedMeta v4l2.Metadata
}

func (f *fakeFrame) Data() []byte { return f.data }

func (f *fakeFrame) Metadata() *v4l2.Metadata { return &f.meta }

func (f *fakeFrame) Release() error {
	f.releases++
	if f.releases == 1 {
		f.released = append([]byte(nil), f.data...)
		f.releasedMeta = f.meta
	}
	return f.releaseErr
}

var testFormat = v4l2.Format{
	Width:        2,
	Height:       2,
	PixelFormat:  v4l2.PixFmtYUYV,
	Field:        v4l2.FieldNone,
	BytesPerLine: 4,
	SizeImage:    8,
}

// captureFrames yields count frames of rows [1..8]-style payloads, then fails.
func captureFrames(count int) func(context.Context, int) (*fakeFrame, error) {
	return func(_ context.Context, n int) (*fakeFrame, error) {
		if n > count {
			return nil, errFakeDriver
		}
		data := make([]byte, 12)
		for i := 0; i < 8; i++ {
			data[i] = byte(i + 1)
		}
		return &fakeFrame{
			data: data,
			meta: v4l2.Metadata{
				BytesUsed: 8,
				Field:     v4l2.FieldNone,
				Sequence:  uint32(n - 1),
			},
		}, nil
	}
}

// outputFrames yields empty 16-byte frames filled with 0xEE forever.
func outputFrames() func(context.Context, int) (*fakeFrame, error) {
	return func(_ context.Context, _ int) (*fakeFrame, error) {
		data := make([]byte, 16)
		for i := range data {
			data[i] = 0xEE
		}
		return &fakeFrame{data: data}, nil
	}
}

type fixture struct {
	opener  *fakeOpener
	source  *fakeDevice
	sink    *fakeDevice
	capture *fakeStream
	output  *fakeStream
}

func newFixture(captured int) *fixture {
	capture := &fakeStream{next: captureFrames(captured)}
	output := &fakeStream{next: outputFrames()}
	source := &fakeDevice{
		path:   "/dev/video0",
		caps:   v4l2.Capability{Driver: "uvcvideo", Capabilities: v4l2.CapVideoCapture | v4l2.CapStreaming},
		format: testFormat,
		stream: capture,
	}
	sink := &fakeDevice{
		path:   "/dev/video20",
		caps:   v4l2.Capability{Driver: "v4l2 loopback", Capabilities: v4l2.CapVideoOutput | v4l2.CapStreaming},
		stream: output,
	}
	return &fixture{
		opener: &fakeOpener{devices: map[string]*fakeDevice{
			source.path: source,
			sink.path:   sink,
		}},
		source:  source,
		sink:    sink,
		capture: capture,
		output:  output,
	}
}

func (f *fixture) config() Config {
	return Config{Source: f.source.path, Sink: f.sink.path, BufferCount: 4}
}
