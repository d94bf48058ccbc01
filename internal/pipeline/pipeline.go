// Package pipeline moves frames from a capture device to an output device.
//
// A Pipeline opens both devices, forces the sink onto the source's format,
// starts a memory-mapped buffer stream on each side and then forwards frames
// one by one, running every frame through the configured transform.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/internal/logging"
	"github.com/smazurov/videoloop/internal/metrics"
	"github.com/smazurov/videoloop/internal/transform"
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// State is the state of the transfer loop.
type State string

// Loop states.
const (
	StateIdle    State = "idle"    // Run not called yet
	StateInit    State = "init"    // Opening, negotiating, warming up
	StateSteady  State = "steady"  // Forwarding frames
	StateFatal   State = "fatal"   // Stopped by an error
	StateStopped State = "stopped" // Stopped by context cancellation
)

// DefaultBufferCount is the number of buffers requested per stream.
const DefaultBufferCount = 4

// Config describes one source/sink pair.
type Config struct {
	Source      string
	Sink        string
	BufferCount int
	Transform   string
}

// Status is a point-in-time view of a pipeline.
type Status struct {
	State           State
	Error           string
	Source          string
	Sink            string
	Transform       string
	SourceFormat    *v4l2.Format
	SinkFormat      *v4l2.Format
	CaptureBuffers  int
	OutputBuffers   int
	FramesForwarded uint64
	BytesForwarded  uint64
	WarmupDiscards  uint64
	CorruptFrames   uint64
	LastSequence    uint32
	StartedAt       time.Time
	SteadySince     time.Time
}

type namedTransform struct {
	name string
	fn   transform.Func
}

// Pipeline runs the transfer loop for one source/sink pair. Run may be called
// once; Status, SetTransform and Transform are safe to call concurrently
// with it.
type Pipeline struct {
	cfg       Config
	opener    Opener
	bus       *events.Bus
	logger    *slog.Logger
	transform atomic.Pointer[namedTransform]

	framesForwarded atomic.Uint64
	bytesForwarded  atomic.Uint64
	warmupDiscards  atomic.Uint64
	corruptFrames   atomic.Uint64
	lastSequence    atomic.Uint32

	mu     sync.RWMutex
	status Status
	// strideless is set once the source turns out to deliver frames without
	// a row stride.
	strideless bool
}

// New creates a pipeline. bus may be nil.
func New(cfg Config, opener Opener, bus *events.Bus) (*Pipeline, error) {
	if cfg.Source == "" || cfg.Sink == "" {
		return nil, errors.New("source and sink device paths are required")
	}
	if cfg.Source == cfg.Sink {
		return nil, fmt.Errorf("source and sink must differ, both are %s", cfg.Source)
	}
	if cfg.BufferCount == 0 {
		cfg.BufferCount = DefaultBufferCount
	}
	if cfg.BufferCount < 1 {
		return nil, fmt.Errorf("buffer count must be at least 1, got %d", cfg.BufferCount)
	}
	cfg.Transform = transform.Canonical(cfg.Transform)
	if cfg.Transform == "" {
		cfg.Transform = transform.Default
	}
	fn, err := transform.Lookup(cfg.Transform)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		opener: opener,
		bus:    bus,
		logger: logging.GetLogger("pipeline").With("source", cfg.Source, "sink", cfg.Sink),
		status: Status{
			State:     StateIdle,
			Source:    cfg.Source,
			Sink:      cfg.Sink,
			Transform: cfg.Transform,
		},
	}
	p.transform.Store(&namedTransform{name: cfg.Transform, fn: fn})
	return p, nil
}

// SetTransform replaces the transform applied to frames. The change takes
// effect with the next frame. Row-based transforms are refused with
// transform.ErrNeedsStride while the source delivers frames without a stride.
func (p *Pipeline) SetTransform(name string) error {
	name = transform.Canonical(name)
	fn, err := transform.Lookup(name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.strideless && transform.NeedsStride(name) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s cannot run on frames from %s", transform.ErrNeedsStride, name, p.cfg.Source)
	}
	prev := p.transform.Swap(&namedTransform{name: name, fn: fn})
	p.status.Transform = name
	p.mu.Unlock()

	if prev != nil && prev.name == name {
		return nil
	}

	p.logger.Info("Transform changed", "transform", name)
	p.publish(events.TransformChangedEvent{
		Name:      name,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Transform returns the name of the active transform.
func (p *Pipeline) Transform() string {
	return p.transform.Load().name
}

// Status returns a snapshot of the pipeline.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	st := p.status
	p.mu.RUnlock()

	st.FramesForwarded = p.framesForwarded.Load()
	st.BytesForwarded = p.bytesForwarded.Load()
	st.WarmupDiscards = p.warmupDiscards.Load()
	st.CorruptFrames = p.corruptFrames.Load()
	st.LastSequence = p.lastSequence.Load()
	return st
}

// Run executes the transfer loop until it fails or ctx is cancelled. It never
// returns nil: a cancelled context yields ctx.Err(), any other failure is a
// *Error naming the failing stage.
func (p *Pipeline) Run(ctx context.Context) error {
	err := p.run(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		p.setState(StateStopped, nil)
		return err
	}

	metrics.RecordError(ErrorCode(err))
	p.setState(StateFatal, err)
	return err
}

func (p *Pipeline) run(ctx context.Context) error {
	p.mu.Lock()
	p.status.StartedAt = time.Now()
	p.mu.Unlock()
	p.setState(StateInit, nil)

	src, err := p.open(p.cfg.Source, v4l2.BufTypeVideoCapture)
	if err != nil {
		return err
	}
	defer p.closeLogged("device", src.Path(), src)

	sink, err := p.open(p.cfg.Sink, v4l2.BufTypeVideoOutput)
	if err != nil {
		return err
	}
	defer p.closeLogged("device", sink.Path(), sink)

	srcFormat, err := src.Format(v4l2.BufTypeVideoCapture)
	if err != nil {
		return NewError(ErrCodeQuery, src.Path(), "get capture format", err)
	}
	if err := p.checkStride(srcFormat); err != nil {
		return err
	}
	p.logger.Info("Source format", "format", srcFormat.String())

	sinkFormat, err := Negotiate(sink, srcFormat)
	if err != nil {
		var mismatch *FormatMismatchError
		if errors.As(err, &mismatch) {
			p.logger.Error("Format negotiation failed",
				"source_format", mismatch.Source.String(),
				"sink_format", mismatch.Sink.String())
		}
		return err
	}
	p.logger.Info("Sink format", "format", sinkFormat.String())
	p.setFormats(srcFormat, sinkFormat)

	in, err := src.StartStream(v4l2.BufTypeVideoCapture, p.cfg.BufferCount)
	if err != nil {
		return NewError(ErrCodeAllocation, src.Path(), "start capture stream", err)
	}
	defer p.closeLogged("capture stream", src.Path(), in)

	out, err := sink.StartStream(v4l2.BufTypeVideoOutput, p.cfg.BufferCount)
	if err != nil {
		return NewError(ErrCodeAllocation, sink.Path(), "start output stream", err)
	}
	defer p.closeLogged("output stream", sink.Path(), out)

	if in.Len() < 1 || out.Len() < 1 {
		return NewError(ErrCodeAllocation, "", fmt.Sprintf("driver granted %d capture and %d output buffers", in.Len(), out.Len()), nil)
	}
	if in.Len() != p.cfg.BufferCount || out.Len() != p.cfg.BufferCount {
		p.logger.Info("Driver adjusted buffer count", "requested", p.cfg.BufferCount,
			"capture", in.Len(), "output", out.Len())
	}
	p.mu.Lock()
	p.status.CaptureBuffers = in.Len()
	p.status.OutputBuffers = out.Len()
	p.mu.Unlock()

	if err := p.warmUp(ctx, in); err != nil {
		return err
	}

	p.mu.Lock()
	p.status.SteadySince = time.Now()
	p.mu.Unlock()
	p.setState(StateSteady, nil)

	stride := int(srcFormat.BytesPerLine)
	for {
		if err := p.forward(ctx, in, out, stride); err != nil {
			return err
		}
	}
}

// checkStride records whether the source delivers frames with a row stride
// and fails when the active transform needs one that is missing. Compressed
// formats report a stride of 0.
func (p *Pipeline) checkStride(f v4l2.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.strideless = f.BytesPerLine == 0
	if tr := p.transform.Load(); p.strideless && transform.NeedsStride(tr.name) {
		return NewError(ErrCodeQuery, p.cfg.Source,
			fmt.Sprintf("capture format %s reports zero stride, %s needs one", f, tr.name), nil)
	}
	return nil
}

// open opens a device and logs what it reports about the queue typ.
func (p *Pipeline) open(path string, typ v4l2.BufType) (Device, error) {
	dev, err := p.opener.Open(path)
	if err != nil {
		return nil, NewError(ErrCodeDeviceOpen, path, "open "+typ.String()+" device", err)
	}

	logger := p.logger.With("device", path, "queue", typ.String())

	caps, err := dev.Capability()
	if err != nil {
		_ = dev.Close()
		return nil, NewError(ErrCodeQuery, path, "query capabilities", err)
	}
	logger.Info("Device capabilities",
		"driver", caps.Driver,
		"card", caps.Card,
		"bus", caps.BusInfo,
		"version", caps.VersionString(),
		"caps", fmt.Sprintf("0x%08x", caps.Effective()))

	if typ == v4l2.BufTypeVideoCapture && !caps.CanCapture() {
		logger.Warn("Device does not advertise video capture")
	}
	if typ == v4l2.BufTypeVideoOutput && !caps.CanOutput() {
		logger.Warn("Device does not advertise video output")
	}

	// Parameters are informational; v4l2loopback rejects G_PARM until a
	// format is set.
	if params, err := dev.Params(typ); err != nil {
		logger.Debug("Stream parameters unavailable", "error", err)
	} else {
		logger.Info("Stream parameters",
			"fps", params.TimePerFrame.FPS(),
			"capability", fmt.Sprintf("0x%x", params.Capability),
			"mode", params.Mode,
			"read_buffers", params.Buffers)
	}

	return dev, nil
}

// warmUp drops the first capture frame, which drivers may deliver stale or
// half-written.
func (p *Pipeline) warmUp(ctx context.Context, in Stream) error {
	frame, err := in.Dequeue(ctx)
	if err != nil {
		return p.dequeueError(ctx, p.cfg.Source, "warm-up dequeue", err)
	}
	if err := frame.Release(); err != nil {
		return NewError(ErrCodeDriver, p.cfg.Source, "release warm-up buffer", err)
	}
	p.warmupDiscards.Add(1)
	metrics.RecordWarmupDiscard()
	p.logger.Debug("Discarded warm-up frame", "sequence", frame.Metadata().Sequence)
	return nil
}

// forward moves one frame from in to out. Both buffers go back to their
// driver on every return path.
func (p *Pipeline) forward(ctx context.Context, in, out Stream, stride int) (err error) {
	src, err := in.Dequeue(ctx)
	if err != nil {
		return p.dequeueError(ctx, p.cfg.Source, "dequeue capture buffer", err)
	}
	defer p.release(src, p.cfg.Source, "capture", &err)

	dst, err := out.Dequeue(ctx)
	if err != nil {
		return p.dequeueError(ctx, p.cfg.Sink, "dequeue output buffer", err)
	}
	defer p.release(dst, p.cfg.Sink, "output", &err)

	srcMeta := src.Metadata()
	srcData := src.Data()
	dstData := dst.Data()

	used := int(srcMeta.BytesUsed)
	if used > len(srcData) {
		return NewError(ErrCodeDriver, p.cfg.Source,
			fmt.Sprintf("capture buffer reports %d bytes used but holds %d", used, len(srcData)), nil)
	}
	if used > len(dstData) {
		return NewError(ErrCodeDriver, p.cfg.Sink,
			fmt.Sprintf("frame of %d bytes does not fit output buffer of %d", used, len(dstData)), nil)
	}

	if srcMeta.Flags&v4l2.BufFlagError != 0 {
		p.corruptFrames.Add(1)
		metrics.RecordCorruptFrame()
		p.logger.Debug("Driver flagged capture buffer as corrupt", "sequence", srcMeta.Sequence, "bytes_used", used)
	}

	tr := p.transform.Load()
	start := time.Now()
	n := tr.fn(dstData[:used], srcData[:used], stride)
	elapsed := time.Since(start)

	dstMeta := dst.Metadata()
	dstMeta.BytesUsed = uint32(n)
	dstMeta.Field = srcMeta.Field
	dstMeta.Sequence = srcMeta.Sequence
	dstMeta.Timestamp = srcMeta.Timestamp

	p.framesForwarded.Add(1)
	p.bytesForwarded.Add(uint64(n))
	p.lastSequence.Store(srcMeta.Sequence)
	metrics.RecordFrame(n, elapsed)
	return nil
}

// release returns frame to its driver and records a release failure in
// *errp unless an earlier error is already there.
func (p *Pipeline) release(frame Frame, device, side string, errp *error) {
	if err := frame.Release(); err != nil {
		if *errp == nil {
			*errp = NewError(ErrCodeDriver, device, "release "+side+" buffer", err)
			return
		}
		p.logger.Warn("Failed to release buffer", "device", device, "side", side, "error", err)
	}
}

func (p *Pipeline) dequeueError(ctx context.Context, device, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return NewError(ErrCodeDriver, device, msg, err)
}

type closer interface {
	Close() error
}

func (p *Pipeline) closeLogged(what, path string, c closer) {
	if err := c.Close(); err != nil {
		p.logger.Warn("Failed to close "+what, "device", path, "error", err)
	}
}

func (p *Pipeline) setFormats(src, sink v4l2.Format) {
	p.mu.Lock()
	p.status.SourceFormat = &src
	p.status.SinkFormat = &sink
	p.mu.Unlock()

	p.publish(events.FormatNegotiatedEvent{
		SourcePath: p.cfg.Source,
		SinkPath:   p.cfg.Sink,
		Width:      src.Width,
		Height:     src.Height,
		FourCC:     v4l2.FormatFourCC(src.PixelFormat),
		Stride:     src.BytesPerLine,
		SinkStride: sink.BytesPerLine,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

func (p *Pipeline) setState(state State, cause error) {
	p.mu.Lock()
	prev := p.status.State
	p.status.State = state
	p.status.Error = ""
	if cause != nil {
		p.status.Error = cause.Error()
	}
	p.mu.Unlock()

	metrics.SetState(string(state))

	switch state {
	case StateFatal:
		p.logger.Error("Pipeline failed", "state", string(state), "stage", string(prev), "code", ErrorCode(cause), "error", cause)
	case StateStopped:
		p.logger.Info("Pipeline stopped", "state", string(state), "frames", p.framesForwarded.Load())
	default:
		p.logger.Info("Pipeline state changed", "state", string(state), "previous", string(prev))
	}

	ev := events.StateChangedEvent{
		State:     string(state),
		Previous:  string(prev),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	p.publish(ev)
}

func (p *Pipeline) publish(ev events.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}
