//go:build linux

package v4l2

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrInvalidBufferCount is returned when fewer than one buffer is requested.
var ErrInvalidBufferCount = errors.New("buffer count must be at least 1")

// pollIntervalMs bounds a single poll(2) wait so a cancelled context is
// noticed. It is not a dequeue timeout: Dequeue keeps waiting until a buffer
// is ready.
const pollIntervalMs = 250

// MmapStream is a ring of memory-mapped buffers bound to one queue of a
// device. Buffers are handed out by Dequeue and go back to the driver when
// released.
//
// A stream is not safe for concurrent use.
type MmapStream struct {
	dev       *Device
	typ       BufType
	slots     [][]byte
	fresh     []uint32 // output slots the driver has never seen
	streaming bool
}

// Buffer is one dequeued slot. The application owns Data until Release is
// called; afterwards the memory belongs to the driver and must not be
// touched.
type Buffer struct {
	stream   *MmapStream
	index    uint32
	data     []byte
	meta     Metadata
	released bool
}

// NewMmapStream reserves count buffers on the given queue of dev, maps them
// into memory and starts streaming. Capture buffers are queued immediately.
// Output buffers start out owned by the application.
//
// The driver may grant a different number of buffers than requested; Len
// reports the granted count.
func NewMmapStream(dev *Device, typ BufType, count int) (*MmapStream, error) {
	if count < 1 {
		return nil, ErrInvalidBufferCount
	}

	s := &MmapStream{dev: dev, typ: typ}

	req := v4l2RequestBuffers{
		count:  uint32(count),
		typ:    uint32(typ),
		memory: memoryMmap,
	}
	if err := ioctl(dev.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("VIDIOC_REQBUFS %s on %s: %w", typ, dev.path, err)
	}
	if req.count == 0 {
		return nil, fmt.Errorf("VIDIOC_REQBUFS %s on %s: driver granted no buffers", typ, dev.path)
	}

	s.slots = make([][]byte, 0, req.count)
	for i := uint32(0); i < req.count; i++ {
		buf := v4l2Buffer{
			index:  i,
			typ:    uint32(typ),
			memory: memoryMmap,
		}
		if err := ioctl(dev.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
			s.teardown()
			return nil, fmt.Errorf("VIDIOC_QUERYBUF %s index %d on %s: %w", typ, i, dev.path, err)
		}

		data, err := syscall.Mmap(dev.fd, buf.offset(), int(buf.length), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			s.teardown()
			return nil, fmt.Errorf("mmap %s buffer %d on %s: %w", typ, i, dev.path, err)
		}
		s.slots = append(s.slots, data)

		if typ == BufTypeVideoOutput {
			s.fresh = append(s.fresh, i)
			continue
		}
		if err := ioctl(dev.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
			s.teardown()
			return nil, fmt.Errorf("VIDIOC_QBUF %s index %d on %s: %w", typ, i, dev.path, err)
		}
	}

	bufType := uint32(typ)
	if err := ioctl(dev.fd, vidiocStreamon, unsafe.Pointer(&bufType)); err != nil {
		s.teardown()
		return nil, fmt.Errorf("VIDIOC_STREAMON %s on %s: %w", typ, dev.path, err)
	}
	s.streaming = true

	return s, nil
}

// Len returns the number of buffers the driver granted.
func (s *MmapStream) Len() int {
	return len(s.slots)
}

// BufType returns the queue the stream is bound to.
func (s *MmapStream) BufType() BufType {
	return s.typ
}

// Dequeue blocks until a buffer is available and returns it. For capture
// streams the buffer holds a frame produced by the device. For output
// streams the buffer is free to be filled; its Metadata is written back to
// the driver on Release.
//
// There is no timeout. Dequeue only gives up when ctx is cancelled or the
// driver reports an error.
func (s *MmapStream) Dequeue(ctx context.Context) (*Buffer, error) {
	if len(s.fresh) > 0 {
		index := s.fresh[0]
		s.fresh = s.fresh[1:]
		return &Buffer{stream: s, index: index, data: s.slots[index]}, nil
	}

	events := int16(unix.POLLIN)
	if s.typ == BufTypeVideoOutput {
		events = unix.POLLOUT
	}

	for {
		buf := v4l2Buffer{
			typ:    uint32(s.typ),
			memory: memoryMmap,
		}
		err := ioctl(s.dev.fd, vidiocDqbuf, unsafe.Pointer(&buf))
		if err == nil {
			if int(buf.index) >= len(s.slots) {
				return nil, fmt.Errorf("VIDIOC_DQBUF %s on %s: driver returned unknown index %d", s.typ, s.dev.path, buf.index)
			}
			return &Buffer{
				stream: s,
				index:  buf.index,
				data:   s.slots[buf.index],
				meta: Metadata{
					BytesUsed: buf.bytesused,
					Field:     buf.field,
					Flags:     buf.flags,
					Sequence:  buf.sequence,
					Timestamp: buf.timestamp.duration(),
				},
			}, nil
		}
		if !errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("VIDIOC_DQBUF %s on %s: %w", s.typ, s.dev.path, err)
		}

		for {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			ready, waitErr := waitFd(s.dev.fd, events, pollIntervalMs)
			if waitErr != nil {
				return nil, fmt.Errorf("poll %s on %s: %w", s.typ, s.dev.path, waitErr)
			}
			if ready {
				break
			}
		}
	}
}

// Close stops streaming, unmaps every buffer and releases the driver's
// buffer reservation. Buffers still held by the caller become invalid.
func (s *MmapStream) Close() error {
	return s.teardown()
}

func (s *MmapStream) teardown() error {
	var errs []error

	if s.streaming {
		bufType := uint32(s.typ)
		if err := ioctl(s.dev.fd, vidiocStreamoff, unsafe.Pointer(&bufType)); err != nil {
			errs = append(errs, fmt.Errorf("VIDIOC_STREAMOFF %s on %s: %w", s.typ, s.dev.path, err))
		}
		s.streaming = false
	}

	for _, data := range s.slots {
		if err := syscall.Munmap(data); err != nil {
			errs = append(errs, fmt.Errorf("munmap %s buffer on %s: %w", s.typ, s.dev.path, err))
		}
	}
	s.slots = nil
	s.fresh = nil

	// Freeing the reservation fails on drivers without REQBUFS(0) support;
	// closing the fd releases it as well.
	req := v4l2RequestBuffers{typ: uint32(s.typ), memory: memoryMmap}
	_ = ioctl(s.dev.fd, vidiocReqbufs, unsafe.Pointer(&req))

	return errors.Join(errs...)
}

// Index returns the slot index of the buffer.
func (b *Buffer) Index() int {
	return int(b.index)
}

// Data returns the whole mapped region of the slot. Its length is the
// buffer capacity, which can exceed Metadata().BytesUsed.
func (b *Buffer) Data() []byte {
	return b.data
}

// Metadata returns the frame metadata. Changes made to it on output
// buffers are handed to the driver on Release.
func (b *Buffer) Metadata() *Metadata {
	return &b.meta
}

// Release queues the buffer back to the driver. Only the first call has an
// effect; later calls return nil.
func (b *Buffer) Release() error {
	if b.released {
		return nil
	}
	b.released = true

	s := b.stream
	buf := v4l2Buffer{
		index:  b.index,
		typ:    uint32(s.typ),
		memory: memoryMmap,
	}
	if s.typ == BufTypeVideoOutput {
		buf.bytesused = b.meta.BytesUsed
		buf.field = b.meta.Field
		buf.timestamp.set(b.meta.Timestamp)
	}

	if err := ioctl(s.dev.fd, vidiocQbuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("VIDIOC_QBUF %s index %d on %s: %w", s.typ, b.index, s.dev.path, err)
	}
	return nil
}
