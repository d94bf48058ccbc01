//go:build linux

package v4l2

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"
)

// TestErrnoComparison verifies that errors.Is works correctly with syscall.Errno.
// Dequeue relies on errors.Is to tell EAGAIN apart from real driver failures.
func TestErrnoComparison(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "EAGAIN matches EAGAIN",
			err:      syscall.EAGAIN,
			target:   syscall.EAGAIN,
			expected: true,
		},
		{
			name:     "ENODEV does not match EAGAIN",
			err:      syscall.ENODEV,
			target:   syscall.EAGAIN,
			expected: false,
		},
		{
			name:     "EINVAL matches EINVAL",
			err:      syscall.EINVAL,
			target:   syscall.EINVAL,
			expected: true,
		},
		{
			name:     "EBUSY matches EBUSY",
			err:      syscall.EBUSY,
			target:   syscall.EBUSY,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errors.Is(tt.err, tt.target)
			if result != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v",
					tt.err, tt.target, result, tt.expected)
			}
		})
	}
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/dev/videoloop-does-not-exist")
	if err == nil {
		t.Fatal("expected error opening missing device")
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Errorf("expected ENOENT, got %v", err)
	}
}

func TestNewMmapStreamRejectsZeroBuffers(t *testing.T) {
	for _, count := range []int{0, -1} {
		_, err := NewMmapStream(&Device{path: "/dev/null", fd: -1}, BufTypeVideoCapture, count)
		if !errors.Is(err, ErrInvalidBufferCount) {
			t.Errorf("NewMmapStream(count=%d) error = %v, want ErrInvalidBufferCount", count, err)
		}
	}
}

func TestOutputStreamHandsOutFreshSlotsFirst(t *testing.T) {
	s := &MmapStream{
		typ:   BufTypeVideoOutput,
		slots: [][]byte{make([]byte, 8), make([]byte, 8)},
		fresh: []uint32{0, 1},
	}

	first, err := s.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	second, err := s.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	if first.Index() != 0 || second.Index() != 1 {
		t.Errorf("got indices %d, %d, want 0, 1", first.Index(), second.Index())
	}
	if len(first.Data()) != 8 {
		t.Errorf("Data() length = %d, want 8", len(first.Data()))
	}
	if first.Metadata().BytesUsed != 0 {
		t.Errorf("fresh buffer BytesUsed = %d, want 0", first.Metadata().BytesUsed)
	}
}

func TestTimevalConversion(t *testing.T) {
	tests := []time.Duration{
		0,
		time.Microsecond,
		1500 * time.Millisecond,
		12*time.Hour + 345678*time.Microsecond,
	}

	for _, d := range tests {
		var tv v4l2Timeval
		tv.set(d)
		if got := tv.duration(); got != d {
			t.Errorf("timeval round trip of %v = %v", d, got)
		}
	}
}
