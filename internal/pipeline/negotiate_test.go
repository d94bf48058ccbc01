package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name     string
		adjust   func(v4l2.Format) v4l2.Format
		wantCode string
	}{
		{name: "accepted as is"},
		{
			name: "stride adjusted",
			adjust: func(f v4l2.Format) v4l2.Format {
				f.BytesPerLine = 8
				return f
			},
		},
		{
			name: "width clamped",
			adjust: func(f v4l2.Format) v4l2.Format {
				f.Width = 1
				return f
			},
			wantCode: ErrCodeFormatMismatch,
		},
		{
			name: "height clamped",
			adjust: func(f v4l2.Format) v4l2.Format {
				f.Height = 1
				return f
			},
			wantCode: ErrCodeFormatMismatch,
		},
		{
			name: "encoding replaced",
			adjust: func(f v4l2.Format) v4l2.Format {
				f.PixelFormat = v4l2.PixFmtMJPEG
				return f
			},
			wantCode: ErrCodeFormatMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeDevice{path: "/dev/video20", adjust: tt.adjust}
			got, err := Negotiate(sink, testFormat)

			if code := ErrorCode(err); code != tt.wantCode {
				t.Fatalf("Negotiate() error = %v, want code %q", err, tt.wantCode)
			}
			if tt.wantCode != "" {
				var mismatch *FormatMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("error %v does not carry *FormatMismatchError", err)
				}
				if mismatch.Source != testFormat {
					t.Errorf("Source = %v, want %v", mismatch.Source, testFormat)
				}
				if !strings.Contains(err.Error(), mismatch.Sink.String()) {
					t.Errorf("error text %q should name the sink format", err)
				}
				return
			}
			if !got.Compatible(testFormat) {
				t.Errorf("Negotiate() = %v, not compatible with %v", got, testFormat)
			}
			if got != sink.format {
				t.Errorf("Negotiate() = %v, want the re-read sink format %v", got, sink.format)
			}
		})
	}
}

func TestNegotiateSetFormatError(t *testing.T) {
	sink := &fakeDevice{path: "/dev/video20", setErr: errFakeDriver}
	_, err := Negotiate(sink, testFormat)
	if ErrorCode(err) != ErrCodeQuery {
		t.Fatalf("Negotiate() error = %v, want %s", err, ErrCodeQuery)
	}
	if !errors.Is(err, errFakeDriver) {
		t.Error("Negotiate() should wrap the driver error")
	}
}
