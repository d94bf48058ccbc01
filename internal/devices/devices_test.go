package devices

import (
	"errors"
	"testing"
)

func TestResolvePath(t *testing.T) {
	orig := lookupByID
	t.Cleanup(func() { lookupByID = orig })
	lookupByID = func(id string) (string, error) {
		if id == "platform-fe801000.csi-video-index0" {
			return "/dev/video0", nil
		}
		return "", errors.New("unknown id")
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"absolute path", "/dev/video20", "/dev/video20", false},
		{"by-id link path", "/dev/v4l/by-id/usb-cam-video-index0", "/dev/v4l/by-id/usb-cam-video-index0", false},
		{"whitespace", "  /dev/video1 ", "/dev/video1", false},
		{"stable id", "platform-fe801000.csi-video-index0", "/dev/video0", false},
		{"empty", "", "", true},
		{"unknown", "no-such-camera-video-index9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("error %v should wrap ErrNotFound", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ResolvePath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
