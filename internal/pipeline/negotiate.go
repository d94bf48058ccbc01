package pipeline

import (
	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// Negotiate asks sink to adopt source on its output queue. The driver's
// answer is authoritative: it must match source in width, height and pixel
// format, stride may differ. On success the sink format is read back and
// returned.
func Negotiate(sink Device, source v4l2.Format) (v4l2.Format, error) {
	got, err := sink.SetFormat(v4l2.BufTypeVideoOutput, source)
	if err != nil {
		return v4l2.Format{}, NewError(ErrCodeQuery, sink.Path(), "set output format", err)
	}
	if !got.Compatible(source) {
		return v4l2.Format{}, NewError(ErrCodeFormatMismatch, sink.Path(), "sink rejected source format",
			&FormatMismatchError{Source: source, Sink: got})
	}

	current, err := sink.Format(v4l2.BufTypeVideoOutput)
	if err != nil {
		return v4l2.Format{}, NewError(ErrCodeQuery, sink.Path(), "get output format", err)
	}
	if !current.Compatible(source) {
		return v4l2.Format{}, NewError(ErrCodeFormatMismatch, sink.Path(), "sink format changed after negotiation",
			&FormatMismatchError{Source: source, Sink: current})
	}
	return current, nil
}
