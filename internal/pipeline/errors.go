package pipeline

import (
	"errors"
	"fmt"

	"github.com/smazurov/videoloop/pkg/linuxav/v4l2"
)

// Error codes
const (
	ErrCodeDeviceOpen     = "DEVICE_OPEN"
	ErrCodeQuery          = "QUERY"
	ErrCodeFormatMismatch = "FORMAT_MISMATCH"
	ErrCodeAllocation     = "ALLOCATION"
	ErrCodeDriver         = "DRIVER"
)

// Error is a fatal pipeline failure tagged with the stage that produced it.
type Error struct {
	Code    string
	Device  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Device != "" {
		msg += " (" + e.Device + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FailureCode returns e.Code. It lets log handlers record the code as a
// separate field.
func (e *Error) FailureCode() string {
	return e.Code
}

// NewError creates a new pipeline error
func NewError(code, device, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Device:  device,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first *Error in err's chain, or "" if
// there is none.
func ErrorCode(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// FormatMismatchError reports that the sink settled on a format that differs
// from the source in width, height or pixel encoding.
type FormatMismatchError struct {
	Source v4l2.Format
	Sink   v4l2.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("sink format %s does not match source format %s", e.Sink, e.Source)
}
