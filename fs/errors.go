package fs

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceOSError reports an OSError raised on the device, translated out
// of its traceback text at the facade boundary.
type DeviceOSError struct {
	Message string
}

func (e *DeviceOSError) Error() string { return "device: OSError: " + e.Message }

// DeviceError reports any other uncaught exception raised on the device,
// carrying its full traceback text.
type DeviceError struct {
	Traceback string
}

func (e *DeviceError) Error() string {
	return "device: unexpected exception:\n" + e.Traceback
}

// ErrUpdateMismatch is returned by UpdateFile when safe mode's hash
// verification detects the device's on-disk old content did not match
// what the caller believed it to be.
var ErrUpdateMismatch = errors.New("fs: safe update hash mismatch")

// translateError turns a raw_paste_exec stderr string into an error,
// recognising an OSError traceback and falling back to a generic
// DeviceError for anything else. Returns nil for an empty stderr.
func translateError(stderr string) error {
	if stderr == "" {
		return nil
	}
	trimmed := strings.TrimRight(stderr, "\r\n")
	lines := strings.Split(trimmed, "\n")
	last := lines[len(lines)-1]
	if exc, msg, ok := strings.Cut(last, ": "); ok && strings.TrimSpace(exc) == "OSError" {
		return &DeviceOSError{Message: msg}
	}
	return &DeviceError{Traceback: stderr}
}

// isSelfInterruptTimeout reports whether stderr is remove_recursive's
// self-imposed deadline exception, which the caller should treat as a
// cue to simply call again rather than as a failure.
func isSelfInterruptTimeout(stderr string) bool {
	return strings.HasSuffix(stderr, "\r\nException: Timeout\r\n")
}

func execErr(context string, err error) error {
	return fmt.Errorf("fs: %s: %w", context, err)
}
