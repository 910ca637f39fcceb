package connection

import (
	"os"
	"time"
)

// deadlineFile is the subset of *os.File used by timeoutReader. Both the
// serial device file and the WebREPL receive-pipe's read end satisfy it, so
// Read/ReadUntil/ReadBuffered are implemented once and shared by both
// backends.
type deadlineFile interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// timeoutReader implements the Read/ReadUntil/ReadBuffered/Timeout/
// SetTimeout portion of Connection on top of any deadlineFile. Every
// operation observes a single timeout budget for the whole call, matching
// pyserial's and the WebREPL selector loop's behaviour in the original tool.
type timeoutReader struct {
	f       deadlineFile
	timeout time.Duration
}

func newTimeoutReader(f deadlineFile, timeout time.Duration) *timeoutReader {
	return &timeoutReader{f: f, timeout: timeout}
}

func (t *timeoutReader) Timeout() time.Duration { return t.timeout }

func (t *timeoutReader) SetTimeout(value time.Duration) { t.timeout = value }

// Read reads up to numBytes bytes, stopping early if the timeout elapses.
func (t *timeoutReader) Read(numBytes int) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	out := make([]byte, 0, numBytes)
	buf := make([]byte, numBytes)
	for len(out) < numBytes {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		t.f.SetReadDeadline(deadline)
		n, err := t.f.Read(buf[:numBytes-len(out)])
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if isTimeoutErr(err) {
				break
			}
			if len(out) > 0 {
				break
			}
			return out, err
		}
	}
	return out, nil
}

// ReadUntil reads until sentinel has been seen (inclusive) or the timeout
// elapses. On timeout, the returned bytes may not end with sentinel.
func (t *timeoutReader) ReadUntil(sentinel []byte) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	var out []byte
	one := make([]byte, 1)
	for !hasSuffix(out, sentinel) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		t.f.SetReadDeadline(deadline)
		n, err := t.f.Read(one)
		if n > 0 {
			out = append(out, one[0])
		}
		if err != nil {
			if isTimeoutErr(err) {
				break
			}
			if n > 0 {
				continue
			}
			return out, err
		}
	}
	return out, nil
}

// ReadBuffered returns whatever is already available without waiting.
func (t *timeoutReader) ReadBuffered() ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		t.f.SetReadDeadline(time.Now())
		n, err := t.f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil || n < len(buf) {
			break
		}
	}
	return out, nil
}

func hasSuffix(data, suffix []byte) bool {
	if len(suffix) == 0 {
		return false
	}
	if len(data) < len(suffix) {
		return false
	}
	for i := range suffix {
		if data[len(data)-len(suffix)+i] != suffix[i] {
			return false
		}
	}
	return true
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	if pe, ok := err.(*os.PathError); ok {
		return isTimeoutErr(pe.Err)
	}
	return false
}
