// Package repl drives a MicroPython REPL over a connection.Connection: it
// knows how to interrupt a running program, enter and exit raw mode, paste
// and execute code via raw-paste mode, and force a soft reset that boots
// straight back into the REPL without running main.py.
package repl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"upyt/connection"
)

// ProtocolError is returned whenever the REPL produces output that does
// not match what the protocol at hand expects. Unexpected carries
// whatever bytes were actually read.
type ProtocolError struct {
	Unexpected []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("repl: unexpected output: %q", e.Unexpected)
}

// ErrNoRepl is returned by InterruptAndEnterRepl when no prompt was seen
// after exhausting all interrupt attempts.
var ErrNoRepl = errors.New("repl: could not reach a REPL prompt")

// ErrRawPasteNotSupported is returned by RawPasteExec when the device
// responds to the raw-paste handshake in a way that indicates its
// MicroPython build predates raw paste mode.
var ErrRawPasteNotSupported = errors.New("repl: raw paste mode not supported by this device")

// SomeCodeNotSentError is returned by RawPasteExec when the device
// terminated the raw-paste transfer before all of the submitted code was
// sent. Output and Exception hold whatever the device produced before
// giving up; Unsent holds the code bytes that were never transmitted.
type SomeCodeNotSentError struct {
	Output    string
	Exception string
	Unsent    []byte
}

func (e *SomeCodeNotSentError) Error() string {
	return fmt.Sprintf("repl: device stopped accepting code with %d bytes unsent", len(e.Unsent))
}

// Expect reads exactly len(value) bytes and fails unless they equal value.
func Expect(conn connection.Connection, value []byte) ([]byte, error) {
	actual, err := conn.Read(len(value))
	if err != nil {
		return actual, err
	}
	if !bytes.Equal(actual, value) {
		return actual, &ProtocolError{Unexpected: actual}
	}
	return actual, nil
}

// ExpectEndswith reads until value has been seen and fails unless the
// result actually ends with it (i.e. unless a timeout cut the read short).
func ExpectEndswith(conn connection.Connection, value []byte) ([]byte, error) {
	actual, err := conn.ReadUntil(value)
	if err != nil {
		return actual, err
	}
	if !bytes.HasSuffix(actual, value) {
		return actual, &ProtocolError{Unexpected: actual}
	}
	return actual, nil
}

// InterruptAndEnterRepl sends Ctrl-C until a fresh REPL prompt is
// reached, confirming the prompt is live (rather than a stale one sitting
// in a read buffer) by round-tripping a random number through it.
//
// Returns whatever terminal output was skipped over along the way (e.g. a
// KeyboardInterrupt traceback), and ErrNoRepl if numAttempts is exhausted
// without reaching a confirmed prompt.
func InterruptAndEnterRepl(conn connection.Connection, numAttempts int, attemptTimeout time.Duration) ([]byte, error) {
	unmatched, err := conn.ReadBuffered()
	if err != nil {
		return nil, err
	}

	restore := connection.TimeoutOverride(conn, attemptTimeout)
	defer restore()

	prompt := []byte("\r\n>>> ")
	for attempt := 0; attempt < numAttempts; attempt++ {
		if _, err := conn.Write([]byte{0x03}); err != nil {
			return unmatched, err
		}

		out, err := ExpectEndswith(conn, prompt)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				unmatched = append(unmatched, perr.Unexpected...)
				continue
			}
			return unmatched, err
		}
		unmatched = append(unmatched, out[:len(out)-len(prompt)]...)

		randomNumber := 0x10 + rand.Intn(0xFFFFFF-0x10)
		if _, err := fmt.Fprintf(connWriter{conn}, "0x%x\r", randomNumber); err != nil {
			return unmatched, err
		}
		expected := []byte(fmt.Sprintf("0x%x\r\n%d\r\n>>> ", randomNumber, randomNumber))

		out, err = ExpectEndswith(conn, expected)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				unmatched = append(unmatched, perr.Unexpected...)
				continue
			}
			return unmatched, err
		}
		unmatched = append(unmatched, out[:len(out)-len(expected)]...)
		return unmatched, nil
	}

	return unmatched, ErrNoRepl
}

// connWriter adapts connection.Connection's Write(data) to io.Writer so it
// can be used with fmt.Fprintf.
type connWriter struct{ connection.Connection }

func (w connWriter) Write(p []byte) (int, error) { return w.Connection.Write(p) }

// RawMode enters raw REPL mode, invokes fn, and always exits raw mode
// again afterwards, returning whichever of entry, fn, or exit failed
// first.
func RawMode(conn connection.Connection, fn func() error) error {
	if _, err := conn.Write([]byte{0x01}); err != nil {
		return err
	}
	if _, err := ExpectEndswith(conn, []byte("raw REPL; CTRL-B to exit\r\n>")); err != nil {
		return err
	}

	fnErr := fn()

	if _, err := conn.Write([]byte{0x04, 0x02}); err != nil {
		if fnErr != nil {
			return fnErr
		}
		return err
	}
	if _, err := ExpectEndswith(conn, []byte("\r\n>>> ")); err != nil {
		if fnErr != nil {
			return fnErr
		}
		return err
	}
	return fnErr
}

// RawPasteExec executes code via raw paste mode. The caller must already
// be inside RawMode. Names the code defines remain in scope until raw
// mode is exited.
//
// code must not contain or print a 0x04 (Ctrl-D) byte, or the raw paste
// protocol will desynchronise.
//
// Returns the code's stdout and any exception traceback as strings.
func RawPasteExec(conn connection.Connection, code string) (output, exception string, err error) {
	if _, err := conn.Write([]byte{0x05, 'A', 0x01}); err != nil {
		return "", "", err
	}
	response, err := conn.Read(2)
	if err != nil {
		return "", "", err
	}
	if !bytes.Equal(response, []byte{'R', 0x01}) {
		return "", "", ErrRawPasteNotSupported
	}

	incSizeBytes, err := conn.Read(2)
	if err != nil {
		return "", "", err
	}
	windowSizeIncrement := int(binary.LittleEndian.Uint16(incSizeBytes))
	windowSize := windowSizeIncrement

	codeBytes := []byte(code)
	if bytes.IndexByte(codeBytes, 0x04) >= 0 {
		return "", "", fmt.Errorf("repl: code must not contain 0x04 (ctrl+D)")
	}

	deviceEnded := false
sendLoop:
	for len(codeBytes) > 0 || windowSize == 0 {
		if windowSize == 0 {
			b, err := conn.Read(1)
			if err != nil {
				return "", "", err
			}
			switch {
			case len(b) == 1 && b[0] == 0x01:
				windowSize += windowSizeIncrement
			case len(b) == 1 && b[0] == 0x04:
				// Device doesn't want any more data; this 0x04 already
				// ends the transfer, so no further acknowledgement follows.
				deviceEnded = true
				break sendLoop
			default:
				return "", "", &ProtocolError{Unexpected: b}
			}
			continue
		}

		chunk := codeBytes
		if len(chunk) > windowSize {
			chunk = chunk[:windowSize]
		}
		n, err := conn.Write(chunk)
		if err != nil {
			return "", "", err
		}
		codeBytes = codeBytes[n:]
		windowSize -= n
	}

	if _, err := conn.Write([]byte{0x04}); err != nil {
		return "", "", err
	}
	for !deviceEnded {
		b, err := conn.Read(1)
		if err != nil {
			return "", "", err
		}
		if len(b) != 1 {
			return "", "", &ProtocolError{Unexpected: b}
		}
		if b[0] == 0x01 {
			continue
		}
		if b[0] == 0x04 {
			break
		}
		return "", "", &ProtocolError{Unexpected: b}
	}

	codeOutput, err := ExpectEndswith(conn, []byte{0x04})
	if err != nil {
		return "", "", err
	}
	codeOutput = codeOutput[:len(codeOutput)-1]

	exceptionOutput, err := ExpectEndswith(conn, []byte{0x04})
	if err != nil {
		return "", "", err
	}
	exceptionOutput = exceptionOutput[:len(exceptionOutput)-1]

	if _, err := ExpectEndswith(conn, []byte{'>'}); err != nil {
		return "", "", err
	}

	if len(codeBytes) == 0 {
		return string(codeOutput), string(exceptionOutput), nil
	}
	return "", "", &SomeCodeNotSentError{
		Output:    string(codeOutput),
		Exception: string(exceptionOutput),
		Unsent:    codeBytes,
	}
}

// SoftResetIntoRepl interrupts whatever is running and performs a soft
// reset that boots directly into the REPL, skipping main.py. Returns any
// output produced by boot.py.
func SoftResetIntoRepl(conn connection.Connection) (string, error) {
	if _, err := InterruptAndEnterRepl(conn, 2, 100*time.Millisecond); err != nil {
		return "", err
	}

	var bootOutput []byte
	err := RawMode(conn, func() error {
		if _, err := conn.Write([]byte{0x04}); err != nil {
			return err
		}
		if _, err := Expect(conn, []byte("OK\r\nMPY: soft reboot\r\n")); err != nil {
			return err
		}
		rawReplEntry := []byte("raw REPL; CTRL-B to exit\r\n>")
		out, err := ExpectEndswith(conn, rawReplEntry)
		if err != nil {
			return err
		}
		bootOutput = out[:len(out)-len(rawReplEntry)]
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(bootOutput), nil
}
