package connection

import (
	"fmt"
	"os"
	"time"
)

// SerialConnection is a Connection backed by an OS serial device opened at
// a fixed baud rate, analogous to pyserial's Serial in the original tool.
type SerialConnection struct {
	f *os.File
	*timeoutReader
}

// NewSerialConnection opens port at the given baud rate and puts it into
// raw mode (no echo, no line discipline, 8N1, no flow control) so that
// every byte sent and received passes through untouched.
func NewSerialConnection(port string, baud int) (*SerialConnection, error) {
	f, err := openSerialPort(port, baud)
	if err != nil {
		return nil, fmt.Errorf("connection: open %s: %w", port, err)
	}
	return &SerialConnection{
		f:             f,
		timeoutReader: newTimeoutReader(f, time.Second),
	}, nil
}

func (s *SerialConnection) Write(data []byte) (int, error) {
	return s.f.Write(data)
}

func (s *SerialConnection) Flush() error {
	return drainSerialPort(s.f)
}

func (s *SerialConnection) Close() error {
	return s.f.Close()
}

func (s *SerialConnection) Fileno() uintptr {
	return s.f.Fd()
}
