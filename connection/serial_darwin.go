//go:build darwin

package connection

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint64{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// openSerialPort opens the device at path, configures it for raw byte-wise
// I/O at baud (no echo, no canonical processing, 8N1, no flow control), and
// returns the resulting file. Mirrors the termios manipulation the teacher
// applies to its PTY master in pty_darwin.go, but targeting a real serial
// device and using golang.org/x/sys/unix in place of raw syscall constants.
func openSerialPort(path string, baud int) (*os.File, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", baud)
	}

	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	term, err := unix.IoctlGetTermios(int(f.Fd()), unix.TIOCGETA)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// cfmakeraw equivalent.
	term.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	term.Oflag &^= unix.OPOST
	term.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	term.Cflag &^= unix.CSIZE | unix.PARENB
	term.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	term.Ispeed = speed
	term.Ospeed = speed
	term.Cc[unix.VMIN] = 0
	term.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(int(f.Fd()), unix.TIOCSETA, term); err != nil {
		f.Close()
		return nil, fmt.Errorf("set termios: %w", err)
	}

	return f, nil
}

// drainSerialPort blocks until all written bytes have been transmitted.
func drainSerialPort(f *os.File) error {
	return unix.IoctlSetInt(int(f.Fd()), unix.TIOCDRAIN, 0)
}
