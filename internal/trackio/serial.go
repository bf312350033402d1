package trackio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// PortOptions describes the serial link to the logger.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`

	// IdleTimeout ends the download once the logger has been silent this long.
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 2 * time.Second
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts normalized options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// timeoutPort is the part of serial.Port used for downloads.
type timeoutPort interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// OpenSerial opens the logger's serial port for a download. The returned
// reader reports io.EOF once the logger stops sending for IdleTimeout.
func OpenSerial(path string, opts PortOptions) (io.ReadCloser, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	r, err := newIdleReader(port, opts.IdleTimeout)
	if err != nil {
		port.Close()
		return nil, err
	}
	return r, nil
}

// idleReader maps a read timeout to io.EOF.
type idleReader struct {
	port timeoutPort
}

func newIdleReader(port timeoutPort, idle time.Duration) (*idleReader, error) {
	if err := port.SetReadTimeout(idle); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &idleReader{port: port}, nil
}

func (r *idleReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.port.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (r *idleReader) Close() error { return r.port.Close() }
