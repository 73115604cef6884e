package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"

	"go.bug.st/serial"
)

// Default serial settings: 8N1 at the EnOcean ESP3 rate.
const defaultBaudRate = 57600

// Endpoint is a parsed connection URL.
type Endpoint struct {
	Scheme string

	// Address is the device path, socket path, host:port or file path.
	Address string

	// BaudRate applies to serial endpoints.
	BaudRate int
}

// String returns the endpoint in URL form.
func (e Endpoint) String() string {
	switch e.Scheme {
	case "tcp":
		return "tcp://" + e.Address
	case "serial":
		return fmt.Sprintf("serial://%s?baud=%d", e.Address, e.BaudRate)
	default:
		return e.Scheme + "://" + e.Address
	}
}

// Replay reports whether the endpoint is a finite capture.
func (e Endpoint) Replay() bool { return e.Scheme == "file" }

// ParseEndpoint parses a connection URL.
//
// Supported formats:
//   - "serial:///dev/ttyUSB0?baud=57600"
//   - "tcp://localhost:6720"
//   - "unix:///run/knxd"
//   - "file:///path/to/capture"
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	switch u.Scheme {
	case "serial":
		if u.Path == "" {
			return Endpoint{}, fmt.Errorf("%w: serial endpoint %q has no device path", ErrInvalidEndpoint, raw)
		}
		baud := defaultBaudRate
		if b := u.Query().Get("baud"); b != "" {
			baud, err = strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Endpoint{}, fmt.Errorf("%w: invalid baud rate %q", ErrInvalidEndpoint, b)
			}
		}
		return Endpoint{Scheme: "serial", Address: u.Path, BaudRate: baud}, nil
	case "tcp":
		if u.Host == "" {
			return Endpoint{}, fmt.Errorf("%w: tcp endpoint %q has no host", ErrInvalidEndpoint, raw)
		}
		return Endpoint{Scheme: "tcp", Address: u.Host}, nil
	case "unix", "file":
		if u.Path == "" {
			return Endpoint{}, fmt.Errorf("%w: %s endpoint %q has no path", ErrInvalidEndpoint, u.Scheme, raw)
		}
		return Endpoint{Scheme: u.Scheme, Address: u.Path}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q (use serial, tcp, unix or file)", ErrInvalidEndpoint, u.Scheme)
	}
}

// DialFunc opens an endpoint.
type DialFunc func(ctx context.Context, ep Endpoint) (io.ReadWriteCloser, error)

// Dial opens serial ports with go.bug.st/serial, sockets with net.Dialer
// and replay files with os.Open.
func Dial(ctx context.Context, ep Endpoint) (io.ReadWriteCloser, error) {
	switch ep.Scheme {
	case "serial":
		port, err := serial.Open(ep.Address, &serial.Mode{
			BaudRate: ep.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", ep.Address, err)
		}
		if err := port.ResetInputBuffer(); err != nil {
			port.Close()
			return nil, fmt.Errorf("reset serial input %s: %w", ep.Address, err)
		}
		return port, nil
	case "tcp", "unix":
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, ep.Scheme, ep.Address)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", ep, err)
		}
		return conn, nil
	case "file":
		f, err := os.Open(ep.Address)
		if err != nil {
			return nil, fmt.Errorf("open replay file: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, ep.Scheme)
	}
}
