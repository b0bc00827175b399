// Package serial reads command tokens from a serial line, one token per line,
// as sent by BCI decoders attached over USB serial adapters.
package serial

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	goserial "go.bug.st/serial"
)

// Porter is the minimal interface needed for a serial port, it allows the
// Reader to be tested without serial hardware
type Porter interface {
	io.Reader
	io.Closer
}

// Handler receives each command token read
type Handler func(token string)

// Open opens the serial port at path as 8N1 with the given baud rate
func Open(path string, baud int) (Porter, error) {

	mode := &goserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}

	port, err := goserial.Open(path, mode)

	if err != nil {
		return nil, fmt.Errorf("error opening serial port %s: %w", path, err)
	}

	return port, nil
}

// Reader scans lines from a serial port and passes each non blank line to
// its handler
type Reader struct {
	port    Porter
	handler Handler
	logger  *slog.Logger
	lines   atomic.Uint64
}

// NewReader returns a Reader over port.  A nil logger uses slog.Default().
func NewReader(port Porter, handler Handler, logger *slog.Logger) *Reader {

	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		port:    port,
		handler: handler,
		logger:  logger,
	}
}

// Monitor reads lines until the port reaches EOF, a read fails or ctx is
// cancelled.  EOF returns nil.
func (r *Reader) Monitor(ctx context.Context) error {

	scan := bufio.NewScanner(r.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking Scan runs in its own goroutine so cancellation is not
	// held up waiting on the port
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return fmt.Errorf("error reading serial port: %w", err)

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return fmt.Errorf("error reading serial port: %w", err)
				default:
				}

				r.logger.Info("serial port closed")
				return nil
			}

			token := strings.TrimSpace(line)

			if token == "" {
				continue
			}

			r.lines.Add(1)
			r.logger.Debug("serial command received", "token", token)

			if r.handler != nil {
				r.handler(token)
			}
		}
	}
}

// Lines returns the number of command lines read
func (r *Reader) Lines() uint64 {
	return r.lines.Load()
}

// Close closes the serial port, unblocking a pending read
func (r *Reader) Close() error {
	return r.port.Close()
}
