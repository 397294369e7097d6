package fdcanusb

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"time"
)

// Port is the byte stream the adapter hangs off, usually a serial.Port. A
// Read returning (0, nil) means no data arrived within the port's read
// timeout, not end of stream.
type Port interface {
	io.ReadWriter
}

const (
	DefaultReadTimeout = 100 * time.Millisecond
	defaultChunkSize   = 64
)

type Config struct {
	// ReadTimeout bounds how long Send and ReadFrame wait for a
	// qualifying response.
	ReadTimeout time.Duration
	// BufferSize is the initial line buffer allocation, BufferLimit the
	// most unterminated bytes tolerated before giving up on the stream.
	BufferSize  int
	BufferLimit int
	// ChunkSize is how much is asked of the port per read.
	ChunkSize int
	Debug     bool
	OnMessage func(string)
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaitingAck
	stateAwaitingFrame
)

// FdCanUSB drives one adapter over one port. All calls are synchronous and
// the struct holds no locks: one logical session per physical transport,
// callers that share it across goroutines must serialize themselves (or use
// Bus).
type FdCanUSB struct {
	port  Port
	cfg   Config
	lines *LineBuffer
	chunk []byte
	state sessionState
}

func New(port Port, cfg *Config) *FdCanUSB {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.OnMessage == nil {
		c.OnMessage = func(msg string) {
			log.Println(msg)
		}
	}
	return &FdCanUSB{
		port:  port,
		cfg:   c,
		lines: NewLineBuffer(c.BufferSize, c.BufferLimit),
		chunk: make([]byte, c.ChunkSize),
	}
}

// Send writes one frame and waits for the adapter to acknowledge it. A
// device error line is returned as *DeviceErr, anything else in the ack
// slot as *MalformedResponseError. The command is not retried on timeout.
func (fc *FdCanUSB) Send(f *Frame) error {
	if fc.state != stateIdle {
		return ErrBusy
	}
	fc.state = stateAwaitingAck
	defer func() { fc.state = stateIdle }()

	cmd := Marshal(f)
	if fc.cfg.Debug {
		fc.cfg.OnMessage("> " + string(bytes.TrimRight(cmd, "\r")))
	}
	if _, err := fc.port.Write(cmd); err != nil {
		return fmt.Errorf("failed to write to com port: %w", err)
	}

	line, err := fc.readLine(time.Now().Add(fc.cfg.ReadTimeout), fc.cfg.ReadTimeout, "ack")
	if err != nil {
		return err
	}
	switch r := DecodeResponse(line).(type) {
	case Ack:
		return nil
	case *DeviceErr:
		return r
	default:
		return &MalformedResponseError{Expected: tokenAck, Raw: append([]byte(nil), line...)}
	}
}

// ReadFrame waits for the next frame notification, discarding protocol
// noise, with the configured read timeout.
func (fc *FdCanUSB) ReadFrame() (*Frame, error) {
	return fc.ReadFrameTimeout(fc.cfg.ReadTimeout)
}

// ReadFrameTimeout waits up to timeout for the next frame notification.
// Lines that classify as Unknown or as stray acks are logged through
// OnMessage and skipped; a device error ends the wait.
func (fc *FdCanUSB) ReadFrameTimeout(timeout time.Duration) (*Frame, error) {
	if fc.state != stateIdle {
		return nil, ErrBusy
	}
	fc.state = stateAwaitingFrame
	defer func() { fc.state = stateIdle }()

	deadline := time.Now().Add(timeout)
	for {
		line, err := fc.readLine(deadline, timeout, "frame")
		if err != nil {
			return nil, err
		}
		switch r := DecodeResponse(line).(type) {
		case *Received:
			if fc.cfg.Debug {
				fc.cfg.OnMessage("< " + string(line))
			}
			return r.Frame, nil
		case *DeviceErr:
			return nil, r
		default:
			fc.cfg.OnMessage(fmt.Sprintf("dropped line: %q", line))
		}
	}
}

// Transfer sends a frame and waits for the single response frame it
// provokes, the usual query pattern against moteus style servos.
func (fc *FdCanUSB) Transfer(f *Frame) (*Frame, error) {
	if err := fc.Send(f); err != nil {
		return nil, err
	}
	return fc.ReadFrame()
}

// Flush discards whatever is sitting in the port and the line buffer. Worth
// doing after open, stale bytes from a previous session break line sync.
func (fc *FdCanUSB) Flush() error {
	for {
		n, err := fc.port.Read(fc.chunk)
		if err != nil {
			return fmt.Errorf("failed to read com port: %w", err)
		}
		if n == 0 {
			break
		}
	}
	fc.lines.Reset()
	return nil
}

// Close closes the underlying port if it can be closed.
func (fc *FdCanUSB) Close() error {
	if c, ok := fc.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// readLine pulls the next non-empty line, reading more from the port as
// needed until deadline.
func (fc *FdCanUSB) readLine(deadline time.Time, timeout time.Duration, op string) ([]byte, error) {
	for {
		for {
			line, err := fc.lines.Next()
			if err != nil {
				return nil, err
			}
			if line == nil {
				break
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			return line, nil
		}
		if time.Now().After(deadline) {
			return nil, &TimeoutError{Op: op, Timeout: timeout}
		}
		n, err := fc.port.Read(fc.chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to read com port: %w", err)
		}
		if n == 0 {
			continue
		}
		fc.lines.Write(fc.chunk[:n])
	}
}
