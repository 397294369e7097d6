package fdcanusb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/ratelimit"
)

// How long each poll of the port lasts when nothing is queued for send.
const busPollInterval = 20 * time.Millisecond

// Bus puts a channel front on a driver for tooling that wants a stream of
// frames instead of call/response. One goroutine owns the driver, so the
// core stays free of locks; everything else talks to it via channels.
type Bus struct {
	fc *FdCanUSB

	sendChan chan *Frame
	recvChan chan *Frame

	errOnce sync.Once
	errChan chan error

	evtChan chan Event

	closeOnce sync.Once
	closeChan chan struct{}

	rl ratelimit.Limiter
}

func NewBus(fc *FdCanUSB) *Bus {
	return &Bus{
		fc:        fc,
		sendChan:  make(chan *Frame, 40),
		recvChan:  make(chan *Frame, 1024),
		errChan:   make(chan error, 1),
		evtChan:   make(chan Event, 100),
		closeChan: make(chan struct{}),
		rl:        ratelimit.New(500), // outgoing frames per second
	}
}

// Start launches the manager goroutine. It runs until ctx is cancelled,
// Close is called or the driver hits a fatal error.
func (b *Bus) Start(ctx context.Context) {
	go b.run(ctx)
}

// Send returns the channel outgoing frames are queued on.
func (b *Bus) Send() chan<- *Frame {
	return b.sendChan
}

// Recv returns the channel incoming frames are delivered on.
func (b *Bus) Recv() <-chan *Frame {
	return b.recvChan
}

// Err delivers at most one fatal error, after which the bus is dead.
func (b *Bus) Err() <-chan error {
	return b.errChan
}

func (b *Bus) Event() <-chan Event {
	return b.evtChan
}

func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		close(b.closeChan)
	})
	return b.fc.Close()
}

// Set a fatal bus error, meaning communication is broken and cannot
// continue.
func (b *Bus) fatal(err error) {
	b.errOnce.Do(func() {
		select {
		case b.errChan <- err:
		default:
		}
	})
}

func (b *Bus) sendEvent(eventType EventType, details string) {
	select {
	case b.evtChan <- Event{Type: eventType, Details: details}:
	default:
		// event channel full, tooling is not draining it
	}
}

func (b *Bus) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closeChan:
			return
		case f := <-b.sendChan:
			b.rl.Take()
			if err := b.fc.Send(f); err != nil {
				if !b.handleErr(err) {
					return
				}
			}
		default:
			f, err := b.fc.ReadFrameTimeout(busPollInterval)
			if err != nil {
				var te *TimeoutError
				if errors.As(err, &te) {
					continue
				}
				if !b.handleErr(err) {
					return
				}
				continue
			}
			select {
			case b.recvChan <- f:
			default:
				b.sendEvent(EventTypeWarning, fmt.Sprintf("dropped frame %s, recv channel full", f.Identifier))
			}
		}
	}
}

// handleErr sorts driver errors into events and fatals. Returns false when
// the bus cannot continue.
func (b *Bus) handleErr(err error) bool {
	var de *DeviceErr
	var mr *MalformedResponseError
	var te *TimeoutError
	switch {
	case errors.As(err, &de):
		b.sendEvent(EventTypeError, de.Error())
	case errors.As(err, &mr):
		b.sendEvent(EventTypeWarning, mr.Error())
	case errors.As(err, &te):
		b.sendEvent(EventTypeWarning, te.Error())
	default:
		b.fatal(err)
		return false
	}
	return true
}
