package fdcanusb

import "fmt"

const (
	DefaultBufferSize  = 256
	DefaultBufferLimit = 4096
)

// LineBuffer accumulates raw read chunks and hands out CR terminated lines.
// Chunk boundaries carry no meaning: a line may arrive split across any
// number of reads, or several lines may land in one read. Bytes are never
// dropped or handed out twice.
//
// A LineBuffer is owned by a single driver and is not safe for concurrent
// use.
type LineBuffer struct {
	buf   []byte
	start int // consumed prefix, everything before it has been emitted
	scan  int // resume point for the terminator scan
	limit int // max pending unterminated bytes before giving up
}

func NewLineBuffer(size, limit int) *LineBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &LineBuffer{
		buf:   make([]byte, 0, size),
		limit: limit,
	}
}

// Write appends a read chunk. Always succeeds; overrun of the line limit is
// reported by Next once the pending bytes are known to lack a terminator.
func (lb *LineBuffer) Write(p []byte) (int, error) {
	if lb.start > 0 && len(lb.buf)+len(p) > cap(lb.buf) {
		// reclaim the consumed prefix before growing the allocation
		n := copy(lb.buf, lb.buf[lb.start:])
		lb.buf = lb.buf[:n]
		lb.scan -= lb.start
		lb.start = 0
	}
	lb.buf = append(lb.buf, p...)
	return len(p), nil
}

// Next returns the next complete line with the terminator stripped, or
// (nil, nil) when the buffered bytes hold no terminator yet. The returned
// slice aliases the internal buffer and is valid until the next Write.
//
// When the unterminated tail has outgrown the configured limit a
// *LineTooLongError is returned; the driver cannot resync past it on its
// own.
func (lb *LineBuffer) Next() ([]byte, error) {
	for i := lb.scan; i < len(lb.buf); i++ {
		if lb.buf[i] == CR {
			line := lb.buf[lb.start:i]
			lb.start = i + 1
			lb.scan = i + 1
			return line, nil
		}
	}
	lb.scan = len(lb.buf)
	if pending := len(lb.buf) - lb.start; pending > lb.limit {
		return nil, &LineTooLongError{Limit: lb.limit, Pending: pending}
	}
	return nil, nil
}

// Pending reports how many buffered bytes have not been emitted yet.
func (lb *LineBuffer) Pending() int {
	return len(lb.buf) - lb.start
}

// Reset drops all buffered bytes but keeps the allocation.
func (lb *LineBuffer) Reset() {
	lb.buf = lb.buf[:0]
	lb.start = 0
	lb.scan = 0
}

type LineTooLongError struct {
	Limit   int
	Pending int
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("no line terminator within %d bytes (limit %d)", e.Pending, e.Limit)
}
