package fdcanusb

import "fmt"

// Response is one classified line from the adapter. The set of
// implementations is closed: Ack, Received, DeviceErr and Unknown.
type Response interface {
	response()
}

// Ack is the adapter accepting the previous command.
type Ack struct{}

func (Ack) response() {}

// Received is an unsolicited frame notification.
type Received struct {
	Frame *Frame
}

func (*Received) response() {}

// DeviceErr is a failure reported by the adapter itself. It doubles as an
// error value so it can travel up through the driver untouched.
type DeviceErr struct {
	Message string
}

func (*DeviceErr) response() {}

func (e *DeviceErr) Error() string {
	return fmt.Sprintf("device error: %s", e.Message)
}

// Unknown is a line that matched no known response shape. Not an error by
// itself, the caller decides what to do with it.
type Unknown struct {
	Raw []byte
}

func (*Unknown) response() {}
