package fdcanusb

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// fakePort scripts the adapter side of a session. Each entry in reads is
// handed out by one Read call; once the script runs dry every Read returns
// (0, nil), the serial "no data within timeout" signal.
type fakePort struct {
	reads  [][]byte
	writes bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, nil
	}
	n := copy(b, p.reads[0])
	if n < len(p.reads[0]) {
		p.reads[0] = p.reads[0][n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.writes.Write(b)
}

func testConfig() *Config {
	return &Config{
		ReadTimeout: 50 * time.Millisecond,
		OnMessage:   func(string) {},
	}
}

func mustFrame(t *testing.T, id uint32, data []byte, flags Flag) *Frame {
	t.Helper()
	f, err := NewFrame(id, data, flags)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestSendAck(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("OK\r")}}
	fc := New(port, testConfig())

	f := mustFrame(t, 0x123, []byte{0x01, 0x02, 0x03}, FlagBRS)
	if err := fc.Send(f); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got, want := port.writes.String(), string(Marshal(f)); got != want {
		t.Errorf("wrote %q, want %q", got, want)
	}
}

func TestSendDeviceError(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("ERR bad id\r")}}
	fc := New(port, testConfig())

	err := fc.Send(mustFrame(t, 0x123, nil, 0))
	var de *DeviceErr
	if !errors.As(err, &de) {
		t.Fatalf("Send() error = %v, want *DeviceErr", err)
	}
	if de.Message != "bad id" {
		t.Errorf("message = %q, want %q", de.Message, "bad id")
	}
}

func TestSendMalformedResponse(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("rcv 0123 AA\r")}}
	fc := New(port, testConfig())

	err := fc.Send(mustFrame(t, 0x123, nil, 0))
	var mr *MalformedResponseError
	if !errors.As(err, &mr) {
		t.Fatalf("Send() error = %v, want *MalformedResponseError", err)
	}
	if mr.Expected != tokenAck {
		t.Errorf("Expected = %q", mr.Expected)
	}
	if string(mr.Raw) != "rcv 0123 AA" {
		t.Errorf("Raw = %q", mr.Raw)
	}
}

func TestSendTimeout(t *testing.T) {
	port := &fakePort{}
	cfg := testConfig()
	cfg.ReadTimeout = 10 * time.Millisecond
	fc := New(port, cfg)

	err := fc.Send(mustFrame(t, 0x123, nil, 0))
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Send() error = %v, want *TimeoutError", err)
	}
}

func TestSendWhileBusy(t *testing.T) {
	fc := New(&fakePort{}, testConfig())
	fc.state = stateAwaitingAck
	if err := fc.Send(mustFrame(t, 0x123, nil, 0)); !errors.Is(err, ErrBusy) {
		t.Errorf("Send() error = %v, want ErrBusy", err)
	}
	fc.state = stateIdle
}

func TestSendAckSplitAcrossReads(t *testing.T) {
	// ack arrives one byte at a time with empty polls in between
	port := &fakePort{reads: [][]byte{
		{'O'}, {}, {'K'}, {}, {'\r'},
	}}
	fc := New(port, testConfig())
	if err := fc.Send(mustFrame(t, 0x123, []byte{0xFF}, 0)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestReadFrameSkipsNoise(t *testing.T) {
	var dropped []string
	cfg := testConfig()
	cfg.OnMessage = func(msg string) { dropped = append(dropped, msg) }

	port := &fakePort{reads: [][]byte{
		[]byte("#garbage\r\nOK\rrcv 0123 0102"),
		[]byte("0350 t00123\r"),
	}}
	fc := New(port, cfg)

	f, err := fc.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error: %v", err)
	}
	if f.Identifier.Raw() != 0x123 {
		t.Errorf("identifier = %s", f.Identifier)
	}
	if !bytes.Equal(f.Data, []byte{0x01, 0x02, 0x03, 0x50}) {
		t.Errorf("data = %X", f.Data)
	}
	if f.Timestamp != 123*time.Microsecond {
		t.Errorf("timestamp = %s", f.Timestamp)
	}
	// the garbage line and the stray ack are both noise here
	if len(dropped) != 2 {
		t.Errorf("dropped %d lines (%v), want 2", len(dropped), dropped)
	}
}

func TestReadFrameDeviceError(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("ERR bus off\r")}}
	fc := New(port, testConfig())

	_, err := fc.ReadFrame()
	var de *DeviceErr
	if !errors.As(err, &de) {
		t.Fatalf("ReadFrame() error = %v, want *DeviceErr", err)
	}
	if de.Message != "bus off" {
		t.Errorf("message = %q", de.Message)
	}
}

func TestReadFrameLineTooLong(t *testing.T) {
	cfg := testConfig()
	cfg.BufferLimit = 8
	port := &fakePort{reads: [][]byte{bytes.Repeat([]byte{'A'}, 32)}}
	fc := New(port, cfg)

	_, err := fc.ReadFrame()
	var lte *LineTooLongError
	if !errors.As(err, &lte) {
		t.Fatalf("ReadFrame() error = %v, want *LineTooLongError", err)
	}
}

func TestTransfer(t *testing.T) {
	port := &fakePort{reads: [][]byte{
		[]byte("OK\r"),
		[]byte("rcv 8001 01000A0D200000C07F0D270000004011001F01130D505050\r"),
	}}
	fc := New(port, testConfig())

	out := mustFrame(t, 0x8001, mjbotsPayload, 0)
	in, err := fc.Transfer(out)
	if err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if in.Identifier.Raw() != 0x8001 {
		t.Errorf("response identifier = %s", in.Identifier)
	}
	if !bytes.Equal(in.Data[:len(mjbotsPayload)], mjbotsPayload) {
		t.Errorf("response data = %X", in.Data)
	}
}

func TestFlush(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("stale noise from last session")}}
	fc := New(port, testConfig())
	fc.lines.Write([]byte("half a li"))

	if err := fc.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if fc.lines.Pending() != 0 {
		t.Errorf("Pending() = %d after flush", fc.lines.Pending())
	}
}
