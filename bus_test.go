package fdcanusb

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestBusSendAndRecv(t *testing.T) {
	port := &fakePort{reads: [][]byte{
		[]byte("OK\r"),
		[]byte("rcv 0123 AABB\r"),
	}}
	cfg := testConfig()
	fc := New(port, cfg)
	bus := NewBus(fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := mustFrame(t, 0x321, []byte{0x0F}, FlagFD)
	bus.Send() <- out
	bus.Start(ctx)

	select {
	case f := <-bus.Recv():
		if f.Identifier.Raw() != 0x123 {
			t.Errorf("identifier = %s", f.Identifier)
		}
		if !bytes.Equal(f.Data, []byte{0xAA, 0xBB}) {
			t.Errorf("data = %X", f.Data)
		}
	case err := <-bus.Err():
		t.Fatalf("bus error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("no frame within a second")
	}

	if got, want := port.writes.String(), string(Marshal(out)); got != want {
		t.Errorf("wrote %q, want %q", got, want)
	}
	bus.Close()
}

type brokenPort struct{}

func (brokenPort) Read([]byte) (int, error)  { return 0, errors.New("unplugged") }
func (brokenPort) Write([]byte) (int, error) { return 0, errors.New("unplugged") }

func TestBusFatalOnPortError(t *testing.T) {
	bus := NewBus(New(brokenPort{}, testConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	select {
	case err := <-bus.Err():
		if err == nil {
			t.Fatal("nil fatal error")
		}
	case <-time.After(time.Second):
		t.Fatal("no fatal error within a second")
	}
}

func TestBusDeviceErrorIsEvent(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("ERR bus off\r")}}
	bus := NewBus(New(port, testConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	select {
	case evt := <-bus.Event():
		if evt.Type != EventTypeError {
			t.Errorf("event type = %s", evt.Type)
		}
	case err := <-bus.Err():
		t.Fatalf("device error escalated to fatal: %v", err)
	case <-time.After(time.Second):
		t.Fatal("no event within a second")
	}
}
