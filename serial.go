package fdcanusb

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// The adapter enumerates as an STM32 CDC ACM device. The baud rate is
// cosmetic over USB but the port still wants a mode.
const (
	usbVID = "0483"
	usbPID = "5740"
)

// Open opens the named serial port and hands back a driver on it. The port
// read timeout doubles as the poll interval of the line reader; the
// session level timeout lives in Config.
func Open(portName string, cfg *Config) (*FdCanUSB, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open com port %q : %v", portName, err)
	}
	if err := p.SetReadTimeout(4 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	p.ResetInputBuffer()
	p.ResetOutputBuffer()
	return New(p, cfg), nil
}

// FindPorts returns the serial ports that look like an FdCanUSB, going by
// the USB vid:pid.
func FindPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if strings.EqualFold(port.VID, usbVID) && strings.EqualFold(port.PID, usbPID) {
			out = append(out, port.Name)
		}
	}
	return out, nil
}

// ListPorts returns every serial port on the system with a short
// description, for tooling that wants to present a picker.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, port := range ports {
		desc := port.Name
		if port.IsUSB {
			desc += fmt.Sprintf(" [%s:%s] %s", port.VID, port.PID, port.Product)
		}
		out = append(out, desc)
	}
	return out, nil
}
