package fdcanusb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

const MaxFrameLength = 64

// Identifier is a CAN arbitration id. The FdCanUSB renders standard ids as
// 4 hex digits and extended 29bit ids as 8, so the two are kept apart
// instead of being squashed into a bare uint32.
type Identifier struct {
	id       uint32
	extended bool
}

func StandardID(id uint32) Identifier {
	return Identifier{id: id}
}

func ExtendedID(id uint32) Identifier {
	return Identifier{id: id, extended: true}
}

func (i Identifier) Raw() uint32 {
	return i.id
}

func (i Identifier) Extended() bool {
	return i.extended
}

func (i Identifier) Hex() string {
	if i.extended {
		return fmt.Sprintf("%08X", i.id)
	}
	return fmt.Sprintf("%04X", i.id)
}

func (i Identifier) String() string {
	return "0x" + i.Hex()
}

type Frame struct {
	Identifier Identifier
	Data       []byte
	Flags      Flag
	// Timestamp of receipt in adapter time, decoded from the trailing
	// tNNNNN token on rcv lines. Zero for frames built locally.
	Timestamp time.Duration
}

func NewFrame(identifier uint32, data []byte, flags Flag) (*Frame, error) {
	return newFrame(StandardID(identifier), data, flags)
}

func NewExtendedFrame(identifier uint32, data []byte, flags Flag) (*Frame, error) {
	return newFrame(ExtendedID(identifier), data, flags)
}

func newFrame(id Identifier, data []byte, flags Flag) (*Frame, error) {
	if len(data) > MaxFrameLength {
		return nil, FrameSizeError(len(data))
	}
	b := make([]byte, len(data))
	copy(b, data)
	return &Frame{
		Identifier: id,
		Data:       b,
		Flags:      flags,
	}, nil
}

func (f *Frame) Length() int {
	return len(f.Data)
}

// WireLength returns the padded payload length the adapter puts on the bus,
// the smallest valid CAN-FD payload length that fits the data.
func (f *Frame) WireLength() int {
	return wireLength(len(f.Data))
}

func (f *Frame) PaddingLength() int {
	return wireLength(len(f.Data)) - len(f.Data)
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f *Frame) String() string {
	var out strings.Builder
	out.WriteString(f.Identifier.String() + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(fmt.Sprintf("%-48s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(f.Flags.String())
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data))
	return out.String()
}

func (f *Frame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("%s", f.Identifier.String()) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(red("%-48s", hexView(f.Data)))
	out.WriteString(" || ")
	out.WriteString(f.Flags.String())
	out.WriteString(" || ")
	out.WriteString(yellow("%s", onlyPrintable(f.Data)))
	return out.String()
}

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 127 {
			out.WriteString("·")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
