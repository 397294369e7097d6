package fdcanusb

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	// CR terminates every command and response line.
	CR = 0x0D

	cmdSend    = "can send"
	tokenAck   = "OK"
	tokenRecv  = "rcv"
	tokenError = "ERR"

	// maxErrorText caps how much of a device error line is kept. The
	// firmware does not document an upper bound for the free text.
	maxErrorText = 100
)

// Marshal renders a frame as one outgoing command line. The output is
// deterministic: upper hex id, upper hex payload padded to a valid CAN-FD
// length, flag characters in table order, CR terminated.
func Marshal(f *Frame) []byte {
	var out bytes.Buffer
	out.WriteString(cmdSend)
	out.WriteByte(' ')
	out.WriteString(f.Identifier.Hex())
	out.WriteByte(' ')
	out.WriteString(strings.ToUpper(hex.EncodeToString(f.Data)))
	for i := 0; i < f.PaddingLength(); i++ {
		out.WriteString("50")
	}
	for _, e := range flagTable {
		if f.Flags.Has(e.flag) {
			out.WriteByte(' ')
			out.WriteByte(e.char)
		}
	}
	out.WriteByte(CR)
	return out.Bytes()
}

// DecodeResponse classifies a single line, stripped of its terminator. It
// never fails: a line that matches nothing comes back as *Unknown with the
// raw bytes attached.
func DecodeResponse(line []byte) Response {
	trimmed := bytes.TrimSpace(line)
	switch {
	case bytes.HasPrefix(trimmed, []byte(tokenAck)):
		return Ack{}
	case bytes.HasPrefix(trimmed, []byte(tokenError)):
		msg := bytes.TrimSpace(trimmed[len(tokenError):])
		if len(msg) > maxErrorText {
			msg = msg[:maxErrorText]
		}
		return &DeviceErr{Message: string(msg)}
	case bytes.HasPrefix(trimmed, []byte(tokenRecv)):
		if f := decodeFrame(string(trimmed)); f != nil {
			return &Received{Frame: f}
		}
	}
	return &Unknown{Raw: append([]byte(nil), line...)}
}

// decodeFrame parses "rcv <id> <hex payload> [flags...]". Returns nil when
// the line does not hold up structurally.
func decodeFrame(line string) *Frame {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != tokenRecv {
		return nil
	}
	id, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return nil
	}
	// Extended ids are printed with 8 digits; the e/E flag below can
	// still override either way.
	extended := len(fields[1]) > 4

	// A multi character first token is the payload; flag tokens are
	// single characters, timestamps start with 't'.
	var data []byte
	rest := fields[2:]
	if len(rest) > 0 && len(rest[0]) > 1 && rest[0][0] != 't' {
		b, err := hex.DecodeString(rest[0])
		if err != nil {
			return nil
		}
		data = b
		rest = rest[1:]
	}
	if len(data) > MaxFrameLength {
		return nil
	}

	var flags Flag
	var ts time.Duration
	for _, tok := range rest {
		if len(tok) == 1 {
			c := tok[0]
			if c|0x20 == 'e' {
				extended = c == 'e'
				continue
			}
			if flag, set, ok := flagForChar(c); ok {
				if set {
					flags |= flag
				}
				continue
			}
		}
		if strings.HasPrefix(tok, "t") {
			if us, err := strconv.ParseUint(tok[1:], 10, 32); err == nil {
				ts = time.Duration(us) * time.Microsecond
			}
			continue
		}
		// fNN filter match ids and future tokens are noise to us
	}

	id32 := uint32(id)
	f := &Frame{
		Data:      data,
		Flags:     flags,
		Timestamp: ts,
	}
	if extended {
		f.Identifier = ExtendedID(id32)
	} else {
		f.Identifier = StandardID(id32)
	}
	return f
}
