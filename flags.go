package fdcanusb

import "strings"

// Flag holds the per-frame option bits.
type Flag uint8

const (
	// FlagBRS requests bitrate switching for the data phase.
	FlagBRS Flag = 1 << iota
	// FlagFD marks the frame as CAN-FD rather than classic.
	FlagFD
	// FlagRemote marks a remote request frame.
	FlagRemote
)

// flagTable is the single source of truth for the flag <-> wire character
// mapping, in emit order. A lowercase character on the wire means the flag
// is set, uppercase means explicitly cleared, absent means cleared.
var flagTable = []struct {
	flag Flag
	char byte
}{
	{FlagBRS, 'b'},
	{FlagFD, 'f'},
	{FlagRemote, 'r'},
}

func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}

func (f Flag) String() string {
	var out strings.Builder
	for _, e := range flagTable {
		if f.Has(e.flag) {
			out.WriteByte(e.char)
		} else {
			out.WriteByte('-')
		}
	}
	return out.String()
}

// flagForChar looks up the flag bit for a single wire character. The second
// return is the value the character carries (lowercase = set), the third
// reports whether the character is part of the flag alphabet at all.
func flagForChar(c byte) (Flag, bool, bool) {
	lower := c | 0x20
	for _, e := range flagTable {
		if e.char == lower {
			return e.flag, c == lower, true
		}
	}
	return 0, false, false
}
