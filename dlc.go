package fdcanusb

// Valid CAN-FD payload lengths. Anything in between is rounded up by the
// adapter and the gap filled with PadByte.
var dlcLengths = [...]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// PadByte is what the FdCanUSB firmware stuffs into the padded tail of a
// frame, 'P' on the wire.
const PadByte = 0x50

func wireLength(n int) int {
	for _, l := range dlcLengths {
		if n <= l {
			return l
		}
	}
	// unreachable for constructed frames, Data is capped at MaxFrameLength
	return MaxFrameLength
}
