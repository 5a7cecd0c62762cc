package media

// PixelFormat identifies the raw video layout delivered by the capture
// source and recorded verbatim into the container.
type PixelFormat int

const (
	// UYVY422 is 8-bit 4:2:2, two bytes per pixel.
	UYVY422 PixelFormat = iota
	// V210 is 10-bit 4:2:2 packed into 128-byte-aligned blocks of
	// 48 pixels.
	V210
)

func (f PixelFormat) String() string {
	switch f {
	case UYVY422:
		return "uyvy422"
	case V210:
		return "v210"
	default:
		return "unknown"
	}
}

// FourCC returns the container codec tag for the format.
func (f PixelFormat) FourCC() [4]byte {
	switch f {
	case V210:
		return [4]byte{'v', '2', '1', '0'}
	default:
		return [4]byte{'U', 'Y', 'V', 'Y'}
	}
}

// BitDepth returns the per-component sample depth.
func (f PixelFormat) BitDepth() int {
	if f == V210 {
		return 10
	}
	return 8
}

// RowStride returns the number of bytes per picture row at the given
// width, matching what DeckLink-style hardware emits.
func (f PixelFormat) RowStride(width int) int {
	if f == V210 {
		return (width + 47) / 48 * 128
	}
	return width * 2
}

// FrameSize returns the payload size of one full picture.
func (f PixelFormat) FrameSize(width, height int) int {
	return f.RowStride(width) * height
}
