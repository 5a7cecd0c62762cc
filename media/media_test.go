package media

import "testing"

func TestFromHardware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tb   Timebase
		in   int64
		want int64
	}{
		{"pal frame ticks", Timebase{1000, 25000}, 40000, 40},
		{"pal frame duration", Timebase{1000, 25000}, 1000, 1},
		{"ntsc fractional", Timebase{1001, 30000}, 3003, 3},
		{"audio passthrough", Timebase{1, 48000}, 12345, 12345},
		{"zero numerator is identity", Timebase{}, 777, 777},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tb.FromHardware(tt.in); got != tt.want {
				t.Errorf("FromHardware(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRowStride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fmt    PixelFormat
		width  int
		stride int
	}{
		{UYVY422, 1920, 3840},
		{UYVY422, 720, 1440},
		{V210, 1920, 5120},
		{V210, 1280, 3456},
		{V210, 720, 1920},
	}
	for _, tt := range tests {
		if got := tt.fmt.RowStride(tt.width); got != tt.stride {
			t.Errorf("%s RowStride(%d) = %d, want %d", tt.fmt, tt.width, got, tt.stride)
		}
	}
}

func TestPacketSize(t *testing.T) {
	t.Parallel()

	p := &Packet{Data: make([]byte, 100)}
	if got := p.Size(); got != 100+packetOverhead {
		t.Errorf("Size() = %d, want %d", got, 100+packetOverhead)
	}
	empty := &Packet{}
	if got := empty.Size(); got != packetOverhead {
		t.Errorf("empty Size() = %d, want %d", got, packetOverhead)
	}
}

func TestStreamTagString(t *testing.T) {
	t.Parallel()

	if StreamVideo.String() != "video" || StreamAudio.String() != "audio" {
		t.Errorf("unexpected tag strings: %s, %s", StreamVideo, StreamAudio)
	}
}
