package capture

import (
	"fmt"

	"github.com/zsiec/reel/media"
)

// Mode describes a display mode: picture geometry plus the frame clock
// as a time-base (Num hardware units per frame, Den units per second).
type Mode struct {
	Name       string
	Width      int
	Height     int
	Timebase   media.Timebase
	Interlaced bool
}

// FPS returns the nominal frame rate.
func (m Mode) FPS() float64 {
	return float64(m.Timebase.Den) / float64(m.Timebase.Num)
}

func (m Mode) String() string {
	return fmt.Sprintf("%s %dx%d @ %.2f", m.Name, m.Width, m.Height, m.FPS())
}

// modes is indexed by the DeckLink display-mode number exposed on the
// command line.
var modes = map[int]Mode{
	0:  {Name: "ntsc", Width: 720, Height: 486, Timebase: media.Timebase{Num: 1001, Den: 30000}, Interlaced: true},
	1:  {Name: "pal", Width: 720, Height: 576, Timebase: media.Timebase{Num: 1000, Den: 25000}, Interlaced: true},
	2:  {Name: "720p50", Width: 1280, Height: 720, Timebase: media.Timebase{Num: 1000, Den: 50000}},
	3:  {Name: "720p59.94", Width: 1280, Height: 720, Timebase: media.Timebase{Num: 1001, Den: 60000}},
	4:  {Name: "720p60", Width: 1280, Height: 720, Timebase: media.Timebase{Num: 1000, Den: 60000}},
	5:  {Name: "1080i50", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 25000}, Interlaced: true},
	6:  {Name: "1080i59.94", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1001, Den: 30000}, Interlaced: true},
	7:  {Name: "1080p23.98", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1001, Den: 24000}},
	8:  {Name: "1080p24", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 24000}},
	9:  {Name: "1080p25", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 25000}},
	10: {Name: "1080p29.97", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1001, Den: 30000}},
	11: {Name: "1080p30", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 30000}},
	12: {Name: "1080p50", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 50000}},
	13: {Name: "1080p59.94", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1001, Den: 60000}},
	14: {Name: "1080p60", Width: 1920, Height: 1080, Timebase: media.Timebase{Num: 1000, Den: 60000}},
}

// LookupMode resolves a display-mode number to its Mode.
func LookupMode(n int) (Mode, error) {
	m, ok := modes[n]
	if !ok {
		return Mode{}, fmt.Errorf("unknown display mode %d", n)
	}
	return m, nil
}

// AudioSampleRate is fixed by the capture hardware.
const AudioSampleRate = 48000

// AudioTimebase is the audio stream clock: one tick per sample.
var AudioTimebase = media.Timebase{Num: 1, Den: AudioSampleRate}
