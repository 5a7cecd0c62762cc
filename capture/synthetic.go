package capture

import (
	"math"
	"sync"
	"time"
)

// SyntheticSource generates 75% color bars and a sine tone at a mode's
// native cadence, behind the same Source contract a hardware driver
// implements. Hardware timestamps advance by the time-base numerator per
// frame, mirroring how DeckLink drivers report frame times.
type SyntheticSource struct {
	mode        Mode
	channels    int
	sampleDepth int
	toneHz      float64

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSyntheticSource builds a test-signal source for the given mode and
// PCM layout. Only 8-bit UYVY picture output is generated.
func NewSyntheticSource(mode Mode, channels, sampleDepth int) *SyntheticSource {
	return &SyntheticSource{
		mode:        mode,
		channels:    channels,
		sampleDepth: sampleDepth,
		toneHz:      1000,
	}
}

// bar75 holds the UYVY macropixels (U Y V Y) of the seven 75% bars:
// white, yellow, cyan, green, magenta, red, blue.
var bar75 = [7][4]byte{
	{0x80, 0xb4, 0x80, 0xb4},
	{0x58, 0xa8, 0x88, 0xa8},
	{0xa0, 0x8a, 0x2c, 0x8a},
	{0x78, 0x7e, 0x34, 0x7e},
	{0x88, 0x48, 0xcc, 0x48},
	{0x60, 0x3c, 0xd4, 0x3c},
	{0xa8, 0x20, 0x78, 0x20},
}

// barFrame renders one static UYVY bar picture.
func barFrame(width, height, stride int) []byte {
	row := make([]byte, stride)
	for x := 0; x < width; x += 2 {
		bar := x * 7 / width
		copy(row[x*2:], bar75[bar][:])
	}
	frame := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		copy(frame[y*stride:], row)
	}
	return frame
}

// Start launches the generator goroutine. Frames are delivered from that
// goroutine until Stop.
func (s *SyntheticSource) Start(cb Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(cb, s.stop, s.stopped)
	return nil
}

// Stop halts the generator and returns once no further callbacks will
// fire.
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-stopped
	return nil
}

func (s *SyntheticSource) run(cb Callbacks, stop, stopped chan struct{}) {
	defer close(stopped)

	mode := s.mode
	stride := 2 * mode.Width
	frame := barFrame(mode.Width, mode.Height, stride)
	interval := time.Duration(float64(time.Second) * float64(mode.Timebase.Num) / float64(mode.Timebase.Den))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameIdx, samplePos int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if cb.OnVideo != nil {
			cb.OnVideo(VideoFrame{
				Data:      frame,
				Width:     mode.Width,
				Height:    mode.Height,
				Stride:    stride,
				Timestamp: frameIdx * int64(mode.Timebase.Num),
				Duration:  int64(mode.Timebase.Num),
			})
		}

		if cb.OnAudio != nil {
			// One video frame's worth of audio keeps the streams in step.
			samples := int(int64(AudioSampleRate)*(frameIdx+1)*int64(mode.Timebase.Num)/int64(mode.Timebase.Den)) - int(samplePos)
			cb.OnAudio(AudioFrame{
				Data:      s.tone(samplePos, samples),
				Samples:   samples,
				Timestamp: samplePos,
			})
			samplePos += int64(samples)
		}
		frameIdx++
	}
}

// tone renders n interleaved PCM samples of the test tone starting at
// sample position pos.
func (s *SyntheticSource) tone(pos int64, n int) []byte {
	bytesPer := s.sampleDepth / 8
	out := make([]byte, n*s.channels*bytesPer)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * s.toneHz * float64(pos+int64(i)) / AudioSampleRate)
		off := i * s.channels * bytesPer
		for c := 0; c < s.channels; c++ {
			o := off + c*bytesPer
			if s.sampleDepth == 16 {
				sample := int16(v * 0.5 * math.MaxInt16)
				out[o] = byte(sample)
				out[o+1] = byte(sample >> 8)
			} else {
				sample := int32(v * 0.5 * math.MaxInt32)
				out[o] = byte(sample)
				out[o+1] = byte(sample >> 8)
				out[o+2] = byte(sample >> 16)
				out[o+3] = byte(sample >> 24)
			}
		}
	}
	return out
}
