// Package capture defines the contract between the pipeline and a frame
// source, packages raw callback frames into queueable packets, and ships
// a synthetic test-signal source for runs without hardware.
package capture

// VideoFrame is one raw picture as delivered by a capture driver. Data is
// valid only for the duration of the callback; anything kept must be
// copied. Timestamp and Duration are in the driver's hardware clock
// units (see media.Timebase.FromHardware).
type VideoFrame struct {
	Data      []byte
	Width     int
	Height    int
	Stride    int
	Timestamp int64
	Duration  int64
	Flags     uint32
}

// AudioFrame is one block of raw interleaved PCM samples. Data is valid
// only for the duration of the callback.
type AudioFrame struct {
	Data      []byte
	Samples   int
	Timestamp int64
	Flags     uint32
}

// Callbacks receive frames on the source's own goroutines, at capture
// rate. Implementations must not block: stalling the source risks
// dropped hardware frames.
type Callbacks struct {
	OnVideo func(VideoFrame)
	OnAudio func(AudioFrame)
}

// Source is a capture device. Start begins delivery of frames to the
// callbacks from the source's internal goroutines; Stop halts delivery
// and returns once no further callbacks will fire. Both are called from
// the pipeline's control goroutine.
type Source interface {
	Start(cb Callbacks) error
	Stop() error
}
