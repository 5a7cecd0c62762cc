package capture

import (
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/reel/media"
	"github.com/zsiec/reel/queue"
)

// diagInterval is how many video frames pass between diagnostic log lines.
const diagInterval = 25

// Packager converts raw capture callbacks into queued packets. Both
// media paths share one queue. All methods are safe to call from the
// source's goroutines and never block.
type Packager struct {
	log     *slog.Logger
	q       *queue.Queue
	videoTB media.Timebase
	audioTB media.Timebase

	channels    int
	sampleDepth int

	// frames counts captured video frames. It feeds the frame-limit
	// check and the periodic diagnostics; both tolerate approximate
	// values, so a plain atomic is enough.
	frames  atomic.Uint64
	samples atomic.Uint64
	dropped atomic.Uint64
}

// NewPackager builds a packager bound to q. videoTB and audioTB are the
// time-bases of the registered output streams; channels and sampleDepth
// describe the PCM layout the audio source delivers.
func NewPackager(log *slog.Logger, q *queue.Queue, videoTB, audioTB media.Timebase, channels, sampleDepth int) *Packager {
	if log == nil {
		log = slog.Default()
	}
	return &Packager{
		log:         log.With("component", "packager"),
		q:           q,
		videoTB:     videoTB,
		audioTB:     audioTB,
		channels:    channels,
		sampleDepth: sampleDepth,
	}
}

// Callbacks returns the callback pair to hand to a Source.
func (p *Packager) Callbacks() Callbacks {
	return Callbacks{OnVideo: p.Video, OnAudio: p.Audio}
}

// Frames returns the captured video frame count.
func (p *Packager) Frames() uint64 {
	return p.frames.Load()
}

// Samples returns the captured audio sample count.
func (p *Packager) Samples() uint64 {
	return p.samples.Load()
}

// Dropped returns how many frames were discarded because the queue
// refused admission during shutdown.
func (p *Packager) Dropped() uint64 {
	return p.dropped.Load()
}

// Video packages one raw picture and enqueues it. The frame buffer is
// only valid during the call, so the payload is copied.
func (p *Packager) Video(f VideoFrame) {
	n := p.frames.Add(1)
	if n%diagInterval == 1 {
		p.log.Debug("frame received",
			"frame", n,
			"bytes", f.Stride*f.Height,
			"queue_mib", float64(p.q.Size())/(1<<20),
		)
	}

	data := make([]byte, f.Stride*f.Height)
	copy(data, f.Data)

	ts := p.videoTB.FromHardware(f.Timestamp)
	pkt := &media.Packet{
		Stream:   media.StreamVideo,
		Data:     data,
		PTS:      ts,
		DTS:      ts,
		Duration: p.videoTB.FromHardware(f.Duration),
		Keyframe: true,
	}
	if err := p.q.Put(pkt); err != nil {
		// Shutdown race: drop the frame rather than block the driver.
		p.dropped.Add(1)
		p.log.Debug("video frame dropped", "frame", n, "error", err)
	}
}

// Audio packages one block of PCM samples and enqueues it. Payload size
// is derived from the sample count and the configured channel layout;
// packet duration stays zero, the container times audio by sample count.
func (p *Packager) Audio(f AudioFrame) {
	p.samples.Add(uint64(f.Samples))

	size := f.Samples * p.channels * (p.sampleDepth / 8)
	if size > len(f.Data) {
		size = len(f.Data)
	}
	data := make([]byte, size)
	copy(data, f.Data[:size])

	ts := p.audioTB.FromHardware(f.Timestamp)
	pkt := &media.Packet{
		Stream:   media.StreamAudio,
		Data:     data,
		PTS:      ts,
		DTS:      ts,
		Keyframe: true,
	}
	if err := p.q.Put(pkt); err != nil {
		p.dropped.Add(1)
		p.log.Debug("audio frame dropped", "samples", f.Samples, "error", err)
	}
}
