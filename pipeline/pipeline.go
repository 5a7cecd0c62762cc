// Package pipeline wires a capture source, the packet queue, and a muxer
// into a single recording session: packagers feed the queue from the
// source's goroutines, one writer goroutine drains it to the muxer, and
// threshold policy turns a frame-count or queue-memory ceiling into a
// one-shot stop signal for the control goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zsiec/reel/capture"
	"github.com/zsiec/reel/mux"
	"github.com/zsiec/reel/queue"
)

// DefaultMemoryLimit bounds queue growth when the disk cannot keep up:
// 1 GiB, roughly 50 seconds of SD capture.
const DefaultMemoryLimit = 1 << 30

// Config carries the recording session parameters.
type Config struct {
	// MaxFrames stops the session once the capture counter passes it.
	// Zero or negative disables the check.
	MaxFrames int64

	// MemoryLimit stops the session once the queue's byte accounting
	// exceeds it. Zero selects DefaultMemoryLimit. The limit is
	// advisory: admission is never refused, the whole pipeline stops
	// instead, because blocking a capture callback risks dropped
	// hardware frames.
	MemoryLimit int64

	Channels    int
	SampleDepth int
}

// StopReason says why the session ended.
type StopReason string

const (
	StopNone       StopReason = ""
	StopFrameLimit StopReason = "frame limit reached"
	StopMemLimit   StopReason = "memory limit reached"
	StopRequested  StopReason = "stop requested"
)

// Pipeline owns one capture session end to end: queue, packager, writer
// goroutine, and the stop signal. Construct with New, then Start/Stop or
// Run.
type Pipeline struct {
	log *slog.Logger
	id  string
	cfg Config

	src capture.Source
	mx  mux.Muxer
	q   *queue.Queue
	pk  *capture.Packager

	done       chan struct{}
	stopOnce   sync.Once
	reason     atomic.Value // StopReason
	writerDone chan struct{}
	started    bool
	stopped    bool

	written   atomic.Int64
	bytesOut  atomic.Int64
	writeErrs atomic.Int64
}

// New builds a pipeline over an already-registered muxer. video and
// audio are the stream handles returned by registration; audio may be
// nil for a video-only session.
func New(log *slog.Logger, cfg Config, src capture.Source, mx mux.Muxer, video, audio *mux.Stream) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}

	id := uuid.NewString()
	log = log.With("component", "pipeline", "session", id)

	q := queue.New()
	audioTB := capture.AudioTimebase
	if audio != nil {
		audioTB = audio.Timebase
	}

	return &Pipeline{
		log:        log,
		id:         id,
		cfg:        cfg,
		src:        src,
		mx:         mx,
		q:          q,
		pk:         capture.NewPackager(log, q, video.Timebase, audioTB, cfg.Channels, cfg.SampleDepth),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// SessionID returns the unique id attached to this session's logs.
func (p *Pipeline) SessionID() string { return p.id }

// Done is the shutdown signal: closed exactly once, by whichever
// threshold fires first or by an explicit Stop. The control goroutine
// blocks on it after Start.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Reason reports why the signal fired. Valid once Done is closed.
func (p *Pipeline) Reason() StopReason {
	r, _ := p.reason.Load().(StopReason)
	return r
}

// Start writes the container header, launches the writer goroutine, and
// starts the capture source.
func (p *Pipeline) Start() error {
	if p.started {
		return errors.New("pipeline already started")
	}
	p.started = true

	if err := p.mx.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	go p.writeLoop()

	if err := p.src.Start(p.pk.Callbacks()); err != nil {
		p.q.Close()
		<-p.writerDone
		return fmt.Errorf("start capture: %w", err)
	}

	p.log.Info("capture started",
		"max_frames", p.cfg.MaxFrames,
		"memory_limit_mib", p.cfg.MemoryLimit>>20,
	)
	return nil
}

// writeLoop is the consumer: it drains the queue into the muxer one
// packet at a time and evaluates the stop thresholds after every write.
// It exits only when the queue reports closed and drained.
func (p *Pipeline) writeLoop() {
	defer close(p.writerDone)

	for {
		pkt, ok := p.q.Get(true)
		if !ok {
			return
		}

		if err := p.mx.WritePacket(pkt); err != nil {
			// Best-effort capture: one failed write must not abort
			// the session.
			p.writeErrs.Add(1)
			p.log.Warn("mux write failed", "stream", pkt.Stream, "pts", pkt.PTS, "error", err)
		} else {
			p.written.Add(1)
			p.bytesOut.Add(int64(len(pkt.Data)))
		}

		if p.cfg.MaxFrames > 0 && p.pk.Frames() > uint64(p.cfg.MaxFrames) {
			p.signalStop(StopFrameLimit)
		}
		if p.q.Size() > p.cfg.MemoryLimit {
			p.signalStop(StopMemLimit)
		}
	}
}

// signalStop closes the done channel once. It never interrupts the
// writer: the queue keeps draining until teardown closes it.
func (p *Pipeline) signalStop(r StopReason) {
	p.stopOnce.Do(func() {
		p.reason.Store(r)
		p.log.Info("stopping capture", "reason", string(r))
		close(p.done)
	})
}

// Stop tears the session down in order: stop the source so no further
// packets are admitted, close the queue, wait for the writer to drain
// it, then finalize the container. Safe to call once Start succeeded;
// finalization is attempted even when the source fails to stop.
func (p *Pipeline) Stop() error {
	if p.stopped {
		return nil
	}
	p.stopped = true
	p.signalStop(StopRequested)

	var errs []error
	if err := p.src.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop capture: %w", err))
	}

	p.q.Close()
	<-p.writerDone
	p.q.Flush()

	if err := p.mx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("finalize output: %w", err))
	}

	s := p.Stats()
	p.log.Info("capture finished",
		"frames", s.FramesCaptured,
		"packets_written", s.PacketsWritten,
		"bytes_written", s.BytesWritten,
		"write_errors", s.WriteErrors,
		"dropped", s.FramesDropped,
		"reason", string(p.Reason()),
	)
	return errors.Join(errs...)
}

// Run drives a whole session: Start, block until a threshold fires or
// ctx is cancelled, then Stop. This is the shape cmd/reel uses.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}

	select {
	case <-p.done:
	case <-ctx.Done():
	}
	return p.Stop()
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	SessionID      string
	FramesCaptured uint64
	AudioSamples   uint64
	FramesDropped  uint64
	PacketsWritten int64
	BytesWritten   int64
	WriteErrors    int64
	QueueDepth     int
	QueueBytes     int64
	Reason         StopReason
}

// Stats returns the current session counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		SessionID:      p.id,
		FramesCaptured: p.pk.Frames(),
		AudioSamples:   p.pk.Samples(),
		FramesDropped:  p.pk.Dropped(),
		PacketsWritten: p.written.Load(),
		BytesWritten:   p.bytesOut.Load(),
		WriteErrors:    p.writeErrs.Load(),
		QueueDepth:     p.q.Len(),
		QueueBytes:     p.q.Size(),
		Reason:         p.Reason(),
	}
}
