// Command reel records a capture source to a container file on disk.
// Without capture hardware attached it records the built-in test signal,
// which exercises the full pipeline: callbacks, queue, writer, muxer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/reel/capture"
	"github.com/zsiec/reel/media"
	"github.com/zsiec/reel/mux"
	"github.com/zsiec/reel/pipeline"
)

var version = "dev"

func main() {
	var (
		outPath     = flag.String("f", "", "output file path (required)")
		formatName  = flag.String("F", "", "container format (default: guessed from the output extension)")
		modeNum     = flag.Int("m", 9, "display mode number (9 = 1080p25)")
		pixelDepth  = flag.Int("p", 8, "pixel format depth: 8 or 10 bits")
		channels    = flag.Int("c", 2, "audio channel count")
		sampleDepth = flag.Int("s", 16, "audio sample depth: 16 or 32 bits")
		maxFrames   = flag.Int64("n", 0, "stop after this many captured frames (0 = no limit)")
		memLimit    = flag.Int64("M", 1, "queue memory limit in GiB")
		instance    = flag.Int("C", -1, "capture device instance (-1 = built-in test signal)")
		videoConn   = flag.Int("V", 0, "video input connection")
		audioConn   = flag.Int("A", 0, "audio input connection")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// All configuration errors are fatal before any capture starts.
	if *outPath == "" {
		fatal("missing argument: specify the output path with -f")
	}
	switch *sampleDepth {
	case 16, 32:
	default:
		fatal("audio sample depth must be 16 or 32 bits, got %d", *sampleDepth)
	}

	var pixFmt media.PixelFormat
	switch *pixelDepth {
	case 8:
		pixFmt = media.UYVY422
	case 10:
		pixFmt = media.V210
	default:
		fatal("pixel format depth must be 8 or 10 bits, got %d", *pixelDepth)
	}

	mode, err := capture.LookupMode(*modeNum)
	if err != nil {
		fatal("%v", err)
	}

	format, err := mux.Guess(*formatName, *outPath)
	if err != nil {
		fatal("%v", err)
	}

	src, err := openSource(*instance, mode, *channels, *sampleDepth)
	if err != nil {
		fatal("%v", err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		fatal("create %s: %v", *outPath, err)
	}

	m := format.New(out)
	video, err := m.AddVideoStream(mux.VideoParams{
		Width:       mode.Width,
		Height:      mode.Height,
		PixelFormat: pixFmt,
		Timebase:    mode.Timebase,
	})
	if err != nil {
		fatal("register video stream: %v", err)
	}
	audio, err := m.AddAudioStream(mux.AudioParams{
		Channels:   *channels,
		SampleRate: capture.AudioSampleRate,
		BitDepth:   *sampleDepth,
		Timebase:   capture.AudioTimebase,
	})
	if err != nil {
		fatal("register audio stream: %v", err)
	}

	p := pipeline.New(slog.Default(), pipeline.Config{
		MaxFrames:   *maxFrames,
		MemoryLimit: *memLimit << 30,
		Channels:    *channels,
		SampleDepth: *sampleDepth,
	}, src, m, video, audio)

	slog.Info("reel starting",
		"version", version,
		"output", *outPath,
		"format", format.Name,
		"mode", mode.String(),
		"pixfmt", pixFmt.String(),
		"video_connection", *videoConn,
		"audio_connection", *audioConn,
		"session", p.SessionID(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, stopping capture", "signal", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(ctx)
	})

	err = g.Wait()
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", *outPath, cerr)
	}
	if err != nil {
		slog.Error("capture session failed", "error", err)
		os.Exit(1)
	}
}

// openSource resolves the capture device. Hardware drivers are external
// collaborators; the only instance compiled in is the test signal.
func openSource(instance int, mode capture.Mode, channels, sampleDepth int) (capture.Source, error) {
	if instance >= 0 {
		return nil, fmt.Errorf("no capture driver available for device instance %d (use -C -1 for the test signal)", instance)
	}
	return capture.NewSyntheticSource(mode, channels, sampleDepth), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
