// Package mux defines the container-writer contract the pipeline drains
// into, and a format registry that resolves an output container by name
// or by output-path extension.
package mux

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/zsiec/reel/media"
)

// VideoParams describes the raw video stream to register.
type VideoParams struct {
	Width       int
	Height      int
	PixelFormat media.PixelFormat
	Timebase    media.Timebase
}

// AudioParams describes the PCM audio stream to register.
type AudioParams struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Timebase   media.Timebase
}

// Stream is the handle returned by stream registration. Timebase is the
// clock the muxer adopted for the stream; packagers rescale into it.
type Stream struct {
	Tag      media.StreamTag
	Timebase media.Timebase
	index    int
}

// Muxer serializes tagged, timestamped packets into a container.
// Registration happens before WriteHeader; WriteHeader and Close are
// each called exactly once. WritePacket is called from a single
// goroutine, in arrival order; the muxer owns final on-disk ordering.
type Muxer interface {
	AddVideoStream(VideoParams) (*Stream, error)
	AddAudioStream(AudioParams) (*Stream, error)
	WriteHeader() error
	WritePacket(*media.Packet) error
	Close() error
}

// Format is a registered container format.
type Format struct {
	Name       string
	Extensions []string
	New        func(w io.WriteSeeker) Muxer
}

var formats []Format

// Register adds a format to the registry. Called from format package
// init functions.
func Register(f Format) {
	formats = append(formats, f)
}

// Guess resolves a container format. An explicit name wins; otherwise
// the output path's extension decides.
func Guess(name, path string) (Format, error) {
	if name != "" {
		for _, f := range formats {
			if f.Name == name {
				return f, nil
			}
		}
		return Format{}, fmt.Errorf("unknown container format %q", name)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, nil
			}
		}
	}
	return Format{}, fmt.Errorf("cannot guess container format from %q, specify one explicitly", path)
}
