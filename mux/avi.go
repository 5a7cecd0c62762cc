package mux

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zsiec/reel/media"
)

// AVI carries raw 4:2:2 video and PCM natively, which is exactly what a
// capture session produces, so it is the default container.

func init() {
	Register(Format{
		Name:       "avi",
		Extensions: []string{"avi"},
		New:        func(w io.WriteSeeker) Muxer { return NewAVI(w) },
	})
}

const aviKeyframeFlag = 0x10 // AVIIF_KEYFRAME

type idxEntry struct {
	id     [4]byte
	offset uint32
	size   uint32
}

// AVIMuxer writes a RIFF/AVI file: hdrl stream headers, movi data chunks
// in arrival order, and an idx1 index. Sizes and frame counts unknown
// until the end are patched on Close by seeking back into the header.
type AVIMuxer struct {
	w *chunkWriter

	video *Stream
	audio *Stream

	vp VideoParams
	ap AudioParams

	headerDone  bool
	closed      bool
	videoFrames uint32
	audioBytes  uint32

	idx       []idxEntry
	moviStart int64

	// patch positions recorded while writing the header
	riffSizePos    int64
	totalFramesPos int64
	videoLenPos    int64
	audioLenPos    int64
	moviSizePos    int64
}

// NewAVI returns an AVI muxer writing to w. The caller owns the
// underlying file and closes it after Close.
func NewAVI(w io.WriteSeeker) *AVIMuxer {
	return &AVIMuxer{w: &chunkWriter{w: w}}
}

func (m *AVIMuxer) AddVideoStream(p VideoParams) (*Stream, error) {
	if m.headerDone {
		return nil, errors.New("avi: stream registration after header")
	}
	if m.video != nil {
		return nil, errors.New("avi: video stream already registered")
	}
	m.vp = p
	m.video = &Stream{Tag: media.StreamVideo, Timebase: p.Timebase, index: 0}
	return m.video, nil
}

func (m *AVIMuxer) AddAudioStream(p AudioParams) (*Stream, error) {
	if m.headerDone {
		return nil, errors.New("avi: stream registration after header")
	}
	if m.audio != nil {
		return nil, errors.New("avi: audio stream already registered")
	}
	switch p.BitDepth {
	case 16, 32:
	default:
		return nil, fmt.Errorf("avi: unsupported PCM bit depth %d", p.BitDepth)
	}
	m.ap = p
	m.audio = &Stream{Tag: media.StreamAudio, Timebase: p.Timebase, index: 1}
	return m.audio, nil
}

// WriteHeader emits the RIFF header and the hdrl list. Must be called
// once, after stream registration and before the first packet.
func (m *AVIMuxer) WriteHeader() error {
	if m.headerDone {
		return errors.New("avi: header already written")
	}
	if m.video == nil {
		return errors.New("avi: no video stream registered")
	}

	w := m.w
	streams := uint32(1)
	if m.audio != nil {
		streams = 2
	}

	w.fourcc("RIFF")
	m.riffSizePos = w.pos
	w.u32(0) // patched on Close
	w.fourcc("AVI ")

	hdrl := w.beginList("hdrl")

	// avih: main header
	w.fourcc("avih")
	w.u32(56)
	tb := m.vp.Timebase
	w.u32(uint32(int64(tb.Num) * 1_000_000 / int64(tb.Den))) // µs per frame
	w.u32(0)                                                 // max bytes/sec
	w.u32(0)                                                 // padding granularity
	w.u32(0x10 | 0x100)                                      // HASINDEX | ISINTERLEAVED
	m.totalFramesPos = w.pos
	w.u32(0) // total frames, patched on Close
	w.u32(0) // initial frames
	w.u32(streams)
	w.u32(uint32(m.vp.PixelFormat.FrameSize(m.vp.Width, m.vp.Height)))
	w.u32(uint32(m.vp.Width))
	w.u32(uint32(m.vp.Height))
	w.u32(0)
	w.u32(0)
	w.u32(0)
	w.u32(0)

	m.writeVideoStrl()
	if m.audio != nil {
		m.writeAudioStrl()
	}

	w.endList(hdrl)

	m.moviSizePos = w.beginList("movi")
	m.moviStart = w.pos

	m.headerDone = true
	return w.err
}

func (m *AVIMuxer) writeVideoStrl() {
	w := m.w
	strl := w.beginList("strl")

	fcc := m.vp.PixelFormat.FourCC()
	frameSize := uint32(m.vp.PixelFormat.FrameSize(m.vp.Width, m.vp.Height))

	w.fourcc("strh")
	w.u32(56)
	w.fourcc("vids")
	w.bytes(fcc[:])
	w.u32(0) // flags
	w.u16(0) // priority
	w.u16(0) // language
	w.u32(0) // initial frames
	w.u32(uint32(m.vp.Timebase.Num)) // scale
	w.u32(uint32(m.vp.Timebase.Den)) // rate
	w.u32(0)                         // start
	m.videoLenPos = w.pos
	w.u32(0) // length in frames, patched on Close
	w.u32(frameSize)
	w.u32(0xFFFFFFFF) // quality
	w.u32(0)          // sample size: variable
	w.u16(0)          // rcFrame
	w.u16(0)
	w.u16(uint16(m.vp.Width))
	w.u16(uint16(m.vp.Height))

	// strf: BITMAPINFOHEADER
	w.fourcc("strf")
	w.u32(40)
	w.u32(40)
	w.u32(uint32(m.vp.Width))
	w.u32(uint32(m.vp.Height))
	w.u16(1) // planes
	bitCount := uint16(16)
	if m.vp.PixelFormat == media.V210 {
		bitCount = 20
	}
	w.u16(bitCount)
	w.bytes(fcc[:]) // compression
	w.u32(frameSize)
	w.u32(0)
	w.u32(0)
	w.u32(0)
	w.u32(0)

	w.endList(strl)
}

func (m *AVIMuxer) writeAudioStrl() {
	w := m.w
	strl := w.beginList("strl")

	blockAlign := uint32(m.ap.Channels * m.ap.BitDepth / 8)
	byteRate := blockAlign * uint32(m.ap.SampleRate)

	w.fourcc("strh")
	w.u32(56)
	w.fourcc("auds")
	w.u32(1) // handler: PCM
	w.u32(0)
	w.u16(0)
	w.u16(0)
	w.u32(0)
	w.u32(1) // scale
	w.u32(uint32(m.ap.SampleRate)) // rate
	w.u32(0)
	m.audioLenPos = w.pos
	w.u32(0) // length in samples, patched on Close
	w.u32(byteRate)
	w.u32(0xFFFFFFFF)
	w.u32(blockAlign)
	w.u16(0)
	w.u16(0)
	w.u16(0)
	w.u16(0)

	// strf: WAVEFORMATEX, PCM
	w.fourcc("strf")
	w.u32(18)
	w.u16(1) // WAVE_FORMAT_PCM
	w.u16(uint16(m.ap.Channels))
	w.u32(uint32(m.ap.SampleRate))
	w.u32(byteRate)
	w.u16(uint16(blockAlign))
	w.u16(uint16(m.ap.BitDepth))
	w.u16(0) // cbSize

	w.endList(strl)
}

// WritePacket appends one packet as a movi chunk and records its index
// entry. Chunks land in call order; AVI derives timing from stream
// headers and chunk sequence.
func (m *AVIMuxer) WritePacket(pkt *media.Packet) error {
	if !m.headerDone {
		return errors.New("avi: packet before header")
	}
	if m.closed {
		return errors.New("avi: packet after close")
	}

	var id [4]byte
	switch pkt.Stream {
	case media.StreamVideo:
		id = [4]byte{'0', '0', 'd', 'b'}
		m.videoFrames++
	case media.StreamAudio:
		if m.audio == nil {
			return errors.New("avi: audio packet without audio stream")
		}
		id = [4]byte{'0', '1', 'w', 'b'}
		m.audioBytes += uint32(len(pkt.Data))
	default:
		return fmt.Errorf("avi: unknown stream tag %v", pkt.Stream)
	}

	w := m.w
	// idx1 offsets are relative to the 'movi' fourcc.
	offset := uint32(w.pos - m.moviStart + 4)

	w.bytes(id[:])
	w.u32(uint32(len(pkt.Data)))
	w.bytes(pkt.Data)
	if len(pkt.Data)%2 == 1 {
		w.bytes([]byte{0})
	}

	m.idx = append(m.idx, idxEntry{id: id, offset: offset, size: uint32(len(pkt.Data))})
	return w.err
}

// Close writes the idx1 index, patches the deferred sizes and counts,
// and finalizes the file. The underlying writer is not closed.
func (m *AVIMuxer) Close() error {
	if !m.headerDone {
		return errors.New("avi: close before header")
	}
	if m.closed {
		return nil
	}
	m.closed = true

	w := m.w
	moviEnd := w.pos

	w.fourcc("idx1")
	w.u32(uint32(len(m.idx) * 16))
	for _, e := range m.idx {
		w.bytes(e.id[:])
		w.u32(aviKeyframeFlag)
		w.u32(e.offset)
		w.u32(e.size)
	}
	end := w.pos

	w.patchU32(m.riffSizePos, uint32(end-8))
	w.patchU32(m.totalFramesPos, m.videoFrames)
	w.patchU32(m.videoLenPos, m.videoFrames)
	if m.audio != nil {
		blockAlign := uint32(m.ap.Channels * m.ap.BitDepth / 8)
		w.patchU32(m.audioLenPos, m.audioBytes/blockAlign)
	}
	// movi list size covers the fourcc plus all chunks.
	w.patchU32(m.moviSizePos, uint32(moviEnd-m.moviStart+4))

	w.seek(end)
	return w.err
}

// chunkWriter tracks the write position and folds errors so header
// construction reads linearly. All RIFF values are little-endian.
type chunkWriter struct {
	w   io.WriteSeeker
	pos int64
	err error
}

func (c *chunkWriter) bytes(b []byte) {
	if c.err != nil {
		return
	}
	n, err := c.w.Write(b)
	c.pos += int64(n)
	c.err = err
}

func (c *chunkWriter) fourcc(s string) { c.bytes([]byte(s)) }

func (c *chunkWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	c.bytes(b[:])
}

func (c *chunkWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	c.bytes(b[:])
}

// beginList opens a LIST chunk and returns the position of its size
// field for endList to patch.
func (c *chunkWriter) beginList(kind string) int64 {
	c.fourcc("LIST")
	sizePos := c.pos
	c.u32(0)
	c.fourcc(kind)
	return sizePos
}

func (c *chunkWriter) endList(sizePos int64) {
	end := c.pos
	c.patchU32(sizePos, uint32(end-sizePos-4))
	c.seek(end)
}

func (c *chunkWriter) patchU32(pos int64, v uint32) {
	if c.err != nil {
		return
	}
	if _, err := c.w.Seek(pos, io.SeekStart); err != nil {
		c.err = err
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := c.w.Write(b[:]); err != nil {
		c.err = err
	}
	// pos deliberately untouched; callers seek() back to the tail.
}

func (c *chunkWriter) seek(pos int64) {
	if c.err != nil {
		return
	}
	if _, err := c.w.Seek(pos, io.SeekStart); err != nil {
		c.err = err
		return
	}
	c.pos = pos
}
