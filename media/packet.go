// Package media defines the packet type that flows through the capture
// pipeline, the stream time-base arithmetic, and the raw pixel format
// geometry shared by the capture and mux layers.
package media

// StreamTag classifies a packet as belonging to the video or audio
// output stream.
type StreamTag int

const (
	StreamVideo StreamTag = iota
	StreamAudio
)

func (t StreamTag) String() string {
	switch t {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// packetOverhead approximates the per-packet bookkeeping cost (struct,
// queue node) counted on top of the payload for memory accounting.
const packetOverhead = 64

// Packet is one captured media unit awaiting write: an owned payload plus
// the timing the muxer needs to place it in the container. The packet owns
// Data from enqueue until the writer loop hands it to the muxer.
type Packet struct {
	Stream StreamTag
	Data   []byte

	// PTS and DTS are equal for raw capture (no reordering) and are
	// expressed in the destination stream's time-base ticks.
	PTS int64
	DTS int64

	// Duration in stream ticks. Zero for audio packets: the container
	// derives audio timing from the sample count.
	Duration int64

	// Keyframe is set on every raw packet; uncompressed frames are
	// independently decodable.
	Keyframe bool
}

// Size returns the number of bytes this packet contributes to queue
// memory accounting: payload plus fixed per-packet overhead.
func (p *Packet) Size() int {
	return len(p.Data) + packetOverhead
}
