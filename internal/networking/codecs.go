package networking

import (
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	// Clock rate of G.711 μ-law, fixed by RFC 3551
	PCMUSampleRate = 8000

	// Duration of audio carried by each sample written to the track
	PCMUFrameDuration = 20 * time.Millisecond

	// Samples (and therefore bytes) per PCMU frame
	PCMUFrameSamples = PCMUSampleRate * int(PCMUFrameDuration) / int(time.Second)
)

var (
	// Codec of the published voice track: mono G.711 μ-law
	CodecPCMU8000Mono = webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypePCMU,
		ClockRate: PCMUSampleRate,
		Channels:  1,
	}
)

// Create a local track carrying PCMU voice, for use with a LivePublisher.
func NewPCMUTrack(streamID string) (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(CodecPCMU8000Mono, "audio", streamID)
}
