package networking

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oov/audio/resampler"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

const (
	// Resampler quality, 0 (fastest) to 10 (best)
	publisherResampleQuality = 4
)

var (
	errUnsupportedFormat = errors.New("live stream format cannot be published as PCMU")
)

// Source of live PCM chunks, such as a capture.StreamHandle.
//
// ReadChunk blocks for the next chunk and returns io.EOF once the stream has ended.
type ChunkReader interface {
	ReadChunk(ctx context.Context) ([]byte, error)
	Format() audiodevice.CaptureFormat
}

// Destination of encoded media, such as a *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(sample media.Sample) error
}

// LivePublisher moves a live capture stream onto a PCMU track.
//
// Chunks are decoded from the capture format, downsampled to 8kHz, μ-law encoded,
// and written as 20ms samples. A partial frame is held until the next chunk completes it.
type LivePublisher struct {
	logger *slog.Logger
	uuid   uuid.UUID

	source ChunkReader
	sink   SampleWriter
	format audiodevice.CaptureFormat

	// Byte of an incomplete sample carried over to the next chunk
	partial []byte

	resampler *resampler.Resampler
	// Scratch space for the resampler output
	resampled []float32
	// Downsampled audio not yet making up a whole frame
	pending []float32

	// float32 bits of the gain applied before encoding
	volume atomic.Uint32

	framesWritten atomic.Int64
}

func NewLivePublisher(source ChunkReader, sink SampleWriter) (*LivePublisher, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"live publisher uuid", uuid,
	)

	format := source.Format()
	if format.BitDepth != 16 || format.NumChannels != 1 || format.SampleRate < PCMUSampleRate {
		logger.Error(
			"cannot publish stream",
			"sampleRate", format.SampleRate,
			"bitDepth", format.BitDepth,
			"channels", format.NumChannels,
		)
		return nil, errUnsupportedFormat
	}

	p := &LivePublisher{
		logger: logger,
		uuid:   uuid,
		source: source,
		sink:   sink,
		format: format,
	}
	p.volume.Store(math.Float32bits(1))
	if format.SampleRate != PCMUSampleRate {
		p.resampler = resampler.New(1, format.SampleRate, PCMUSampleRate, publisherResampleQuality)
	}
	return p, nil
}

// Publish until the source ends (returning nil), the context is cancelled,
// or the sink fails.
func (p *LivePublisher) Run(ctx context.Context) error {
	p.logger.Debug("publishing live stream")
	for {
		chunk, err := p.source.ReadChunk(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.logger.Debug("publishing cancelled", "framesWritten", p.framesWritten.Load())
				return err
			}
			p.logger.Debug("live stream ended", "framesWritten", p.framesWritten.Load(), "err", err)
			return nil
		}

		if err := p.publish(chunk); err != nil {
			p.logger.Error("failed to write sample", "err", err)
			return err
		}
	}
}

// Set the gain applied to published audio: 0 mutes, 1 leaves audio unchanged.
// There is no upper bound, but loud audio will clip. Safe to call while running.
func (p *LivePublisher) SetVolume(volume float32) {
	p.volume.Store(math.Float32bits(max(0, volume)))
}

func (p *LivePublisher) Volume() float32 {
	return math.Float32frombits(p.volume.Load())
}

// Number of 20ms frames written so far.
func (p *LivePublisher) FramesWritten() int64 {
	return p.framesWritten.Load()
}

func (p *LivePublisher) publish(chunk []byte) error {
	data := chunk
	if len(p.partial) > 0 {
		data = append(p.partial, chunk...)
		p.partial = nil
	}
	if len(data)%2 == 1 {
		p.partial = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(p.format.ByteOrder.Uint16(data[2*i:]))) / -math.MinInt16
	}
	p.downsample(samples)

	gain := p.Volume() * -math.MinInt16
	for len(p.pending) >= PCMUFrameSamples {
		frame := make([]byte, PCMUFrameSamples)
		for i, s := range p.pending[:PCMUFrameSamples] {
			v := max(math.MinInt16, min(math.MaxInt16, s*gain))
			frame[i] = linearToMulaw(int16(v))
		}
		p.pending = p.pending[PCMUFrameSamples:]

		if err := p.sink.WriteSample(media.Sample{
			Data:     frame,
			Duration: PCMUFrameDuration,
		}); err != nil {
			return err
		}
		p.framesWritten.Add(1)
	}

	// Release the consumed prefix
	p.pending = append([]float32(nil), p.pending...)
	return nil
}

func (p *LivePublisher) downsample(samples []float32) {
	if p.resampler == nil {
		p.pending = append(p.pending, samples...)
		return
	}

	need := len(samples)*PCMUSampleRate/p.format.SampleRate + 64
	if cap(p.resampled) < need {
		p.resampled = make([]float32, need)
	}
	out := p.resampled[:need]

	for len(samples) > 0 {
		read, written := p.resampler.ProcessFloat32(0, samples, out)
		p.pending = append(p.pending, out[:written]...)
		if read == 0 {
			return
		}
		samples = samples[read:]
	}
}
