package device

import (
	"log/slog"
	"math"

	"github.com/oov/audio/resampler"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

const (
	// Resampler quality, 0 (fastest) to 10 (best)
	resampleQuality = 10
)

// Conversion steps used to bring a recorded source (e.g. a .WAV file) into
// a CaptureFormat before it is served from a LineDevice.
//
// Samples are interleaved float32 in [-1, 1].
type sampleConversionFunction func(samples []float32) []float32

// Build the chain of conversions taking audio with sourceProperties to the
// sample rate and channel count of format.
//
// Only downmixing is supported, since every CaptureFormat this module uses is mono.
func newSampleConversionChain(
	sourceProperties audiodevice.DeviceProperties,
	format audiodevice.CaptureFormat,
) []sampleConversionFunction {
	conversionFunctions := make([]sampleConversionFunction, 0)

	if sourceProperties.NumChannels > 1 && format.NumChannels == 1 {
		slog.Debug("adding downmix to mono", "sourceChannels", sourceProperties.NumChannels)
		conversionFunctions = append(conversionFunctions, downmixToMono(sourceProperties.NumChannels))
	}
	if sourceProperties.SampleRate != format.SampleRate {
		slog.Debug(
			"adding resampler",
			"sourceSampleRate", sourceProperties.SampleRate,
			"sinkSampleRate", format.SampleRate,
		)
		conversionFunctions = append(conversionFunctions, newResampleFunction(sourceProperties.SampleRate, format.SampleRate))
	}

	return conversionFunctions
}

func convertSamples(samples []float32, chain []sampleConversionFunction) []float32 {
	for _, f := range chain {
		samples = f(samples)
	}
	return samples
}

func downmixToMono(numChannels int) sampleConversionFunction {
	return func(samples []float32) []float32 {
		numFrames := len(samples) / numChannels
		mono := make([]float32, numFrames)
		for i := range numFrames {
			var sum float32
			for c := range numChannels {
				sum += samples[i*numChannels+c]
			}
			mono[i] = sum / float32(numChannels)
		}
		return mono
	}
}

// Resample mono audio from one rate to another.
func newResampleFunction(sourceRate int, sinkRate int) sampleConversionFunction {
	return func(samples []float32) []float32 {
		r := resampler.New(1, sourceRate, sinkRate, resampleQuality)
		// A little headroom for the resampler's rounding
		out := make([]float32, len(samples)*sinkRate/sourceRate+64)
		_, written := r.ProcessFloat32(0, samples, out)
		return out[:written]
	}
}

// Scale integer PCM of the given bit depth into float32 in [-1, 1].
func intToFloatSamples(data []int, bitDepth int) []float32 {
	scale := float32(math.Pow(2, float64(bitDepth-1)))
	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = float32(v) / scale
	}
	return samples
}

// Encode float32 samples as 16-bit PCM bytes in the byte order of format.
func floatSamplesToPCM(samples []float32, format audiodevice.CaptureFormat) []byte {
	const scale = float32(-math.MinInt16)
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := max(math.MinInt16, min(math.MaxInt16, s*scale))
		format.ByteOrder.PutUint16(pcm[2*i:], uint16(int16(v)))
	}
	return pcm
}

// Decode 16-bit PCM bytes (in the byte order of format) into integer samples.
// A trailing partial sample is ignored.
func pcmToIntSamples(pcm []byte, format audiodevice.CaptureFormat) []int {
	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(format.ByteOrder.Uint16(pcm[2*i:])))
	}
	return data
}
