package device

import (
	"encoding/binary"
	"testing"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/stretchr/testify/assert"
)

func TestDownmixToMonoAveragesChannels(t *testing.T) {
	stereo := []float32{0.5, -0.5, 1, 0, 0.25, 0.75}
	assert.Equal(t, []float32{0, 0.5, 0.5}, downmixToMono(2)(stereo))
}

func TestNoConversionForMatchingFormat(t *testing.T) {
	chain := newSampleConversionChain(audiodevice.VoiceFormat.Properties(), audiodevice.VoiceFormat)
	assert.Empty(t, chain)
}

func TestConversionChainOrder(t *testing.T) {
	chain := newSampleConversionChain(audiodevice.DeviceProperties{SampleRate: 48000, NumChannels: 2}, audiodevice.VoiceFormat)
	assert.Len(t, chain, 2)
}

func TestResampleHalvesLength(t *testing.T) {
	samples := make([]float32, 3200)
	out := newResampleFunction(32000, 16000)(samples)
	assert.InDelta(t, 1600, len(out), 80)
}

func TestPCMByteOrder(t *testing.T) {
	format := audiodevice.VoiceFormat

	pcm := floatSamplesToPCM([]float32{0.5, -1}, format)
	assert.Equal(t, []byte{0x40, 0x00, 0x80, 0x00}, pcm)
	assert.Equal(t, []int{16384, -32768}, pcmToIntSamples(pcm, format))

	format.ByteOrder = binary.LittleEndian
	assert.Equal(t, []byte{0x00, 0x40, 0x00, 0x80}, floatSamplesToPCM([]float32{0.5, -1}, format))
}

func TestFloatToPCMClamps(t *testing.T) {
	pcm := floatSamplesToPCM([]float32{2, -2}, audiodevice.VoiceFormat)
	assert.Equal(t, []int{32767, -32768}, pcmToIntSamples(pcm, audiodevice.VoiceFormat))
}

func TestIntToFloatScalesByBitDepth(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1}, intToFloatSamples([]int{16384, -32768}, 16))
	assert.Equal(t, []float32{0.5}, intToFloatSamples([]int{64}, 8))
}
