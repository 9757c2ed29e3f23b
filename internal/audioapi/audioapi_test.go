package audioapi

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/audiodevice/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAudioBackend(t *testing.T) {
	tests := []struct {
		name     string
		expected AudioBackendEnum
	}{
		{"portaudio", AUDIO_BACKEND_PORTAUDIO},
		{"File", AUDIO_BACKEND_FILE},
		{" dummy ", AUDIO_BACKEND_DUMMY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := ParseAudioBackend(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, backend)
		})
	}

	_, err := ParseAudioBackend("alsa")
	assert.ErrorIs(t, err, errUnknownBackend)
	assert.Equal(t, "file", AUDIO_BACKEND_FILE.String())
}

func TestDummyAPIOpensSilentLine(t *testing.T) {
	api, err := NewAudioIODeviceAPI(AUDIO_BACKEND_DUMMY, BackendOptions{BufferFrames: 1600})
	require.NoError(t, err)

	inputs := api.InputDevices()
	require.Len(t, inputs, 1)
	assert.Equal(t, "DummyInput", inputs[0].Name)

	line, err := NewLineOpener(api, &inputs[0]).OpenLine(audiodevice.VoiceFormat)
	require.NoError(t, err)
	defer line.Close()
	assert.Equal(t, 3200, line.BufferSize())

	_, err = api.OpenInputLine(AudioIODevice{ID: 3}, audiodevice.VoiceFormat)
	assert.ErrorIs(t, err, errNoDeviceWithID)
}

func TestFileAPIServesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.wav")
	pcm := []byte{0x00, 0x01, 0x00, 0x02}
	require.NoError(t, device.WriteWAVFile(path, audiodevice.VoiceFormat, pcm))

	api, err := NewAudioIODeviceAPI(AUDIO_BACKEND_FILE, BackendOptions{BufferFrames: 10, InputFile: path})
	require.NoError(t, err)
	require.Len(t, api.InputDevices(), 1)
	assert.Equal(t, "input.wav", api.InputDevices()[0].Name)

	line, err := NewLineOpener(api, nil).OpenLine(audiodevice.VoiceFormat)
	require.NoError(t, err)
	defer line.Close()
	require.NoError(t, line.Start())

	p := make([]byte, 8)
	n, err := line.Read(p)
	require.NoError(t, err)
	assert.Equal(t, pcm, p[:n])
}

func TestLineOpenerWrapsFailuresAsUnavailable(t *testing.T) {
	api := NewFileAudioIODeviceAPI("", 10, false)
	assert.Empty(t, api.InputDevices())

	_, err := NewLineOpener(api, nil).OpenLine(audiodevice.VoiceFormat)
	assert.ErrorIs(t, err, audiodevice.ErrDeviceUnavailable)
	assert.ErrorIs(t, err, errNoDefaultDevice)

	missing := NewFileAudioIODeviceAPI(filepath.Join(t.TempDir(), "missing.wav"), 10, false)
	_, err = NewLineOpener(missing, nil).OpenLine(audiodevice.VoiceFormat)
	assert.ErrorIs(t, err, audiodevice.ErrDeviceUnavailable)
}

func TestFindInputDevice(t *testing.T) {
	api := NewDummyAudioIODeviceAPI(10)

	d, err := FindInputDevice(api, 0)
	require.NoError(t, err)
	assert.Equal(t, "DummyInput", d.Name)
	assert.Contains(t, d.String(), "SampleRate:  16000")

	_, err = FindInputDevice(api, 9)
	assert.True(t, errors.Is(err, errNoDeviceWithID))
}
