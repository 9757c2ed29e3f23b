package audioapi

import (
	"path/filepath"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/audiodevice/device"
)

// An API exposing a single .WAV file as an input device.
//
// Each opened line replays the file from the start.
type FileAudioIODeviceAPI struct {
	audioFilePath string
	bufferFrames  int
	paced         bool
}

func NewFileAudioIODeviceAPI(audioFilePath string, bufferFrames int, paced bool) FileAudioIODeviceAPI {
	return FileAudioIODeviceAPI{
		audioFilePath: audioFilePath,
		bufferFrames:  bufferFrames,
		paced:         paced,
	}
}

func (api FileAudioIODeviceAPI) InputDevices() []AudioIODevice {
	if api.audioFilePath == "" {
		return nil
	}
	return []AudioIODevice{
		{
			ID:               0,
			Name:             filepath.Base(api.audioFilePath),
			DeviceProperties: audiodevice.VoiceFormat.Properties(),
		},
	}
}

func (api FileAudioIODeviceAPI) OpenInputLine(id AudioIODevice, format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	if id.ID != 0 {
		return nil, errNoDeviceWithID
	}
	return api.OpenDefaultInputLine(format)
}

func (api FileAudioIODeviceAPI) OpenDefaultInputLine(format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	if api.audioFilePath == "" {
		return nil, errNoDefaultDevice
	}
	line, err := device.NewFileLineDevice(api.audioFilePath, format, api.bufferFrames*format.FrameSize, api.paced)
	if err != nil {
		return nil, err
	}
	return line, nil
}
