package audioapi

import (
	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/audiodevice/device"
)

// A dummy API that lists only one input device, which never produces a byte.
//
// This API is intended for testing, or for running without hardware.
type DummyAudioIODeviceAPI struct {
	bufferFrames int
}

func NewDummyAudioIODeviceAPI(bufferFrames int) DummyAudioIODeviceAPI {
	return DummyAudioIODeviceAPI{
		bufferFrames: bufferFrames,
	}
}

func (api DummyAudioIODeviceAPI) InputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "DummyInput",
			DeviceProperties: audiodevice.VoiceFormat.Properties(),
		},
	}
}

func (api DummyAudioIODeviceAPI) OpenInputLine(id AudioIODevice, format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	if id.ID != 0 {
		return nil, errNoDeviceWithID
	}
	return api.OpenDefaultInputLine(format)
}

func (api DummyAudioIODeviceAPI) OpenDefaultInputLine(format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	return device.NewDummyLineDevice(format, api.bufferFrames*format.FrameSize), nil
}
