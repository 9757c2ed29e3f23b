package audioapi

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/audiodevice/device"
)

type PortAudioAPI struct {
	logger       *slog.Logger
	bufferFrames int
}

// Create a new PortAudioAPI, with a line buffer size (in frames) given to all opened lines
func NewPortAudioAPI(bufferFrames int) *PortAudioAPI {
	uuid := uuid.New()
	logger := slog.Default().With(
		"portaudio api uuid", uuid,
	)

	return &PortAudioAPI{
		logger:       logger,
		bufferFrames: bufferFrames,
	}
}

// List PortAudio's devices, keeping only those with input channels.
//
// IDs are positions in PortAudio's device list, which is stable for the
// lifetime of the process.
func (api *PortAudioAPI) InputDevices() []AudioIODevice {
	devices, err := api.devices()
	if err != nil {
		api.logger.Error("failed to list devices", "err", err)
		return nil
	}

	inputDevices := make([]AudioIODevice, 0)
	for id, d := range devices {
		if d.MaxInputChannels > 0 {
			inputDevice := AudioIODevice{
				ID:   id,
				Name: d.Name,
				DeviceProperties: audiodevice.DeviceProperties{
					SampleRate:  int(d.DefaultSampleRate),
					NumChannels: d.MaxInputChannels,
				},
			}
			inputDevices = append(inputDevices, inputDevice)
		}
	}

	return inputDevices
}

func (api *PortAudioAPI) OpenInputLine(id AudioIODevice, format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	devices, err := api.devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}
	if id.ID < 0 || id.ID >= len(devices) || devices[id.ID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("%w: %w: %d", audiodevice.ErrDeviceUnavailable, errNoDeviceWithID, id.ID)
	}

	api.logger.Debug("opening input line", "device", devices[id.ID].Name)
	return api.openLine(devices[id.ID], format)
}

func (api *PortAudioAPI) OpenDefaultInputLine(format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	api.logger.Debug("opening default input line")
	return api.openLine(nil, format)
}

func (api *PortAudioAPI) openLine(deviceInfo *portaudio.DeviceInfo, format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	line, err := device.NewPortAudioLineDevice(deviceInfo, format, api.bufferFrames)
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (api *PortAudioAPI) devices() ([]*portaudio.DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	return portaudio.Devices()
}
