package audioapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

var (
	errNoDefaultDevice = errors.New("no default device available")
	errNoDeviceWithID  = errors.New("no device with specified ID")
	errUnknownBackend  = errors.New("unknown audio backend")
)

type AudioIODevice struct {
	// The ID of the device
	//
	// Should come from the underlying API (e.g. PortAudio's device list),
	// but could be defined in some programmatic way by the AudioIODeviceAPI.
	//
	// Intended to be the canonical way to reference the AudioIODevice
	// (e.g. a microphone), such that when telling the API to open a line
	// on a device, it is this value that is used to identify the device.
	ID int

	// A human-readable name for the device, if one exists.
	// Not necessary, and not canonical.
	Name string

	// The native device properties (sample rate and channels) of this device.
	// Lines are always opened at a CaptureFormat, which may differ.
	DeviceProperties audiodevice.DeviceProperties
}

func (device AudioIODevice) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ID:          %d\n", device.ID)
	fmt.Fprintf(&sb, "Name:        %s\n", device.Name)
	fmt.Fprintf(&sb, "SampleRate:  %d\n", device.DeviceProperties.SampleRate)
	fmt.Fprintf(&sb, "NumChannels: %d\n", device.DeviceProperties.NumChannels)
	return sb.String()
}

// Define an API to interface with capture hardware.
// Intended to be an abstract way to:
// - Query existing input devices
// - Open an input device as a LineDevice at a given CaptureFormat
//
// Implementations wrap PortAudio, a .WAV file, or nothing at all.
type AudioIODeviceAPI interface {
	InputDevices() []AudioIODevice
	OpenInputLine(AudioIODevice, audiodevice.CaptureFormat) (audiodevice.LineDevice, error)
	OpenDefaultInputLine(audiodevice.CaptureFormat) (audiodevice.LineDevice, error)
}

// Adapt an AudioIODeviceAPI to a LineOpener, for use by a capture session.
//
// If inputDevice is nil the API's default input is opened, otherwise the device
// with the same ID. Any failure is reported as ErrDeviceUnavailable.
func NewLineOpener(api AudioIODeviceAPI, inputDevice *AudioIODevice) audiodevice.LineOpener {
	return audiodevice.LineOpenerFunc(func(format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
		var line audiodevice.LineDevice
		var err error
		if inputDevice == nil {
			line, err = api.OpenDefaultInputLine(format)
		} else {
			line, err = api.OpenInputLine(*inputDevice, format)
		}
		if err != nil && !errors.Is(err, audiodevice.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
		}
		return line, err
	})
}

// Find the input device with the given ID.
func FindInputDevice(api AudioIODeviceAPI, id int) (AudioIODevice, error) {
	for _, d := range api.InputDevices() {
		if d.ID == id {
			return d, nil
		}
	}
	return AudioIODevice{}, fmt.Errorf("%w: %d", errNoDeviceWithID, id)
}
