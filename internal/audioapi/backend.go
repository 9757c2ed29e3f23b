package audioapi

import (
	"fmt"
	"strings"
)

type AudioBackendEnum int

const (
	AUDIO_BACKEND_PORTAUDIO AudioBackendEnum = iota
	AUDIO_BACKEND_FILE
	AUDIO_BACKEND_DUMMY
)

func (backend AudioBackendEnum) String() string {
	switch backend {
	case AUDIO_BACKEND_PORTAUDIO:
		return "portaudio"
	case AUDIO_BACKEND_FILE:
		return "file"
	case AUDIO_BACKEND_DUMMY:
		return "dummy"
	}
	return fmt.Sprintf("AudioBackendEnum(%d)", int(backend))
}

// Parse a backend name as found in config (case insensitive).
func ParseAudioBackend(name string) (AudioBackendEnum, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "portaudio":
		return AUDIO_BACKEND_PORTAUDIO, nil
	case "file":
		return AUDIO_BACKEND_FILE, nil
	case "dummy":
		return AUDIO_BACKEND_DUMMY, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnknownBackend, name)
}

// Options shared by all backends. Each backend reads only what it needs.
type BackendOptions struct {
	// Capacity of an opened line's internal buffer, in frames
	BufferFrames int

	// Source .WAV file for AUDIO_BACKEND_FILE
	InputFile string

	// Release file audio at its real-time rate
	Paced bool
}

// Factory method for AudioIODeviceAPI, switching on the backend.
func NewAudioIODeviceAPI(backend AudioBackendEnum, options BackendOptions) (AudioIODeviceAPI, error) {
	switch backend {
	case AUDIO_BACKEND_PORTAUDIO:
		return NewPortAudioAPI(options.BufferFrames), nil
	case AUDIO_BACKEND_FILE:
		return NewFileAudioIODeviceAPI(options.InputFile, options.BufferFrames, options.Paced), nil
	case AUDIO_BACKEND_DUMMY:
		return NewDummyAudioIODeviceAPI(options.BufferFrames), nil
	}
	return nil, fmt.Errorf("%w: %v", errUnknownBackend, backend)
}
