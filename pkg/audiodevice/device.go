package audiodevice

import (
	"encoding/binary"
	"errors"
	"time"
)

var (
	// The line could not be opened or started: busy, missing, or permission denied.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// Returned by Read once a line has been stopped or closed.
	ErrLineStopped = errors.New("audio line stopped")
)

// Book-keeping description of an audio stream.
type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// The fixed PCM layout every capture line is opened with.
type CaptureFormat struct {
	SampleRate  int
	BitDepth    int
	NumChannels int

	// Bytes per frame, i.e. NumChannels * BitDepth / 8
	FrameSize int

	ByteOrder binary.ByteOrder
}

// Signed 16-bit mono PCM at 16kHz, big-endian.
//
// Big-endian keeps the captured bytes identical across host platforms.
var VoiceFormat = CaptureFormat{
	SampleRate:  16000,
	BitDepth:    16,
	NumChannels: 1,
	FrameSize:   2,
	ByteOrder:   binary.BigEndian,
}

func (f CaptureFormat) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize
}

// Playback duration of n bytes of audio in this format.
// Trailing partial frames are ignored.
func (f CaptureFormat) Duration(n int) time.Duration {
	frames := n / f.FrameSize
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f CaptureFormat) Properties() DeviceProperties {
	return DeviceProperties{
		SampleRate:  f.SampleRate,
		NumChannels: f.NumChannels,
	}
}

// Interface for a hardware (or simulated) input line, e.g. a microphone.
//
// A line offers a blocking read primitive at a fixed CaptureFormat.
// Reads are destructive: bytes returned to one caller are never seen by another,
// so a line should have exactly one reader.
type LineDevice interface {
	// Begin delivering audio. Reads before Start may block forever.
	Start() error

	// Block until audio is available, then copy as much as fits into p.
	//
	// A return of 0 bytes with a nil error means no data this time.
	// Once the line is stopped, Read returns ErrLineStopped and any Read
	// blocked at that moment is released.
	Read(p []byte) (int, error)

	// Stop delivering audio and release blocked readers.
	Stop() error

	// Release the underlying resource. Close implies Stop.
	Close() error

	// Capacity of the line's internal buffer, in bytes.
	BufferSize() int
}

// Something that can acquire a LineDevice at a given format.
//
// Implementations should wrap ErrDeviceUnavailable in any error they return.
type LineOpener interface {
	OpenLine(format CaptureFormat) (LineDevice, error)
}

// Adapter to allow ordinary functions to be used as a LineOpener.
type LineOpenerFunc func(format CaptureFormat) (LineDevice, error)

func (f LineOpenerFunc) OpenLine(format CaptureFormat) (LineDevice, error) {
	return f(format)
}
