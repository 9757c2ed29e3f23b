package device

import (
	"sync"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

// A LineDevice that will never produce a byte.
//
// Read blocks until the line is stopped, like a microphone in a silent room
// whose driver only wakes on data. A minimal example of the LineDevice
// architecture, useful in testing and for running without hardware.
type DummyLineDevice struct {
	format     audiodevice.CaptureFormat
	bufferSize int

	shutdownOnce sync.Once
	stopped      chan struct{}
}

func NewDummyLineDevice(format audiodevice.CaptureFormat, bufferSize int) *DummyLineDevice {
	return &DummyLineDevice{
		format:     format,
		bufferSize: bufferSize,
		stopped:    make(chan struct{}),
	}
}

func (d *DummyLineDevice) Start() error {
	return nil
}

func (d *DummyLineDevice) Read(_ []byte) (int, error) {
	<-d.stopped
	return 0, audiodevice.ErrLineStopped
}

func (d *DummyLineDevice) Stop() error {
	d.shutdownOnce.Do(func() {
		close(d.stopped)
	})
	return nil
}

func (d *DummyLineDevice) Close() error {
	return d.Stop()
}

func (d *DummyLineDevice) BufferSize() int {
	return d.bufferSize
}

func (d *DummyLineDevice) Format() audiodevice.CaptureFormat {
	return d.format
}
