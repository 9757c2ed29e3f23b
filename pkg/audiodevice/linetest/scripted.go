// Package linetest provides scripted audio lines for testing code built on
// audiodevice.LineDevice without any audio hardware.
package linetest

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

var (
	errScriptedStartFailed = errors.New("scripted start failure")
)

// A LineDevice whose audio is pushed in by hand.
//
// Each Push becomes the result of (at most) one Read, so a test can script
// exactly what the capture loop observes. Stop and Close are counted so tests
// can assert a line was released exactly once.
type ScriptedLineDevice struct {
	format     audiodevice.CaptureFormat
	bufferSize int

	// If set, Start fails with an error wrapping this one.
	StartErr error

	chunks chan []byte

	stopOnce sync.Once
	stopped  chan struct{}

	mu      sync.Mutex
	pending []byte

	started    atomic.Bool
	reads      atomic.Int64
	stopCount  atomic.Int32
	closeCount atomic.Int32
}

func NewScriptedLineDevice(format audiodevice.CaptureFormat, bufferSize int) *ScriptedLineDevice {
	return &ScriptedLineDevice{
		format:     format,
		bufferSize: bufferSize,
		chunks:     make(chan []byte, 1024),
		stopped:    make(chan struct{}),
	}
}

// Queue a chunk for a future Read.
// Returns false (and drops the chunk) if the line has already been stopped.
func (d *ScriptedLineDevice) Push(chunk []byte) bool {
	select {
	case <-d.stopped:
		return false
	default:
	}

	c := make([]byte, len(chunk))
	copy(c, chunk)
	select {
	case d.chunks <- c:
		return true
	case <-d.stopped:
		return false
	}
}

func (d *ScriptedLineDevice) Start() error {
	if d.StartErr != nil {
		return errors.Join(errScriptedStartFailed, d.StartErr)
	}
	d.started.Store(true)
	return nil
}

func (d *ScriptedLineDevice) Read(p []byte) (int, error) {
	// A chunk larger than p is handed out over several reads
	d.mu.Lock()
	if len(d.pending) > 0 {
		n := copy(p, d.pending)
		d.pending = d.pending[n:]
		d.mu.Unlock()
		d.reads.Add(1)
		return n, nil
	}
	d.mu.Unlock()

	select {
	case <-d.stopped:
		return 0, audiodevice.ErrLineStopped
	case chunk := <-d.chunks:
		n := copy(p, chunk)
		if n < len(chunk) {
			d.mu.Lock()
			d.pending = append(d.pending, chunk[n:]...)
			d.mu.Unlock()
		}
		d.reads.Add(1)
		return n, nil
	}
}

func (d *ScriptedLineDevice) Stop() error {
	d.stopCount.Add(1)
	d.stopOnce.Do(func() {
		close(d.stopped)
	})
	return nil
}

func (d *ScriptedLineDevice) Close() error {
	d.closeCount.Add(1)
	d.stopOnce.Do(func() {
		close(d.stopped)
	})
	return nil
}

func (d *ScriptedLineDevice) BufferSize() int {
	return d.bufferSize
}

func (d *ScriptedLineDevice) Started() bool {
	return d.started.Load()
}

// Number of reads that returned data.
func (d *ScriptedLineDevice) Reads() int64 {
	return d.reads.Load()
}

func (d *ScriptedLineDevice) StopCount() int {
	return int(d.stopCount.Load())
}

func (d *ScriptedLineDevice) CloseCount() int {
	return int(d.closeCount.Load())
}

// --------------------------------------------------------------------------------
// ScriptedLineOpener

// A LineOpener handing out ScriptedLineDevices and remembering each one.
type ScriptedLineOpener struct {
	bufferSize int

	mu sync.Mutex
	// If set, OpenLine fails with an error wrapping both this and ErrDeviceUnavailable.
	openErr error
	// If set, every opened line fails to Start with this error.
	startErr error
	lines    []*ScriptedLineDevice
	attempts int
}

func NewScriptedLineOpener(bufferSize int) *ScriptedLineOpener {
	return &ScriptedLineOpener{
		bufferSize: bufferSize,
	}
}

func (o *ScriptedLineOpener) SetOpenErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr = err
}

func (o *ScriptedLineOpener) SetStartErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startErr = err
}

func (o *ScriptedLineOpener) OpenLine(format audiodevice.CaptureFormat) (audiodevice.LineDevice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.attempts++
	if o.openErr != nil {
		return nil, errors.Join(audiodevice.ErrDeviceUnavailable, o.openErr)
	}

	line := NewScriptedLineDevice(format, o.bufferSize)
	line.StartErr = o.startErr
	o.lines = append(o.lines, line)
	return line, nil
}

// Number of OpenLine calls, successful or not.
func (o *ScriptedLineOpener) Attempts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts
}

// All lines opened so far, oldest first.
func (o *ScriptedLineOpener) Lines() []*ScriptedLineDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	lines := make([]*ScriptedLineDevice, len(o.lines))
	copy(lines, o.lines)
	return lines
}

// The most recently opened line, or nil.
func (o *ScriptedLineOpener) Last() *ScriptedLineDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.lines) == 0 {
		return nil
	}
	return o.lines[len(o.lines)-1]
}
