package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

const (
	// Number of stream reads that make up the line's internal buffer.
	// Each blocking read therefore waits for at most 1/readsPerBuffer of it.
	readsPerBuffer = 5
)

// PortAudioLineDevice is a LineDevice capturing from a microphone through PortAudio's
// blocking read API.
//
// PortAudio delivers native-endian int16 samples; the line re-encodes them in the
// byte order of its CaptureFormat.
type PortAudioLineDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	format     audiodevice.CaptureFormat
	deviceName string
	bufferSize int

	stream *portaudio.Stream
	// Bound to the stream at open; each stream.Read fills it entirely
	samples []int16

	readMutex sync.Mutex
	pending   []byte

	stateMutex   sync.Mutex
	stopped      bool
	shutdownOnce sync.Once
}

// Open a PortAudio input stream on deviceInfo (nil for the host default input)
// at the given format. bufferFrames is the capacity of the line's internal buffer,
// in frames.
//
// PortAudio is initialized here and terminated on Close; PortAudio reference
// counts initialization, so several lines may coexist.
func NewPortAudioLineDevice(
	deviceInfo *portaudio.DeviceInfo,
	format audiodevice.CaptureFormat,
	bufferFrames int,
) (*PortAudioLineDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"portaudio line device uuid", uuid,
	)

	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to initialize portaudio", "err", err)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}

	if deviceInfo == nil {
		defaultIn, err := portaudio.DefaultInputDevice()
		if err != nil {
			portaudio.Terminate()
			logger.Error("no default input device", "err", err)
			return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
		}
		deviceInfo = defaultIn
	}

	framesPerRead := max(1, bufferFrames/readsPerBuffer)
	samples := make([]int16, framesPerRead*format.NumChannels)

	params := portaudio.HighLatencyParameters(deviceInfo, nil)
	params.Input.Channels = format.NumChannels
	params.Output.Device = nil
	params.Output.Channels = 0
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = framesPerRead

	stream, err := portaudio.OpenStream(params, samples)
	if err != nil {
		portaudio.Terminate()
		logger.Error(
			"failed to open audio stream",
			"device", deviceInfo.Name,
			"err", err,
		)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}

	logger.Debug(
		"initialized portaudio line device",
		"device", deviceInfo.Name,
		"sampleRate", format.SampleRate,
		"channels", format.NumChannels,
		"bufferFrames", bufferFrames,
		"framesPerRead", framesPerRead,
	)

	return &PortAudioLineDevice{
		logger:     logger,
		uuid:       uuid,
		format:     format,
		deviceName: deviceInfo.Name,
		bufferSize: framesPerRead * readsPerBuffer * format.FrameSize,
		stream:     stream,
		samples:    samples,
	}, nil
}

func (d *PortAudioLineDevice) Start() error {
	if err := d.stream.Start(); err != nil {
		d.logger.Error("failed to start audio stream", "err", err)
		return fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}
	d.logger.Info("portaudio line device started", "device", d.deviceName)
	return nil
}

func (d *PortAudioLineDevice) isStopped() bool {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()
	return d.stopped
}

func (d *PortAudioLineDevice) Read(p []byte) (int, error) {
	d.readMutex.Lock()
	defer d.readMutex.Unlock()

	if len(d.pending) == 0 {
		if d.isStopped() {
			return 0, audiodevice.ErrLineStopped
		}
		if err := d.stream.Read(); err != nil {
			if d.isStopped() {
				return 0, audiodevice.ErrLineStopped
			}
			if err == portaudio.InputOverflowed {
				// Samples were lost upstream, but the buffer still holds fresh audio
				d.logger.Warn("input overflow detected")
			} else {
				return 0, fmt.Errorf("failed to read audio stream: %w", err)
			}
		}

		d.pending = make([]byte, 2*len(d.samples))
		for i, s := range d.samples {
			d.format.ByteOrder.PutUint16(d.pending[2*i:], uint16(s))
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// Stop aborts the stream, which releases a reader blocked in Read.
func (d *PortAudioLineDevice) Stop() error {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()
	if d.stopped {
		return nil
	}
	d.stopped = true

	if err := d.stream.Abort(); err != nil {
		d.logger.Error("error stopping audio stream", "err", err)
		return err
	}
	return nil
}

func (d *PortAudioLineDevice) Close() error {
	var err error
	d.shutdownOnce.Do(func() {
		d.logger.Debug("shutdown called")
		errStop := d.Stop()

		// A reader may still be returning from an aborted Read
		d.readMutex.Lock()
		errClose := d.stream.Close()
		d.readMutex.Unlock()

		errTerminate := portaudio.Terminate()
		err = errors.Join(errStop, errClose, errTerminate)
		d.logger.Info("portaudio line device closed")
	})
	return err
}

func (d *PortAudioLineDevice) BufferSize() int {
	return d.bufferSize
}
