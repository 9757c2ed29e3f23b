package device

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

var (
	errInvalidWAVFile = errors.New("error while decoding audio file")
)

// --------------------------------------------------------------------------------
// FileLineDevice

// A LineDevice that serves the contents of a .WAV file as if it were a microphone.
//
// The file is decoded once when the line is opened and converted to the requested
// CaptureFormat (downmixed and resampled as needed). When paced, reads are released
// at the real-time rate of the audio, so a capture session sees the file arrive as
// it would from hardware. Once the file is exhausted the line behaves like a silent
// microphone: reads block until the line is stopped.
type FileLineDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	format     audiodevice.CaptureFormat
	bufferSize int
	paced      bool

	mu     sync.Mutex
	pcm    []byte
	offset int

	startOnce    sync.Once
	started      chan struct{}
	shutdownOnce sync.Once
	stopped      chan struct{}
}

// Make a new FileLineDevice from a .WAV file (on the audioFilePath).
//
// Any failure to open or decode the file is reported as ErrDeviceUnavailable,
// since from the point of view of a capture session the "device" is missing.
func NewFileLineDevice(
	audioFilePath string,
	format audiodevice.CaptureFormat,
	bufferSize int,
	paced bool,
) (*FileLineDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file line device uuid", uuid,
	)

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error(
			"could not open audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		logger.Error(
			"could not decode audio file",
			"audioFile", audioFilePath,
			"err", decoder.Err(),
		)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, errInvalidWAVFile)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		logger.Error(
			"could not get full PCM buffer from audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}

	sourceProperties := audiodevice.DeviceProperties{
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
	}
	samples := intToFloatSamples(buf.Data, int(decoder.BitDepth))
	samples = convertSamples(samples, newSampleConversionChain(sourceProperties, format))
	pcm := floatSamplesToPCM(samples, format)

	logger.Debug(
		"loaded audio file",
		"audioFile", audioFilePath,
		"sampleRate", decoder.SampleRate,
		"channels", decoder.NumChans,
		"bitDepth", decoder.BitDepth,
		"capturedDuration", format.Duration(len(pcm)),
	)

	return newPCMLineDevice(logger, uuid, pcm, format, bufferSize, paced), nil
}

func newPCMLineDevice(
	logger *slog.Logger,
	uuid uuid.UUID,
	pcm []byte,
	format audiodevice.CaptureFormat,
	bufferSize int,
	paced bool,
) *FileLineDevice {
	return &FileLineDevice{
		logger:     logger,
		uuid:       uuid,
		format:     format,
		bufferSize: bufferSize,
		paced:      paced,
		pcm:        pcm,
		started:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

func (d *FileLineDevice) Start() error {
	d.startOnce.Do(func() {
		d.logger.Debug("playing audio")
		close(d.started)
	})
	return nil
}

func (d *FileLineDevice) Read(p []byte) (int, error) {
	select {
	case <-d.started:
	case <-d.stopped:
		return 0, audiodevice.ErrLineStopped
	}

	// Only whole frames are handed out
	want := len(p) - len(p)%d.format.FrameSize

	d.mu.Lock()
	remaining := len(d.pcm) - d.offset
	d.mu.Unlock()
	if remaining <= 0 || want <= 0 {
		<-d.stopped
		return 0, audiodevice.ErrLineStopped
	}
	want = min(want, remaining)

	if d.paced {
		timer := time.NewTimer(d.format.Duration(want))
		select {
		case <-timer.C:
		case <-d.stopped:
			timer.Stop()
			return 0, audiodevice.ErrLineStopped
		}
	} else {
		select {
		case <-d.stopped:
			return 0, audiodevice.ErrLineStopped
		default:
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p[:want], d.pcm[d.offset:])
	d.offset += n
	if d.offset == len(d.pcm) {
		d.logger.Debug("finished playing")
	}
	return n, nil
}

func (d *FileLineDevice) Stop() error {
	d.shutdownOnce.Do(func() {
		d.logger.Debug("shutdown called")
		close(d.stopped)
	})
	return nil
}

func (d *FileLineDevice) Close() error {
	return d.Stop()
}

func (d *FileLineDevice) BufferSize() int {
	return d.bufferSize
}

// Total decoded length of the file, in bytes of the line's format.
func (d *FileLineDevice) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pcm)
}

// --------------------------------------------------------------------------------
// WAVFileWriter

// Writes raw PCM in a CaptureFormat to a .WAV file.
// Note the resulting file is only valid once Close has returned.
type WAVFileWriter struct {
	logger     *slog.Logger
	uuid       uuid.UUID
	format     audiodevice.CaptureFormat
	encoder    *wav.Encoder
	fileHandle *os.File
	bufFormat  *goaudio.Format

	// Bytes of an incomplete sample carried over to the next Write
	partial []byte
}

// Create a new WAVFileWriter at the specified path.
func NewWAVFileWriter(audioFilePath string, format audiodevice.CaptureFormat) (*WAVFileWriter, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"wav file writer uuid", uuid,
	)

	f, err := os.Create(audioFilePath)
	if err != nil {
		logger.Error(
			"could not create audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}

	encoder := wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.NumChannels, 1)

	logger.Debug(
		"created audio file",
		"audioFile", audioFilePath,
		"sampleRate", encoder.SampleRate,
		"channels", encoder.NumChans,
	)

	return &WAVFileWriter{
		logger:     logger,
		uuid:       uuid,
		format:     format,
		encoder:    encoder,
		fileHandle: f,
		bufFormat: &goaudio.Format{
			SampleRate:  format.SampleRate,
			NumChannels: format.NumChannels,
		},
	}, nil
}

// Write PCM bytes in the writer's CaptureFormat. Implements io.Writer.
func (w *WAVFileWriter) Write(pcm []byte) (int, error) {
	data := pcm
	if len(w.partial) > 0 {
		data = append(w.partial, pcm...)
		w.partial = nil
	}
	if len(data)%2 == 1 {
		w.partial = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return len(pcm), nil
	}

	buf := &goaudio.IntBuffer{
		Format:         w.bufFormat,
		Data:           pcmToIntSamples(data, w.format),
		SourceBitDepth: w.format.BitDepth,
	}
	if err := w.encoder.Write(buf); err != nil {
		w.logger.Error("error while writing pcm to file", "err", err)
		return 0, err
	}
	return len(pcm), nil
}

// Finalize the .WAV header and close the file.
func (w *WAVFileWriter) Close() error {
	errEnc := w.encoder.Close()
	errSync := w.fileHandle.Sync()
	errClose := w.fileHandle.Close()
	return errors.Join(errEnc, errSync, errClose)
}

// Write pcm (in format) to a new .WAV file at audioFilePath.
func WriteWAVFile(audioFilePath string, format audiodevice.CaptureFormat, pcm []byte) error {
	w, err := NewWAVFileWriter(audioFilePath, format)
	if err != nil {
		return err
	}
	_, errWrite := w.Write(pcm)
	return errors.Join(errWrite, w.Close())
}
