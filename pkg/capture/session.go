package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

const (
	DEFAULT_CHUNK_DIVISOR      = 5
	DEFAULT_LIVE_BUFFER_CHUNKS = 64

	growthWarningMessage = "capture buffer keeps growing, shut the session down to release it"

	// Pause between reads after a line error, so a failing line cannot spin the loop.
	readErrorBackoff = 10 * time.Millisecond
)

type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type SessionOptions struct {
	// Parent logger for the session. Defaults to slog.Default().
	Logger *slog.Logger

	// The capture loop reads line.BufferSize()/ChunkDivisor bytes at a time,
	// bounding how long a single read can block. Defaults to 5.
	ChunkDivisor int

	// Chunks buffered per live handle before chunks are dropped for it. Defaults to 64.
	LiveBufferChunks int

	// The accumulation buffer is unbounded. When positive, a warning is logged each
	// time it grows past another multiple of this many bytes.
	GrowthWarnBytes int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ChunkDivisor <= 0 {
		o.ChunkDivisor = DEFAULT_CHUNK_DIVISOR
	}
	if o.LiveBufferChunks <= 0 {
		o.LiveBufferChunks = DEFAULT_LIVE_BUFFER_CHUNKS
	}
	return o
}

// A Session is one capture of microphone audio, from opening the line to closing it.
//
// A dedicated goroutine drains the line into an accumulation buffer for the whole
// life of the session. The buffer only grows; Snapshot copies it out. Every chunk
// read is also offered to live handles (see LiveHandle).
//
// A session runs until Shutdown (or Close) is called. It is never finalized
// implicitly: failing to shut a session down leaks the line.
type Session struct {
	logger *slog.Logger
	uuid   uuid.UUID
	format audiodevice.CaptureFormat

	// Exclusively owned; only the capture loop reads from it
	line      audiodevice.LineDevice
	chunkSize int

	state atomic.Int32

	bufferMutex     sync.Mutex
	buffer          []byte
	growthWarnBytes int

	live *fanOut

	// Closed once the line has been stopped and closed
	released chan struct{}
	// Closed when the capture loop exits
	done chan struct{}

	// Called once shutdown completes, e.g. to deregister from a Registry
	onStopped func(*Session)
}

// Open the line at VoiceFormat, start it, and begin capturing in the background.
//
// Fails with an error wrapping audiodevice.ErrDeviceUnavailable if the line cannot
// be opened or started. A line that opened but failed to start is closed before returning.
func Open(opener audiodevice.LineOpener, options SessionOptions) (*Session, error) {
	return openSession(opener, options, nil)
}

func openSession(
	opener audiodevice.LineOpener,
	options SessionOptions,
	onStopped func(*Session),
) (*Session, error) {
	options = options.withDefaults()

	uuid := uuid.New()
	s := &Session{
		logger:          options.Logger.With("capture session uuid", uuid),
		uuid:            uuid,
		format:          audiodevice.VoiceFormat,
		growthWarnBytes: options.GrowthWarnBytes,
		live:            newFanOut(options.LiveBufferChunks),
		released:        make(chan struct{}),
		done:            make(chan struct{}),
		onStopped:       onStopped,
	}
	s.state.Store(int32(StateStarting))

	line, err := opener.OpenLine(s.format)
	if err != nil {
		s.logger.Error("failed to open audio line", "err", err)
		return nil, wrapDeviceUnavailable(err)
	}

	if err := line.Start(); err != nil {
		s.logger.Error("failed to start audio line", "err", err)
		errClose := line.Close()
		return nil, errors.Join(wrapDeviceUnavailable(err), errClose)
	}

	s.line = line
	s.chunkSize = chunkSize(line.BufferSize(), options.ChunkDivisor, s.format.FrameSize)
	s.state.Store(int32(StateRunning))

	s.logger.Info(
		"capture session started",
		"sampleRate", s.format.SampleRate,
		"bitDepth", s.format.BitDepth,
		"channels", s.format.NumChannels,
		"lineBufferSize", line.BufferSize(),
		"chunkSize", s.chunkSize,
	)

	go s.captureLoop()
	return s, nil
}

func wrapDeviceUnavailable(err error) error {
	if errors.Is(err, audiodevice.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
}

// A fraction of the line buffer, rounded down to whole frames, never less than one frame.
func chunkSize(lineBufferSize int, divisor int, frameSize int) int {
	size := lineBufferSize / divisor
	size -= size % frameSize
	return max(size, frameSize)
}

// --------------------------------------------------------------------------------
// Capture loop

func (s *Session) captureLoop() {
	defer close(s.done)

	chunk := make([]byte, s.chunkSize)
	for s.Running() {
		n, err := s.line.Read(chunk)
		if n > 0 {
			s.appendChunk(chunk[:n])
		}
		if err != nil {
			if !s.Running() {
				break
			}
			s.logger.Debug("error while reading audio line", "err", err)
			time.Sleep(readErrorBackoff)
		}
	}

	s.logger.Debug("capture loop exited")
}

func (s *Session) appendChunk(chunk []byte) {
	s.bufferMutex.Lock()
	before := len(s.buffer)
	s.buffer = append(s.buffer, chunk...)
	after := len(s.buffer)
	s.bufferMutex.Unlock()

	if s.growthWarnBytes > 0 && after/s.growthWarnBytes > before/s.growthWarnBytes {
		s.logger.Warn(
			growthWarningMessage,
			"bufferBytes", after,
			"capturedDuration", s.format.Duration(after),
		)
	}

	// Live handles get their own copy, the scratch chunk is reused by the next read
	published := make([]byte, len(chunk))
	copy(published, chunk)
	s.live.publish(published)
}

// --------------------------------------------------------------------------------
// Accessors

func (s *Session) ID() uuid.UUID {
	return s.uuid
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Running() bool {
	return s.State() == StateRunning
}

func (s *Session) Format() audiodevice.CaptureFormat {
	return s.format
}

// Closed when the capture loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Return a copy of everything captured so far.
//
// Never waits on the capture loop beyond a short lock for the copy. Every call
// returns a fresh slice; after shutdown it holds everything captured before the stop.
func (s *Session) Snapshot() []byte {
	s.bufferMutex.Lock()
	defer s.bufferMutex.Unlock()
	snapshot := make([]byte, len(s.buffer))
	copy(snapshot, s.buffer)
	return snapshot
}

// Number of bytes captured so far.
func (s *Session) Len() int {
	s.bufferMutex.Lock()
	defer s.bufferMutex.Unlock()
	return len(s.buffer)
}

func (s *Session) CapturedDuration() time.Duration {
	return s.format.Duration(s.Len())
}

// Get a handle that reads audio as it is captured.
//
// The capture loop stays the only reader of the line: every chunk it reads is
// appended to the buffer and also handed to each live handle, so live consumers
// never split the audio between themselves or with the buffer.
//
// Fails with ErrSessionStopped after shutdown. Close the handle when done with it.
func (s *Session) LiveHandle() (*StreamHandle, error) {
	if !s.Running() {
		return nil, ErrSessionStopped
	}
	sink, err := s.live.subscribe()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("live handle added", "liveHandles", s.live.numSinks())
	return newStreamHandle(s.format, s.live, sink), nil
}

// --------------------------------------------------------------------------------
// Shutdown

// Stop capturing, release the line, and wait for the capture loop to exit.
//
// Only the first call does anything; later calls return nil. Once Shutdown returns,
// no more bytes are appended to the buffer and the line is fully released.
func (s *Session) Shutdown() error {
	return s.ShutdownContext(context.Background())
}

// Like Shutdown, but stops waiting for the capture loop when ctx ends.
//
// The line is stopped and closed and the session is stopped before the wait begins,
// so even an interrupted shutdown leaves the device released. The interruption is
// reported as an error wrapping both ErrInterruptedWait and ctx.Err().
func (s *Session) ShutdownContext(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopped)) {
		return nil
	}
	s.logger.Debug("shutdown called")

	// Stopping the line releases a read blocked in the capture loop
	errStop := s.line.Stop()
	errClose := s.line.Close()
	close(s.released)

	var errWait error
	select {
	case <-s.done:
	case <-ctx.Done():
		errWait = fmt.Errorf("%w: %w", ErrInterruptedWait, ctx.Err())
		s.logger.Warn("interrupted while waiting for capture loop", "err", ctx.Err())
	}

	s.live.close()
	if s.onStopped != nil {
		s.onStopped(s)
	}

	s.logger.Info(
		"capture session stopped",
		"bufferBytes", s.Len(),
		"capturedDuration", s.CapturedDuration(),
	)
	return errors.Join(errStop, errClose, errWait)
}

// Close is an alias for Shutdown. Implements io.Closer.
func (s *Session) Close() error {
	return s.Shutdown()
}
