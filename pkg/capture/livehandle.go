package capture

import (
	"context"
	"io"
	"sync"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

// A StreamHandle reads captured audio as it arrives, bypassing the session's
// accumulation buffer.
//
// Bytes are raw PCM in the session's CaptureFormat. The handle only sees audio
// captured after it was created. Once the session shuts down, the handle drains
// what it already received and then returns io.EOF.
//
// A StreamHandle has a single consumer: Read and ReadChunk must not be called concurrently.
type StreamHandle struct {
	format audiodevice.CaptureFormat
	source *fanOut
	sink   *fanOutSink

	pending []byte

	closeOnce sync.Once
}

func newStreamHandle(format audiodevice.CaptureFormat, source *fanOut, sink *fanOutSink) *StreamHandle {
	return &StreamHandle{
		format: format,
		source: source,
		sink:   sink,
	}
}

// Read blocks until audio is available. Implements io.Reader.
func (h *StreamHandle) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(h.pending) == 0 {
		chunk, ok := <-h.sink.stream
		if !ok {
			return 0, io.EOF
		}
		h.pending = chunk
	}

	n := copy(p, h.pending)
	h.pending = h.pending[n:]
	return n, nil
}

// Return the next chunk exactly as the capture loop read it, or whatever is
// left of it after a partial Read.
//
// Returns io.EOF once the session has shut down and the stream is drained,
// or the context's error if it ends first.
func (h *StreamHandle) ReadChunk(ctx context.Context) ([]byte, error) {
	if len(h.pending) > 0 {
		chunk := h.pending
		h.pending = nil
		return chunk, nil
	}

	select {
	case chunk, ok := <-h.sink.stream:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop receiving audio. Closing the handle does not affect the session.
func (h *StreamHandle) Close() error {
	h.closeOnce.Do(func() {
		h.source.unsubscribe(h.sink)
	})
	return nil
}

func (h *StreamHandle) Format() audiodevice.CaptureFormat {
	return h.format
}

// Number of chunks this handle missed because it was not reading fast enough.
func (h *StreamHandle) Dropped() int64 {
	return h.sink.dropped.Load()
}
