package capture

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------------
// Fan Out (One to Many)

// A fanOut copies every chunk the capture loop reads to all live subscribers.
//
// The capture loop is the only reader of the line device; live consumers never
// touch the device and instead receive chunks from here. Publishing never blocks:
// each sink has a bounded channel, and a sink that cannot accept a chunk right away
// misses that chunk (it is counted in the sink's dropped counter).
//
// Adding and removing sinks is concurrency safe thanks to a mutex.
type fanOut struct {
	sinkBufferChunks int

	sinksMutex sync.RWMutex
	sinks      map[uuid.UUID]*fanOutSink
	closed     bool
}

type fanOutSink struct {
	id      uuid.UUID
	stream  chan []byte
	dropped atomic.Int64
}

func newFanOut(sinkBufferChunks int) *fanOut {
	return &fanOut{
		sinkBufferChunks: sinkBufferChunks,
		sinks:            make(map[uuid.UUID]*fanOutSink),
	}
}

// Add a new sink. Fails with ErrSessionStopped once the fanOut is closed.
func (f *fanOut) subscribe() (*fanOutSink, error) {
	f.sinksMutex.Lock()
	defer f.sinksMutex.Unlock()
	if f.closed {
		return nil, ErrSessionStopped
	}

	sink := &fanOutSink{
		id:     uuid.New(),
		stream: make(chan []byte, f.sinkBufferChunks),
	}
	f.sinks[sink.id] = sink
	return sink, nil
}

// Remove a sink and close its stream. Removing twice is harmless.
func (f *fanOut) unsubscribe(sink *fanOutSink) {
	f.sinksMutex.Lock()
	defer f.sinksMutex.Unlock()
	if _, ok := f.sinks[sink.id]; !ok {
		return
	}
	delete(f.sinks, sink.id)
	close(sink.stream)
}

// Offer chunk to every sink. chunk is shared between sinks and must not be
// modified afterwards.
func (f *fanOut) publish(chunk []byte) {
	f.sinksMutex.RLock()
	defer f.sinksMutex.RUnlock()
	if f.closed {
		return
	}

	for _, sink := range f.sinks {
		select {
		case sink.stream <- chunk:
		default:
			// The sink is not keeping up, it misses this chunk
			sink.dropped.Add(1)
		}
	}
}

func (f *fanOut) numSinks() int {
	f.sinksMutex.RLock()
	defer f.sinksMutex.RUnlock()
	return len(f.sinks)
}

// Close all sink streams. Sinks drain what is already buffered, then see the
// end of the stream.
func (f *fanOut) close() {
	f.sinksMutex.Lock()
	defer f.sinksMutex.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sink := range f.sinks {
		close(sink.stream)
		delete(f.sinks, id)
	}
}
