package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/audiodevice/linetest"
)

// A scripted line whose first few reads fail.
type flakyLine struct {
	*linetest.ScriptedLineDevice
	failures atomic.Int32
}

func (l *flakyLine) Read(p []byte) (int, error) {
	if l.failures.Add(-1) >= 0 {
		return 0, errors.New("transient read failure")
	}
	return l.ScriptedLineDevice.Read(p)
}

// A line whose Read ignores Stop and only returns once released,
// like a driver that is slow to notice it has been stopped.
type stubbornLine struct {
	release chan struct{}
	reading atomic.Bool
	closed  atomic.Bool
}

func newStubbornLine() *stubbornLine {
	return &stubbornLine{release: make(chan struct{})}
}

func (l *stubbornLine) Start() error { return nil }

func (l *stubbornLine) Read(_ []byte) (int, error) {
	l.reading.Store(true)
	<-l.release
	return 0, audiodevice.ErrLineStopped
}

func (l *stubbornLine) Stop() error { return nil }

func (l *stubbornLine) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *stubbornLine) BufferSize() int { return 100 }

// A slog handler remembering every record, shared by all derived loggers.
type recordingHandler struct {
	mutex   sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

// Number of records at level with the given message.
func (h *recordingHandler) count(level slog.Level, message string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && r.Message == message {
			n++
		}
	}
	return n
}

// A scripted line whose Close blocks until released, like a driver slow to let go.
type slowClosingLine struct {
	*linetest.ScriptedLineDevice
	closing      chan struct{}
	closingOnce  sync.Once
	releaseClose chan struct{}
	closed       atomic.Bool
}

func newSlowClosingLine() *slowClosingLine {
	return &slowClosingLine{
		ScriptedLineDevice: linetest.NewScriptedLineDevice(audiodevice.VoiceFormat, 100),
		closing:            make(chan struct{}),
		releaseClose:       make(chan struct{}),
	}
}

func (l *slowClosingLine) Close() error {
	l.closingOnce.Do(func() { close(l.closing) })
	<-l.releaseClose
	err := l.ScriptedLineDevice.Close()
	l.closed.Store(true)
	return err
}
