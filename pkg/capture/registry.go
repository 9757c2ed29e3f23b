package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
)

// A Registry holds the one capture session of a process.
//
// The session is created lazily by the first call to Current, reused while it is
// running, and recreated by the first Current after it shuts down. A session
// removes itself from the registry when its shutdown completes; nothing else
// clears the reference.
//
// A process normally has a single Registry, built at startup and passed to whoever
// needs audio.
type Registry struct {
	logger  *slog.Logger
	opener  audiodevice.LineOpener
	options SessionOptions

	// Guards check-then-create and deregistration; current also allows a lock-free fast path
	mutex   sync.Mutex
	current atomic.Pointer[Session]
}

func NewRegistry(opener audiodevice.LineOpener, options SessionOptions) *Registry {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Registry{
		logger:  options.Logger,
		opener:  opener,
		options: options,
	}
}

// Return the running session, opening a new one if there is none.
//
// Concurrent callers never open two sessions. If opening fails, the error
// (wrapping audiodevice.ErrDeviceUnavailable) is returned as is and nothing is
// remembered: the next call tries again.
func (r *Registry) Current() (*Session, error) {
	if s := r.current.Load(); s != nil && s.Running() {
		return s, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous := r.current.Load()
	if previous != nil {
		if previous.Running() {
			return previous, nil
		}
		// Shutting down but not yet deregistered: never open the line again
		// before the previous session has let go of it
		<-previous.released
	}

	s, err := openSession(r.opener, r.options, r.deregister)
	if err != nil {
		r.logger.Error("failed to open capture session", "err", err)
		return nil, err
	}
	r.current.Store(s)
	return s, nil
}

// Return the current session without creating one, or nil.
// The returned session may already be shutting down.
func (r *Registry) Peek() *Session {
	return r.current.Load()
}

// Shut down the current session, if any.
func (r *Registry) Shutdown() error {
	s := r.current.Load()
	if s == nil {
		return nil
	}
	return s.Shutdown()
}

// Clear the current reference, but only if it still points at s.
func (r *Registry) deregister(s *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.current.CompareAndSwap(s, nil) {
		r.logger.Debug("capture session deregistered", "capture session uuid", s.ID())
	}
}
