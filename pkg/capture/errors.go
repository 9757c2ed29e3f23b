package capture

import "errors"

var (
	// A shutdown stopped waiting for the capture loop to exit, because its context ended.
	// The device has still been released when this is returned.
	ErrInterruptedWait = errors.New("interrupted while waiting for capture loop to exit")

	// The session has been shut down; its device is closed and no live stream is available.
	ErrSessionStopped = errors.New("capture session stopped")
)
