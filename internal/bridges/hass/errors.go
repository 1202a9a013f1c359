package hass

import "errors"

// Domain errors for the discovery bridge package.
var (
	// ErrAdapterClosed is returned by Adapter operations after Disconnect.
	ErrAdapterClosed = errors.New("hass: adapter closed")

	// ErrAdapterRunning is returned when Run is called a second time.
	ErrAdapterRunning = errors.New("hass: adapter already running")
)
