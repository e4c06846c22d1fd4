// SPDX-License-Identifier: MIT
package capture

import "errors"

var (
	// ErrDeviceUnavailable means no default input device could be acquired.
	ErrDeviceUnavailable = errors.New("no input device available")

	// ErrConfigUnavailable means the device reported no usable input config.
	ErrConfigUnavailable = errors.New("no input config available")

	// ErrStreamBuild means the input stream could not be created.
	ErrStreamBuild = errors.New("failed to build input stream")

	// ErrStreamPlay means the input stream could not be started.
	ErrStreamPlay = errors.New("failed to play input stream")

	// ErrDeviceStopped is reported through Callbacks.Error when the backend
	// stops a device that was not paused by us.
	ErrDeviceStopped = errors.New("input device stopped unexpectedly")

	// ErrStreamClosed is returned when playing a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
