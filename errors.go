// SPDX-License-Identifier: EPL-2.0

package audspace

import "errors"

var (
	// ErrDisabled is returned by operations that produce a value when the
	// engine has no usable audio device.
	ErrDisabled = errors.New("audio engine disabled")
	// ErrNotFound is returned when a sound file does not exist.
	ErrNotFound = errors.New("sound file not found")
	// ErrNoVoice is returned when every voice in a pool is busy. The play
	// request is dropped.
	ErrNoVoice = errors.New("no voice available")
	// ErrBackend wraps failures of backend calls that are expected to
	// succeed once the device is up.
	ErrBackend        = errors.New("audio backend failure")
	ErrClosed         = errors.New("audio engine closed")
	ErrUnknownFormat  = errors.New("unknown sound format")
	ErrInvalidPool    = errors.New("invalid voice pool")
	ErrSoundClosed    = errors.New("sound closed")
	ErrInvalidCatalog = errors.New("invalid sound catalog")
	ErrUnknownOutput  = errors.New("unknown output")
)
