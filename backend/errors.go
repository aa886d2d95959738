// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	ErrDeviceNotReady   = errors.New("audio device not ready")
	ErrNoDevice         = errors.New("no audio device")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrContextDestroyed = errors.New("context destroyed")
)
