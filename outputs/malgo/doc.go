// SPDX-License-Identifier: EPL-2.0

// Package malgo renders the software mix through miniaudio using
// github.com/gen2brain/malgo. It needs cgo; builds without cgo, or with the
// noaudio tag, get an Open that reports backend.ErrNoDevice.
package malgo
