// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile = errors.New("not a WAV file")
	// ErrUnsupportedWavLayout covers a missing or malformed fmt chunk and
	// channel counts the encoder cannot write.
	ErrUnsupportedWavLayout  = errors.New("unsupported WAV layout")
	ErrOnlyPCM16bitSupported = errors.New("only PCM 16-bit supported")
	// ErrUnsupportedWavChunks is returned when the file ends before a data
	// chunk is found.
	ErrUnsupportedWavChunks = errors.New("unsupported WAV chunks")
)
