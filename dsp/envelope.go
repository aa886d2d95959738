// SPDX-License-Identifier: EPL-2.0

package dsp

import "github.com/ik5/audspace/utils"

// windowDivisor makes a window a tenth of a second: 4410 frames at 44.1 kHz.
const windowDivisor = 10

// Envelope is a table of peak absolute amplitude per fixed window of
// frames. It is immutable once built.
type Envelope struct {
	window int
	peaks  []float32
}

// WindowFrames returns the window length used for sampleRate.
func WindowFrames(sampleRate int) int {
	return max(sampleRate/windowDivisor, 1)
}

// NewEnvelope scans interleaved samples in windows of WindowFrames(sampleRate)
// frames. The last window may be short.
func NewEnvelope(samples []float32, sampleRate, channels int) *Envelope {
	channels = max(channels, 1)
	window := WindowFrames(sampleRate)
	step := window * channels

	peaks := make([]float32, 0, (len(samples)+step-1)/step)
	for i := 0; i < len(samples); i += step {
		end := min(i+step, len(samples))
		peaks = append(peaks, utils.PeakAbs(samples[i:end]))
	}

	return &Envelope{
		window: window,
		peaks:  peaks,
	}
}

// Len returns the number of windows.
func (e *Envelope) Len() int {
	if e == nil {
		return 0
	}

	return len(e.peaks)
}

// Window returns the window length in frames.
func (e *Envelope) Window() int { return e.window }

// At returns the peak for the window holding frame. Negative positions
// yield 0; positions past the end clamp to the last window.
func (e *Envelope) At(frame int) float32 {
	if e == nil || len(e.peaks) == 0 || frame < 0 {
		return 0
	}

	idx := min(frame/e.window, len(e.peaks)-1)

	return e.peaks[idx]
}
