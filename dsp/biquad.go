// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// DefaultQ is the Butterworth quality factor.
const DefaultQ = 1 / math.Sqrt2

// BiQuad is a second order IIR section in direct form I. Coefficients are
// normalised by a0 at construction.
type BiQuad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// NewLowPass builds a low-pass section for sampleRate with the given cutoff
// frequency and quality factor.
func NewLowPass(sampleRate int, cutoff, q float64) *BiQuad {
	if q <= 0 {
		q = DefaultQ
	}
	nyquist := float64(sampleRate) / 2
	if cutoff >= nyquist {
		cutoff = nyquist * 0.99
	}

	w := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)

	a0 := 1 + alpha

	return &BiQuad{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

type biquadState struct {
	x1, x2, y1, y2 float64
}

// Process filters interleaved samples in place. Every channel keeps its own
// history, and the history starts from silence on each call, so a BiQuad
// can be shared between buffers.
func (f *BiQuad) Process(buf []float32, channels int) {
	if channels <= 0 {
		channels = 1
	}

	state := make([]biquadState, channels)
	for i, v := range buf {
		st := &state[i%channels]
		x0 := float64(v)
		y0 := f.b0*x0 + f.b1*st.x1 + f.b2*st.x2 - f.a1*st.y1 - f.a2*st.y2

		st.x2, st.x1 = st.x1, x0
		st.y2, st.y1 = st.y1, y0

		buf[i] = float32(y0)
	}
}
