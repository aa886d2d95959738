// SPDX-License-Identifier: EPL-2.0

// Package dsp holds the signal processing applied to buffered sounds at load
// time.
//
// A FilterBank hands out one BiQuad low-pass per sample rate and is used to
// produce the muffled copy of a sound:
//
//	bank := dsp.NewFilterBank(dsp.DefaultMuffleCutoff)
//	bank.Muffle(samples, 44100, 2)
//
// An Envelope records the peak amplitude of every tenth of a second so the
// loudness of a playing sound can be looked up without decoding it again:
//
//	env := dsp.NewEnvelope(samples, 44100, 2)
//	peak := env.At(offsetInFrames)
package dsp
