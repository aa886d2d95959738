// SPDX-License-Identifier: EPL-2.0

package dsp

import "sync"

// DefaultMuffleCutoff is the low-pass cutoff used for muffled sounds, in Hz.
const DefaultMuffleCutoff = 800

// FilterBank lazily creates one low-pass filter per sample rate.
type FilterBank struct {
	cutoff float64

	mtx     sync.Mutex
	filters map[int]*BiQuad
}

// NewFilterBank returns a bank whose filters cut at cutoff Hz. A
// non-positive cutoff selects DefaultMuffleCutoff.
func NewFilterBank(cutoff float64) *FilterBank {
	if cutoff <= 0 {
		cutoff = DefaultMuffleCutoff
	}

	return &FilterBank{
		cutoff:  cutoff,
		filters: make(map[int]*BiQuad),
	}
}

// Filter returns the filter for sampleRate, creating it on first use.
func (b *FilterBank) Filter(sampleRate int) *BiQuad {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	f, ok := b.filters[sampleRate]
	if !ok {
		f = NewLowPass(sampleRate, b.cutoff, DefaultQ)
		b.filters[sampleRate] = f
	}

	return f
}

// Muffle low-passes buf in place.
func (b *FilterBank) Muffle(buf []float32, sampleRate, channels int) {
	b.Filter(sampleRate).Process(buf, channels)
}

// Len reports how many distinct sample rates have a filter.
func (b *FilterBank) Len() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return len(b.filters)
}
