// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"math"
	"sync/atomic"

	"github.com/ik5/audspace/backend"
)

// Categories ducked while someone talks on voice chat, through gain layer
// voipLayer.
var voipDucked = []string{"default", "ui", "waterambience", "music"}

const (
	voipLayer = 1
	// voipRelease is how much of the remaining distance to 1 the ducking
	// gain recovers per Update.
	voipRelease = 0.1
	// compressionRise is the smoothing weight of the target while the
	// compression gain recovers.
	compressionRise = 0.05
)

type atomicFloat32 struct{ bits atomic.Uint32 }

func (f *atomicFloat32) Load() float32   { return math.Float32frombits(f.bits.Load()) }
func (f *atomicFloat32) Store(v float32) { f.bits.Store(math.Float32bits(v)) }

// PlaybackAmplitude estimates the loudness of the mix: the sum over every
// channel of its current amplitude, its gain and a linear distance
// falloff. Channels without a position count as being at the listener.
func (e *Engine) PlaybackAmplitude() float32 {
	if e.off() {
		return 0
	}
	listener := e.ListenerPosition()

	var total float32
	for _, p := range e.pools {
		for _, ch := range p.snapshot() {
			amp := ch.CurrentAmplitude() * ch.Gain()
			if amp == 0 {
				continue
			}
			pos := listener
			if cp := ch.Position(); cp != nil {
				pos = *cp
			}
			total += amp * backend.LinearClamped(backend.Distance(listener, pos), ch.Near(), ch.Far())
		}
	}

	return total
}

// CompressionGain is the gain applied to every channel to keep the mix
// from clipping.
func (e *Engine) CompressionGain() float32 {
	return e.compression.Load()
}

// SetVoipAttenuatedGain ducks the background categories, for example while
// a voice chat peer is talking. Update releases it back to 1 once it has
// not been set for VoipReleaseDelay.
func (e *Engine) SetVoipAttenuatedGain(g float32) {
	e.voipMtx.Lock()
	defer e.voipMtx.Unlock()

	e.voipGain = g
	e.voipSetAt = e.now()
}

func (e *Engine) VoipAttenuatedGain() float32 {
	e.voipMtx.Lock()
	defer e.voipMtx.Unlock()

	return e.voipGain
}

// Update advances the voice chat ducking and the compressor. Call it once
// per simulation tick.
func (e *Engine) Update() {
	if e.off() {
		return
	}

	e.voipMtx.Lock()
	if !e.cfg.VoipAttenuation {
		e.voipGain = 1
	} else if e.now().Sub(e.voipSetAt) > e.cfg.VoipReleaseDelay.D() {
		e.voipGain = e.voipGain*(1-voipRelease) + voipRelease
	}
	duck := e.voipGain
	e.voipMtx.Unlock()

	for _, cat := range voipDucked {
		e.SetCategoryGainMultiplier(cat, duck, voipLayer)
	}

	prev := e.CompressionGain()
	next := nextCompressionGain(prev, e.PlaybackAmplitude(), e.cfg.DynamicRangeCompression)
	e.compression.Store(next)
	e.metrics.compressionGain.Set(float64(next))

	if next != prev {
		e.forPlaying(func(*Channel) bool { return true }, func(ch *Channel) {
			if err := ch.refreshGain(); err != nil {
				e.log.Errorf("Compression gain: %v", err)
			}
		})
	}
}

// nextCompressionGain drops straight to the target when the mix gets
// louder and eases back up otherwise. The target halves the gain needed to
// bring the amplitude down to 1.
func nextCompressionGain(prev, amplitude float32, enabled bool) float32 {
	if !enabled {
		return 1
	}

	target := (min(1, 1/amplitude)-1)*0.5 + 1
	if target < prev {
		return target
	}

	return target*compressionRise + prev*(1-compressionRise)
}
