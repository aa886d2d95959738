// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"math"

	"github.com/ik5/audspace/backend"
)

// Render mixes every playing voice into dst as interleaved stereo at the
// mix rate. It is called by the output, usually from its own goroutine.
func (c *Context) Render(dst []float32) {
	clear(dst)

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.current || c.dead {
		return
	}

	right := c.listenerTarget.Cross(c.listenerUp).Normalize()
	for _, v := range c.voices {
		if v == nil || v.state != backend.VoicePlaying {
			continue
		}
		c.mixVoice(dst, v, right)
	}

	g := c.listenerGain
	for i, s := range dst {
		s *= g
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		dst[i] = s
	}
}

// voiceGains returns the left and right gain of v and whether it is
// positional. A relative voice at the origin is played as-is.
func (c *Context) voiceGains(v *voice, right backend.Vec3) (float32, float32, bool) {
	rel := v.pos
	if !v.relative {
		rel = v.pos.Sub(c.listenerPos)
	}
	positional := !(v.relative && v.pos == backend.Vec3{})

	att := float32(1)
	if c.model == backend.DistanceLinearClamped {
		att = backend.LinearClamped(rel.Len(), v.near, v.far)
	}
	gain := v.gain * att

	if !positional || rel.Len() == 0 {
		return gain, gain, positional
	}

	pan := float64(rel.Normalize().Dot(right))
	theta := (pan + 1) * math.Pi / 4
	l := float32(min(1, math.Sqrt2*math.Cos(theta)))
	r := float32(min(1, math.Sqrt2*math.Sin(theta)))

	return gain * l, gain * r, positional
}

func (c *Context) mixVoice(dst []float32, v *voice, right backend.Vec3) {
	gl, gr, positional := c.voiceGains(v, right)
	frames := len(dst) / outputChannels

	for f := 0; f < frames; f++ {
		name, ok := v.currentBuffer()
		if !ok {
			v.state = backend.VoiceStopped
			return
		}
		buf := c.buffers[name]

		if buf == nil || v.cursor >= buf.frames() {
			switch {
			case v.static && v.looping && buf != nil && buf.frames() > 0:
				v.cursor = 0
			case !v.static && v.current+1 < len(v.queue):
				v.current++
				v.cursor = 0
				f--
				continue
			default:
				v.state = backend.VoiceStopped
				v.cursor = 0
				if !v.static {
					v.current = len(v.queue)
				}
				return
			}
		}

		var l, r float32
		switch {
		case positional || buf.channels == 1:
			s := buf.mono[v.cursor]
			l, r = s, s
		default:
			l = buf.data[v.cursor*buf.channels]
			r = buf.data[v.cursor*buf.channels+1]
		}
		dst[f*outputChannels] += l * gl
		dst[f*outputChannels+1] += r * gr
		v.cursor++
	}
}
