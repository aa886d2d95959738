// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"fmt"
	"math"

	"github.com/ik5/audspace/backend"
)

type voice struct {
	state    backend.VoiceState
	gain     float32
	pos      backend.Vec3
	relative bool
	near     float32
	far      float32
	looping  bool

	// static is set when a single buffer was bound with SetVoiceBuffer;
	// otherwise queue is a streaming queue and current indexes the buffer
	// being played. Buffers before current are processed.
	static  bool
	queue   []backend.Buffer
	current int
	cursor  int
	// seeked keeps an offset set while stopped from being reset by Play.
	seeked bool
}

func newVoice() *voice {
	return &voice{
		state:    backend.VoiceInitial,
		gain:     1,
		relative: false,
		near:     1,
		far:      math.MaxFloat32,
	}
}

func (v *voice) holds(b backend.Buffer) bool {
	for _, q := range v.queue {
		if q == b {
			return true
		}
	}

	return false
}

func (v *voice) currentBuffer() (backend.Buffer, bool) {
	if v.current < len(v.queue) {
		return v.queue[v.current], true
	}

	return 0, false
}

func (c *Context) voice(name backend.Voice) (*voice, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	idx := int(name) - 1
	if idx < 0 || idx >= len(c.voices) || c.voices[idx] == nil {
		return nil, fmt.Errorf("%w: voice %d", backend.ErrInvalidName, name)
	}

	return c.voices[idx], nil
}

// GenVoice allocates one of the fixed voice slots.
func (c *Context) GenVoice() (backend.Voice, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return 0, err
	}
	for i, v := range c.voices {
		if v == nil {
			c.voices[i] = newVoice()
			return backend.Voice(i + 1), nil
		}
	}

	return 0, fmt.Errorf("%w: all %d voices in use", backend.ErrOutOfMemory, c.maxVoices)
}

func (c *Context) DeleteVoice(name backend.Voice) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if _, err := c.voice(name); err != nil {
		return err
	}
	c.voices[int(name)-1] = nil

	return nil
}

func (c *Context) IsVoice(name backend.Voice) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	_, err := c.voice(name)

	return err == nil
}

func (c *Context) SetVoiceBuffer(name backend.Voice, b backend.Buffer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	if v.state == backend.VoicePlaying || v.state == backend.VoicePaused {
		return fmt.Errorf("%w: voice %d is %v", backend.ErrInvalidOperation, name, v.state)
	}

	v.queue = v.queue[:0]
	v.current = 0
	v.cursor = 0
	v.seeked = false
	v.static = false
	if b == 0 {
		v.state = backend.VoiceInitial
		return nil
	}
	if _, ok := c.buffers[b]; !ok {
		return fmt.Errorf("%w: buffer %d", backend.ErrInvalidName, b)
	}
	v.queue = append(v.queue, b)
	v.static = true

	return nil
}

func (c *Context) QueueBuffers(name backend.Voice, bs ...backend.Buffer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	if v.static {
		return fmt.Errorf("%w: voice %d has a static buffer", backend.ErrInvalidOperation, name)
	}
	for _, b := range bs {
		if _, ok := c.buffers[b]; !ok {
			return fmt.Errorf("%w: buffer %d", backend.ErrInvalidName, b)
		}
	}
	v.queue = append(v.queue, bs...)

	return nil
}

func (c *Context) UnqueueProcessed(name backend.Voice) ([]backend.Buffer, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return nil, err
	}
	if v.static || v.current == 0 {
		return nil, nil
	}

	done := append([]backend.Buffer(nil), v.queue[:v.current]...)
	v.queue = append(v.queue[:0], v.queue[v.current:]...)
	v.current = 0

	return done, nil
}

func (c *Context) QueuedBuffers(name backend.Voice) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return 0, err
	}

	return len(v.queue), nil
}

func (c *Context) SetVoiceGain(name backend.Voice, g float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	if g < 0 || math.IsNaN(float64(g)) {
		return fmt.Errorf("%w: gain %v", backend.ErrInvalidValue, g)
	}
	v.gain = g

	return nil
}

func (c *Context) SetVoicePosition(name backend.Voice, p backend.Vec3, relative bool) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	v.pos = p
	v.relative = relative

	return nil
}

func (c *Context) SetVoiceRange(name backend.Voice, near, far float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	if near < 0 || far < 0 {
		return fmt.Errorf("%w: range %v..%v", backend.ErrInvalidValue, near, far)
	}
	v.near = near
	v.far = far

	return nil
}

func (c *Context) SetVoiceLooping(name backend.Voice, loop bool) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	v.looping = loop

	return nil
}

// Play starts or resumes a voice. A stopped static voice restarts from the
// beginning unless an offset was set while it was stopped.
func (c *Context) Play(name backend.Voice) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}

	switch v.state {
	case backend.VoicePaused:
	case backend.VoicePlaying:
		if v.static {
			v.cursor = 0
		}
	default:
		if !v.seeked {
			v.cursor = 0
			if v.static {
				v.current = 0
			}
		}
	}
	v.seeked = false
	v.state = backend.VoicePlaying

	return nil
}

func (c *Context) Pause(name backend.Voice) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	if v.state == backend.VoicePlaying {
		v.state = backend.VoicePaused
	}

	return nil
}

// Stop halts a voice and marks every queued buffer processed.
func (c *Context) Stop(name backend.Voice) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	v.state = backend.VoiceStopped
	v.cursor = 0
	v.seeked = false
	if !v.static {
		v.current = len(v.queue)
	}

	return nil
}

func (c *Context) State(name backend.Voice) (backend.VoiceState, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return backend.VoiceInitial, err
	}

	return v.state, nil
}

func (c *Context) Offset(name backend.Voice) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return 0, err
	}
	b, ok := v.currentBuffer()
	if !ok {
		return 0, nil
	}
	buf := c.buffers[b]
	if buf == nil || buf.srcRate == 0 {
		return 0, nil
	}

	return int(int64(v.cursor) * int64(buf.srcRate) / int64(c.mixRate)), nil
}

func (c *Context) SetOffset(name backend.Voice, frame int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	v, err := c.voice(name)
	if err != nil {
		return err
	}
	b, ok := v.currentBuffer()
	if !ok {
		return fmt.Errorf("%w: voice %d has no buffer", backend.ErrInvalidOperation, name)
	}
	buf := c.buffers[b]
	cursor := int(int64(frame) * int64(c.mixRate) / int64(max(buf.srcRate, 1)))
	if frame < 0 || cursor > buf.frames() {
		return fmt.Errorf("%w: offset %d", backend.ErrInvalidValue, frame)
	}
	v.cursor = cursor
	v.seeked = v.state != backend.VoicePlaying && v.state != backend.VoicePaused

	return nil
}
