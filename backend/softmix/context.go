// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/utils"
)

type buffer struct {
	srcRate  int
	channels int
	// data holds the samples resampled to the mix rate, interleaved with
	// the original channel count. mono is the downmix used for panning.
	data []float32
	mono []float32
}

func (b *buffer) frames() int { return len(b.mono) }

// Context is the software mixing context. All state is guarded by one
// mutex which Render also takes, so calls never race the output.
type Context struct {
	dev       *device
	mixRate   int
	maxVoices int
	log       slog.Logger

	mtx     sync.Mutex
	current bool
	dead    bool

	model          backend.DistanceModel
	listenerPos    backend.Vec3
	listenerTarget backend.Vec3
	listenerUp     backend.Vec3
	listenerGain   float32

	nextBuffer backend.Buffer
	buffers    map[backend.Buffer]*buffer
	voices     []*voice
}

func newContext(dev *device, mixRate, maxVoices int, log slog.Logger) *Context {
	return &Context{
		dev:            dev,
		mixRate:        mixRate,
		maxVoices:      maxVoices,
		log:            log,
		model:          backend.DistanceNone,
		listenerTarget: backend.Vec3{Z: -1},
		listenerUp:     backend.Vec3{Y: 1},
		listenerGain:   1,
		buffers:        make(map[backend.Buffer]*buffer),
		voices:         make([]*voice, maxVoices),
	}
}

func (c *Context) destroyed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.dead
}

func (c *Context) alive() error {
	if c.dead {
		return backend.ErrContextDestroyed
	}

	return nil
}

func (c *Context) MakeCurrent() error {
	c.mtx.Lock()
	if err := c.alive(); err != nil {
		c.mtx.Unlock()
		return err
	}
	c.current = true
	c.mtx.Unlock()

	return c.dev.start(c)
}

// Release detaches the context; the output keeps running but renders
// silence.
func (c *Context) Release() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.current = false

	return nil
}

func (c *Context) Destroy() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.dead {
		return nil
	}
	c.dead = true
	c.current = false
	clear(c.buffers)
	clear(c.voices)

	return nil
}

func (c *Context) SetDistanceModel(m backend.DistanceModel) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	switch m {
	case backend.DistanceNone, backend.DistanceLinearClamped:
	default:
		return fmt.Errorf("%w: distance model %d", backend.ErrInvalidValue, m)
	}
	c.model = m

	return nil
}

func (c *Context) SetListenerPosition(p backend.Vec3) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	c.listenerPos = p

	return nil
}

func (c *Context) SetListenerOrientation(target, up backend.Vec3) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	if target.Len() == 0 || up.Len() == 0 {
		return fmt.Errorf("%w: zero orientation vector", backend.ErrInvalidValue)
	}
	c.listenerTarget = target
	c.listenerUp = up

	return nil
}

func (c *Context) SetListenerGain(g float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	if g < 0 {
		return fmt.Errorf("%w: listener gain %v", backend.ErrInvalidValue, g)
	}
	c.listenerGain = g

	return nil
}

func (c *Context) GenBuffer() (backend.Buffer, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return 0, err
	}
	c.nextBuffer++
	c.buffers[c.nextBuffer] = &buffer{}

	return c.nextBuffer, nil
}

// bufferInUse reports whether any voice has b bound or queued.
func (c *Context) bufferInUse(b backend.Buffer) bool {
	for _, v := range c.voices {
		if v != nil && v.holds(b) {
			return true
		}
	}

	return false
}

// BufferData converts data to float, resamples it to the mix rate and
// prepares the mono downmix. The conversion runs outside the lock.
func (c *Context) BufferData(b backend.Buffer, f backend.Format, data []int16, sampleRate int) error {
	channels := f.Channels()
	if channels == 0 {
		return fmt.Errorf("%w: format %d", backend.ErrInvalidValue, f)
	}
	if sampleRate <= 0 || len(data)%channels != 0 {
		return fmt.Errorf("%w: %d samples at %d Hz", backend.ErrInvalidValue, len(data), sampleRate)
	}

	c.mtx.Lock()
	if err := c.alive(); err != nil {
		c.mtx.Unlock()
		return err
	}
	if _, ok := c.buffers[b]; !ok {
		c.mtx.Unlock()
		return fmt.Errorf("%w: buffer %d", backend.ErrInvalidName, b)
	}
	if c.bufferInUse(b) {
		c.mtx.Unlock()
		return fmt.Errorf("%w: buffer %d is attached to a voice", backend.ErrInvalidOperation, b)
	}
	c.mtx.Unlock()

	converted, err := c.convert(data, sampleRate, channels)
	if err != nil {
		return err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if _, ok := c.buffers[b]; !ok {
		return fmt.Errorf("%w: buffer %d", backend.ErrInvalidName, b)
	}
	c.buffers[b] = converted

	return nil
}

func (c *Context) convert(data []int16, sampleRate, channels int) (*buffer, error) {
	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = utils.Int16ToFloat32(v)
	}

	resampled := samples
	if sampleRate != c.mixRate && len(samples) > 0 {
		r := audio.NewResampler(audio.NewSliceSource(sampleRate, channels, samples), c.mixRate)
		var err error
		resampled, err = audio.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: resample: %v", backend.ErrInvalidValue, err)
		}
	}

	mono := resampled
	if channels > 1 && len(resampled) > 0 {
		m := audio.NewMonoMixer(audio.NewSliceSource(c.mixRate, channels, resampled))
		var err error
		mono, err = audio.ReadAll(m)
		if err != nil {
			return nil, fmt.Errorf("%w: downmix: %v", backend.ErrInvalidValue, err)
		}
	}

	return &buffer{
		srcRate:  sampleRate,
		channels: channels,
		data:     resampled[:len(mono)*channels],
		mono:     mono,
	}, nil
}

func (c *Context) DeleteBuffer(b backend.Buffer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	if _, ok := c.buffers[b]; !ok {
		return fmt.Errorf("%w: buffer %d", backend.ErrInvalidName, b)
	}
	if c.bufferInUse(b) {
		return fmt.Errorf("%w: buffer %d is attached to a voice", backend.ErrInvalidOperation, b)
	}
	delete(c.buffers, b)

	return nil
}

// BufferCount returns the number of live buffers.
func (c *Context) BufferCount() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return len(c.buffers)
}

// VoiceCount returns the number of allocated voices.
func (c *Context) VoiceCount() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	n := 0
	for _, v := range c.voices {
		if v != nil {
			n++
		}
	}

	return n
}
