// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/utils"
)

// Vec3 is a point in world space.
type Vec3 = backend.Vec3

// DefaultCategory is used for channels played without a category.
const DefaultCategory = "default"

// PlayParams configures a new channel.
type PlayParams struct {
	Gain float32
	// Position is nil for sounds that follow the listener and are never
	// attenuated.
	Position *Vec3
	// Near and Far override the sound's radii when Far is positive.
	Near, Far float32
	Category  string
	Muffle    bool
	Loop      bool
}

// DefaultPlayParams returns full gain in the default category.
func DefaultPlayParams() PlayParams {
	return PlayParams{Gain: 1, Category: DefaultCategory}
}

// Channel is one playback of a Sound on one voice.
type Channel struct {
	engine *Engine
	sound  *Sound
	pool   *pool

	// slot and voice are set once, when the channel enters its pool.
	slot  int
	voice backend.Voice

	mtx      sync.Mutex
	gain     float32
	position *Vec3
	near     float32
	far      float32
	category string
	muffled  bool
	looping  bool
	fading   bool
	started  bool
	disposed bool

	stream *channelStream
}

// channelStream is the decode state of a streamed channel.
type channelStream struct {
	buffers []backend.Buffer
	free    []backend.Buffer
	cursor  int64
	eof     bool
	done    bool
	peaks   []float32 // per queued buffer, oldest first
	block   []float32
	pcm     []int16
}

func newChannel(e *Engine, s *Sound, p PlayParams) *Channel {
	category := strings.ToLower(p.Category)
	if category == "" {
		category = DefaultCategory
	}
	near, far := s.near, s.far
	if p.Far > 0 {
		near, far = p.Near, p.Far
	}

	ch := &Channel{
		engine:   e,
		sound:    s,
		pool:     e.pools[s.pool],
		slot:     -1,
		gain:     p.Gain,
		near:     near,
		far:      far,
		category: category,
		muffled:  p.Muffle || e.categoryMuffle(category),
		looping:  p.Loop,
	}
	if p.Position != nil {
		pos := *p.Position
		ch.position = &pos
	}
	if s.Streamed() {
		ch.stream = &channelStream{}
	}

	return ch
}

// Play starts s on a free voice of its pool. When every voice is playing
// the request is dropped with ErrNoVoice.
func (e *Engine) Play(s *Sound, p PlayParams) (*Channel, error) {
	if e.off() {
		return nil, e.offErr()
	}
	if s == nil || s.closed.Load() {
		return nil, ErrSoundClosed
	}

	return e.play(s, p)
}

func (e *Engine) play(s *Sound, p PlayParams) (*Channel, error) {
	ch := newChannel(e, s, p)
	if _, ok := e.AssignVoice(ch); !ok {
		e.metrics.playsDropped.WithLabelValues(s.pool.String()).Inc()
		e.drops.dropped(s.pool, s.path)
		return nil, fmt.Errorf("%w: %s", ErrNoVoice, s.path)
	}

	if err := ch.start(); err != nil {
		ch.Dispose()
		return nil, err
	}
	if ch.stream != nil {
		e.InitStreamThread()
	}

	return ch, nil
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackend, op, err)
}

func (c *Channel) start() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.disposed {
		return ErrNoVoice
	}
	ctx := c.engine.ctx

	if err := c.pushPosition(); err != nil {
		return err
	}
	if err := ctx.SetVoiceRange(c.voice, c.near, c.far); err != nil {
		return backendErr("voice range", err)
	}
	if err := c.pushGain(); err != nil {
		return err
	}

	c.started = true
	d, ok := c.sound.data.(*bufferedData)
	if !ok {
		if err := ctx.SetVoiceBuffer(c.voice, 0); err != nil {
			return backendErr("voice buffer", err)
		}
		if err := ctx.SetVoiceLooping(c.voice, false); err != nil {
			return backendErr("voice looping", err)
		}
		if err := c.allocStream(); err != nil {
			return err
		}
		return c.refill()
	}

	buf := d.clear
	if c.muffled {
		buf = d.muffled
	}
	if err := ctx.SetVoiceBuffer(c.voice, buf); err != nil {
		return backendErr("voice buffer", err)
	}
	if err := ctx.SetVoiceLooping(c.voice, c.looping); err != nil {
		return backendErr("voice looping", err)
	}
	if err := ctx.Play(c.voice); err != nil {
		return backendErr("play", err)
	}

	return nil
}

func (c *Channel) effectiveGain() float32 {
	e := c.engine
	return c.gain * c.sound.baseGain * e.categoryGain(c.category, -1) * e.CompressionGain()
}

func (c *Channel) pushGain() error {
	if err := c.engine.ctx.SetVoiceGain(c.voice, max(c.effectiveGain(), 0)); err != nil {
		return backendErr("voice gain", err)
	}

	return nil
}

func (c *Channel) pushPosition() error {
	var err error
	if c.position == nil {
		err = c.engine.ctx.SetVoicePosition(c.voice, Vec3{}, true)
	} else {
		err = c.engine.ctx.SetVoicePosition(c.voice, *c.position, false)
	}
	if err != nil {
		return backendErr("voice position", err)
	}

	return nil
}

// live reports whether the channel may still touch its voice.
func (c *Channel) live() bool { return c.started && !c.disposed }

func (c *Channel) Sound() *Sound    { return c.sound }
func (c *Channel) Category() string { return c.category }
func (c *Channel) IsStream() bool   { return c.stream != nil }

// Slot returns the pool slot the channel occupies.
func (c *Channel) Slot() int { return c.slot }

func (c *Channel) Gain() float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.gain
}

// SetGain changes the channel gain and pushes the effective gain, which
// also folds in the sound, category and compression gains.
func (c *Channel) SetGain(g float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.gain = g
	if !c.live() {
		return nil
	}

	return c.pushGain()
}

// refreshGain pushes the effective gain again after a category or
// compression change.
func (c *Channel) refreshGain() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.live() {
		return nil
	}

	return c.pushGain()
}

// Position returns a copy of the position, or nil.
func (c *Channel) Position() *Vec3 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.position == nil {
		return nil
	}
	p := *c.position

	return &p
}

func (c *Channel) SetPosition(p *Vec3) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if p == nil {
		c.position = nil
	} else {
		pos := *p
		c.position = &pos
	}
	if !c.live() {
		return nil
	}

	return c.pushPosition()
}

func (c *Channel) Near() float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.near
}

func (c *Channel) Far() float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.far
}

func (c *Channel) SetRange(near, far float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.near, c.far = near, far
	if !c.live() {
		return nil
	}
	if err := c.engine.ctx.SetVoiceRange(c.voice, near, far); err != nil {
		return backendErr("voice range", err)
	}

	return nil
}

func (c *Channel) Muffled() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.muffled
}

// SetMuffled switches a buffered channel between its clear and muffled
// buffers, keeping the playback position. Streamed channels only record
// the flag; their audio is never filtered.
func (c *Channel) SetMuffled(m bool) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.muffled == m {
		return nil
	}
	c.muffled = m

	d, ok := c.sound.data.(*bufferedData)
	if !ok || !c.live() {
		return nil
	}

	ctx := c.engine.ctx
	state, err := ctx.State(c.voice)
	if err != nil {
		return backendErr("voice state", err)
	}
	offset, err := ctx.Offset(c.voice)
	if err != nil {
		return backendErr("voice offset", err)
	}

	buf := d.clear
	if m {
		buf = d.muffled
	}
	if err := ctx.Stop(c.voice); err != nil {
		return backendErr("stop", err)
	}
	if err := ctx.SetVoiceBuffer(c.voice, buf); err != nil {
		return backendErr("voice buffer", err)
	}
	if state != backend.VoicePlaying && state != backend.VoicePaused {
		return nil
	}
	if err := ctx.SetOffset(c.voice, offset); err != nil {
		return backendErr("voice offset", err)
	}
	if err := ctx.Play(c.voice); err != nil {
		return backendErr("play", err)
	}
	if state == backend.VoicePaused {
		if err := ctx.Pause(c.voice); err != nil {
			return backendErr("pause", err)
		}
	}

	return nil
}

func (c *Channel) Looping() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.looping
}

func (c *Channel) SetLooping(loop bool) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.looping = loop
	if c.stream != nil || !c.live() {
		return nil
	}
	if err := c.engine.ctx.SetVoiceLooping(c.voice, loop); err != nil {
		return backendErr("voice looping", err)
	}

	return nil
}

// FadeOutAndDispose lowers the gain of a buffered channel a step per
// streaming pass and disposes it once silent. Streams are disposed when
// they end.
func (c *Channel) FadeOutAndDispose() {
	c.mtx.Lock()
	c.fading = true
	c.mtx.Unlock()

	c.engine.InitStreamThread()
}

func (c *Channel) FadingOutAndDisposing() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.fading
}

// IsPlaying reports whether the channel is still producing audio. A
// channel that has been assigned a voice but not started yet counts as
// playing, so it cannot be evicted. A stream keeps playing through
// underruns until its decoder runs dry.
func (c *Channel) IsPlaying() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.isPlaying()
}

func (c *Channel) isPlaying() bool {
	switch {
	case c.disposed:
		return false
	case !c.started:
		return true
	case c.stream != nil:
		return !c.stream.done
	}

	state, err := c.engine.ctx.State(c.voice)

	return err == nil && state == backend.VoicePlaying
}

// CurrentAmplitude is the peak amplitude around the playback position:
// looked up in the envelope for buffered sounds, and for streams the peak
// of the queued buffer the voice is playing.
func (c *Channel) CurrentAmplitude() float32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.started || !c.isPlaying() {
		return 0
	}
	if c.stream != nil {
		if len(c.stream.peaks) == 0 {
			return 0
		}
		return c.stream.peaks[0]
	}
	offset, err := c.engine.ctx.Offset(c.voice)
	if err != nil {
		return 0
	}

	return c.sound.AmplitudeAt(offset)
}

// Dispose stops the channel and frees its voice. It is safe to call more
// than once and from several goroutines.
func (c *Channel) Dispose() {
	c.mtx.Lock()
	if c.disposed {
		c.mtx.Unlock()
		return
	}
	c.disposed = true

	e := c.engine
	if c.slot >= 0 && e.ctxAlive.Load() {
		ctx := e.ctx
		err := errors.Join(ctx.Stop(c.voice), ctx.SetVoiceBuffer(c.voice, 0))
		if c.stream != nil {
			for _, b := range c.stream.buffers {
				err = errors.Join(err, ctx.DeleteBuffer(b))
			}
			c.stream.buffers = nil
			c.stream.free = nil
			c.stream.peaks = nil
		}
		if err != nil {
			e.log.Errorf("Dispose channel for %s: %v", c.sound.path, err)
		}
	}
	c.mtx.Unlock()

	if c.slot >= 0 {
		c.pool.remove(c, c.slot)
		e.metrics.voicesInUse.WithLabelValues(c.pool.id.String()).Set(float64(c.pool.inUse()))
	}
}

func (c *Channel) allocStream() error {
	cs := c.stream
	n := c.engine.cfg.StreamBuffers
	for range n {
		b, err := c.engine.ctx.GenBuffer()
		if err != nil {
			return backendErr("stream buffer", err)
		}
		cs.buffers = append(cs.buffers, b)
	}
	cs.free = append(cs.free[:0], cs.buffers...)
	cs.block = make([]float32, c.engine.cfg.StreamBlockFrames*c.sound.channels)

	return nil
}

// updateStream is called by the streaming goroutine.
func (c *Channel) updateStream() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.live() || c.stream == nil || c.stream.done {
		return
	}
	if err := c.refill(); err != nil {
		c.engine.log.Errorf("Stream %s: %v", c.sound.path, err)
		c.stream.done = true
	}
}

// refill reclaims processed buffers, fills them from the decoder at the
// channel cursor and queues them. A voice that ran dry while data remains
// is restarted; one that ran dry at the end of the sound ends the stream.
func (c *Channel) refill() error {
	ctx := c.engine.ctx
	cs := c.stream
	s := c.sound
	data := s.data.(*streamData)

	processed, err := ctx.UnqueueProcessed(c.voice)
	if err != nil {
		return backendErr("unqueue", err)
	}
	cs.free = append(cs.free, processed...)
	cs.peaks = cs.peaks[min(len(processed), len(cs.peaks)):]

	for len(cs.free) > 0 && !cs.eof {
		n, err := data.readAt(cs.cursor, cs.block, s.channels)
		ended := errors.Is(err, io.EOF)
		if err != nil && !ended {
			return fmt.Errorf("decode: %w", err)
		}

		if n > 0 {
			cs.pcm = utils.CastBuffer(cs.pcm, cs.block[:n])
			b := cs.free[0]
			if err := ctx.BufferData(b, s.format, cs.pcm, s.sampleRate); err != nil {
				return backendErr("stream buffer data", err)
			}
			if err := ctx.QueueBuffers(c.voice, b); err != nil {
				return backendErr("queue", err)
			}
			cs.free = cs.free[1:]
			cs.cursor += int64(n / s.channels)
			cs.peaks = append(cs.peaks, utils.PeakAbs(cs.block[:n]))
		}

		switch {
		case ended && c.looping && (n > 0 || cs.cursor > 0):
			cs.cursor = 0
		case ended:
			cs.eof = true
		case n < len(cs.block):
			// Live source with nothing more queued.
			return c.kick()
		}
	}

	return c.kick()
}

// kick restarts a voice that stopped with buffers queued and notices the
// end of a finished stream.
func (c *Channel) kick() error {
	ctx := c.engine.ctx
	state, err := ctx.State(c.voice)
	if err != nil {
		return backendErr("voice state", err)
	}
	if state == backend.VoicePlaying || state == backend.VoicePaused {
		return nil
	}

	queued, err := ctx.QueuedBuffers(c.voice)
	if err != nil {
		return backendErr("queued buffers", err)
	}
	if queued > 0 {
		if err := ctx.Play(c.voice); err != nil {
			return backendErr("play", err)
		}
		return nil
	}
	if c.stream.eof {
		c.stream.done = true
		c.stream.peaks = nil
	}

	return nil
}
