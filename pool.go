// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ik5/audspace/backend"
)

// PoolID selects a voice pool.
type PoolID int

const (
	// PoolDefault serves every sound effect and music track.
	PoolDefault PoolID = iota
	// PoolVoice serves live voice chat.
	PoolVoice

	numPools = 2
)

func (p PoolID) String() string {
	switch p {
	case PoolDefault:
		return "default"
	case PoolVoice:
		return "voice"
	}

	return fmt.Sprintf("pool(%d)", int(p))
}

// ParsePool maps a catalog pool name to a PoolID. The empty name is the
// default pool.
func ParsePool(name string) (PoolID, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return PoolDefault, nil
	case "voice", "voip":
		return PoolVoice, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidPool, name)
}

// pool is a fixed set of backend voices and the channel occupying each.
// The mutex guards channels only; it is never held across a call that
// changes backend state.
type pool struct {
	id     PoolID
	voices []backend.Voice

	mtx      sync.Mutex
	channels []*Channel
}

func newPool(ctx backend.Context, id PoolID, size int) (*pool, error) {
	p := &pool{
		id:       id,
		voices:   make([]backend.Voice, 0, size),
		channels: make([]*Channel, size),
	}
	for range size {
		v, err := ctx.GenVoice()
		if err != nil {
			p.release(ctx)
			return nil, fmt.Errorf("%w: %s pool voice %d of %d: %w",
				ErrBackend, id, len(p.voices)+1, size, err)
		}
		p.voices = append(p.voices, v)
	}

	return p, nil
}

func (p *pool) release(ctx backend.Context) error {
	var errs []error
	for _, v := range p.voices {
		if err := ctx.DeleteVoice(v); err != nil {
			errs = append(errs, err)
		}
	}
	p.voices = p.voices[:0]

	return errors.Join(errs...)
}

func (p *pool) size() int { return len(p.channels) }

// assign installs ch in the first slot that is empty or whose channel has
// stopped. It returns the slot and the channel that was evicted, which the
// caller must dispose before using the voice.
func (p *pool) assign(ch *Channel) (int, *Channel, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for i, occ := range p.channels {
		if occ == nil || !occ.IsPlaying() {
			ch.slot = i
			ch.voice = p.voices[i]
			p.channels[i] = ch
			return i, occ, true
		}
	}

	return -1, nil, false
}

// remove clears ch's slot if ch still holds it.
func (p *pool) remove(ch *Channel, slot int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if slot >= 0 && slot < len(p.channels) && p.channels[slot] == ch {
		p.channels[slot] = nil
	}
}

func (p *pool) at(slot int) *Channel {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if slot < 0 || slot >= len(p.channels) {
		return nil
	}

	return p.channels[slot]
}

// snapshot returns the occupied slots.
func (p *pool) snapshot() []*Channel {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	out := make([]*Channel, 0, len(p.channels))
	for _, ch := range p.channels {
		if ch != nil {
			out = append(out, ch)
		}
	}

	return out
}

// scan calls fn for every occupied slot with the pool locked. fn must not
// call into the backend beyond state queries.
func (p *pool) scan(fn func(ch *Channel) bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, ch := range p.channels {
		if ch != nil && !fn(ch) {
			return
		}
	}
}

func (p *pool) inUse() int {
	n := 0
	p.scan(func(*Channel) bool {
		n++
		return true
	})

	return n
}

// AssignVoice binds ch to the first voice of its pool that is free or
// holds a finished channel; the finished channel is disposed. It returns
// false when every voice is playing. A channel that already has a voice
// keeps it.
func (e *Engine) AssignVoice(ch *Channel) (int, bool) {
	if e.off() || ch == nil {
		return -1, false
	}
	if ch.slot >= 0 {
		return ch.slot, true
	}

	slot, evicted, ok := ch.pool.assign(ch)
	if !ok {
		return -1, false
	}
	if evicted != nil {
		evicted.Dispose()
	}
	e.metrics.voicesInUse.WithLabelValues(ch.pool.id.String()).Set(float64(ch.pool.inUse()))

	return slot, true
}

// ChannelAt returns the channel in a pool slot, or nil.
func (e *Engine) ChannelAt(id PoolID, slot int) *Channel {
	if e.off() || id < 0 || id >= numPools {
		return nil
	}

	return e.pools[id].at(slot)
}

// VoiceAt returns the backend voice behind a pool slot.
func (e *Engine) VoiceAt(id PoolID, slot int) (backend.Voice, bool) {
	if e.off() || id < 0 || id >= numPools {
		return 0, false
	}
	p := e.pools[id]
	if slot < 0 || slot >= len(p.voices) {
		return 0, false
	}
	v := p.voices[slot]

	return v, e.ctx.IsVoice(v)
}

// PoolSize returns the capacity of a pool.
func (e *Engine) PoolSize(id PoolID) int {
	if e.off() || id < 0 || id >= numPools {
		return 0
	}

	return e.pools[id].size()
}

// IsPlaying reports whether any channel bound to exactly s is playing.
func (e *Engine) IsPlaying(s *Sound) bool {
	return e.ChannelFromSound(s) != nil
}

// ChannelFromSound returns a playing channel bound to s.
func (e *Engine) ChannelFromSound(s *Sound) *Channel {
	if e.off() || s == nil {
		return nil
	}

	var found *Channel
	e.pools[s.pool].scan(func(ch *Channel) bool {
		if ch.sound == s && ch.IsPlaying() {
			found = ch
			return false
		}
		return true
	})

	return found
}

// CountPlayingInstances counts playing channels whose sound has the same
// path as s, so duplicate loads of one file count together.
func (e *Engine) CountPlayingInstances(s *Sound) int {
	if e.off() || s == nil {
		return 0
	}

	n := 0
	e.pools[s.pool].scan(func(ch *Channel) bool {
		if ch.sound.path == s.path && ch.IsPlaying() {
			n++
		}
		return true
	})

	return n
}

// KillChannels disposes every channel bound to s.
func (e *Engine) KillChannels(s *Sound) {
	if s == nil || e.off() {
		return
	}

	var kill []*Channel
	e.pools[s.pool].scan(func(ch *Channel) bool {
		if ch.sound == s {
			kill = append(kill, ch)
		}
		return true
	})
	for _, ch := range kill {
		ch.Dispose()
	}
}
