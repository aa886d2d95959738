//go:build !headless

// SPDX-License-Identifier: EPL-2.0

package oto

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/audspace/backend"
)

// readyTimeout bounds the wait for the platform device. Missing it is the
// device-not-ready condition.
const readyTimeout = 2 * time.Second

// oto allows a single context per process, so it is shared by every Open.
var shared struct {
	mtx        sync.Mutex
	ctx        *oto.Context
	ready      chan struct{}
	sampleRate int
	channels   int
}

func sharedContext(sampleRate, channels int) (*oto.Context, chan struct{}, error) {
	shared.mtx.Lock()
	defer shared.mtx.Unlock()

	if shared.ctx != nil {
		if shared.sampleRate != sampleRate || shared.channels != channels {
			return nil, nil, fmt.Errorf("%w: oto context already open at %d Hz, %d channels",
				backend.ErrInvalidOperation, shared.sampleRate, shared.channels)
		}
		return shared.ctx, shared.ready, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: oto: %v", backend.ErrNoDevice, err)
	}
	shared.ctx = ctx
	shared.ready = ready
	shared.sampleRate = sampleRate
	shared.channels = channels

	return ctx, ready, nil
}

type Output struct {
	ctx      *oto.Context
	channels int

	mtx      sync.Mutex
	player   *oto.Player
	renderer backend.Renderer
	buf      []float32
	closed   bool
}

// Open waits for the shared context to become ready.
func Open(sampleRate, channels int) (backend.Output, error) {
	ctx, ready, err := sharedContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
		return nil, backend.ErrDeviceNotReady
	}

	return &Output{ctx: ctx, channels: channels}, nil
}

// Read implements io.Reader for the oto player.
func (o *Output) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(o.buf) < n {
		o.buf = make([]float32, n)
	}
	buf := o.buf[:n]

	o.mtx.Lock()
	r := o.renderer
	o.mtx.Unlock()

	if r == nil {
		clear(buf)
	} else {
		r.Render(buf)
	}
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}

	return n * 4, nil
}

func (o *Output) Start(r backend.Renderer) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return backend.ErrNoDevice
	}
	o.renderer = r
	if o.player == nil {
		o.player = o.ctx.NewPlayer(o)
		o.player.Play()
	}

	return nil
}

func (o *Output) Close() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.renderer = nil

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			return fmt.Errorf("oto player: %w", err)
		}
	}

	return nil
}
