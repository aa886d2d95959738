// SPDX-License-Identifier: EPL-2.0

// Package pulse renders the software mix through a PulseAudio server using
// the pure Go client from github.com/jfreymuth/pulse.
package pulse

import (
	"fmt"
	"sync"

	"github.com/ik5/audspace/backend"
	"github.com/jfreymuth/pulse"
)

// latency is the requested server-side buffer, in seconds.
const latency = 0.05

type Output struct {
	client     *pulse.Client
	sampleRate int
	channels   int

	mtx    sync.Mutex
	stream *pulse.PlaybackStream
	closed bool
}

// Open connects to the server. A server that cannot be reached yet is
// reported as backend.ErrDeviceNotReady so the engine retries once.
func Open(sampleRate, channels int) (backend.Output, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", backend.ErrInvalidValue, channels)
	}

	c, err := pulse.NewClient(pulse.ClientApplicationName("audspace"))
	if err != nil {
		return nil, fmt.Errorf("%w: pulse: %v", backend.ErrDeviceNotReady, err)
	}

	return &Output{
		client:     c,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

func (o *Output) Start(r backend.Renderer) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return backend.ErrNoDevice
	}
	if o.stream != nil {
		return nil
	}

	reader := pulse.Float32Reader(func(buf []float32) (int, error) {
		r.Render(buf)
		return len(buf), nil
	})

	layout := pulse.PlaybackStereo
	if o.channels == 1 {
		layout = pulse.PlaybackMono
	}

	stream, err := o.client.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(o.sampleRate),
		pulse.PlaybackLatency(latency),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	stream.Start()
	o.stream = stream

	return nil
}

func (o *Output) Close() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	if o.stream != nil {
		o.stream.Stop()
		o.stream.Close()
	}
	o.client.Close()

	return nil
}
