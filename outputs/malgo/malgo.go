//go:build cgo && !noaudio

// SPDX-License-Identifier: EPL-2.0

package malgo

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/ik5/audspace/backend"
)

// periodSizeMS is the device callback period.
const periodSizeMS = 10

type Output struct {
	ctx        *malgo.AllocatedContext
	sampleRate int
	channels   int

	mtx    sync.Mutex
	device *malgo.Device
	buf    []float32
	closed bool
}

// Open initialises a miniaudio context. The device itself is created by
// Start, once there is something to render.
func Open(sampleRate, channels int) (backend.Output, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: malgo: %v", backend.ErrNoDevice, err)
	}

	return &Output{
		ctx:        ctx,
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
	if o.device != nil {
		return nil
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(o.channels)
	cfg.SampleRate = uint32(o.sampleRate)
	cfg.PeriodSizeInMilliseconds = periodSizeMS
	cfg.Alsa.NoMMap = 1

	onSamples := func(out, _ []byte, framecount uint32) {
		n := int(framecount) * o.channels
		if cap(o.buf) < n {
			o.buf = make([]float32, n)
		}
		buf := o.buf[:n]
		r.Render(buf)

		for i, s := range buf {
			if (i+1)*4 > len(out) {
				break
			}
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
		}
	}

	device, err := malgo.InitDevice(o.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("%w: malgo device: %v", backend.ErrDeviceNotReady, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("malgo start: %w", err)
	}
	o.device = device

	return nil
}

func (o *Output) Close() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	if o.device != nil {
		_ = o.device.Stop()
		o.device.Uninit()
	}
	if err := o.ctx.Uninit(); err != nil {
		return fmt.Errorf("malgo uninit: %w", err)
	}
	o.ctx.Free()

	return nil
}
