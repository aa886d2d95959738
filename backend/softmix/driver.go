// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/ik5/audspace/backend"
)

const (
	DefaultSampleRate = 48000
	DefaultMaxVoices  = 64

	// outputChannels is fixed: every voice is mixed down to stereo.
	outputChannels = 2
)

// Driver is a backend.Driver that mixes in software and hands the result
// to an Output.
type Driver struct {
	open       backend.OutputOpener
	sampleRate int
	maxVoices  int
	log        slog.Logger
}

type Option func(*Driver)

// WithSampleRate sets the mix rate. Buffers are resampled to it on upload.
func WithSampleRate(rate int) Option {
	return func(d *Driver) {
		if rate > 0 {
			d.sampleRate = rate
		}
	}
}

// WithMaxVoices sets how many voices a context can hold at once.
func WithMaxVoices(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxVoices = n
		}
	}
}

func WithLogger(log slog.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

func NewDriver(open backend.OutputOpener, opts ...Option) *Driver {
	d := &Driver{
		open:       open,
		sampleRate: DefaultSampleRate,
		maxVoices:  DefaultMaxVoices,
		log:        slog.Disabled,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) SampleRate() int { return d.sampleRate }
func (d *Driver) MaxVoices() int  { return d.maxVoices }

// OpenDevice opens the output. Errors from the opener are passed through so
// backend.ErrDeviceNotReady stays visible to the caller.
func (d *Driver) OpenDevice() (backend.Device, error) {
	if d.open == nil {
		return nil, backend.ErrNoDevice
	}

	out, err := d.open(d.sampleRate, outputChannels)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	d.log.Debugf("Opened output at %d Hz with %d voices", d.sampleRate, d.maxVoices)

	return &device{
		driver: d,
		out:    out,
	}, nil
}

type device struct {
	driver *Driver
	out    backend.Output

	mtx     sync.Mutex
	ctx     *Context
	started bool
	closed  bool
}

func (dev *device) CreateContext() (backend.Context, error) {
	dev.mtx.Lock()
	defer dev.mtx.Unlock()

	if dev.closed {
		return nil, backend.ErrNoDevice
	}
	if dev.ctx != nil && !dev.ctx.destroyed() {
		return nil, fmt.Errorf("%w: device already has a context", backend.ErrInvalidOperation)
	}

	dev.ctx = newContext(dev, dev.driver.sampleRate, dev.driver.maxVoices, dev.driver.log)

	return dev.ctx, nil
}

// start begins pulling from the context the first time it becomes current.
func (dev *device) start(ctx *Context) error {
	dev.mtx.Lock()
	defer dev.mtx.Unlock()

	if dev.closed {
		return backend.ErrNoDevice
	}
	if dev.started {
		return nil
	}
	if err := dev.out.Start(ctx); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	dev.started = true

	return nil
}

func (dev *device) Close() error {
	dev.mtx.Lock()
	defer dev.mtx.Unlock()

	if dev.closed {
		return nil
	}
	dev.closed = true

	if err := dev.out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	return nil
}
