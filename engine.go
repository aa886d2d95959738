// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/backend/softmix"
	"github.com/ik5/audspace/dsp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// listenerGainEpsilon is the smallest listener gain change pushed to the
// backend.
const listenerGainEpsilon = 0.001

// Engine owns the audio device, the voice pools, the loaded sounds and the
// streaming goroutine. An Engine whose device could not be opened is
// disabled: every method is then a harmless no-op.
type Engine struct {
	cfg      Config
	log      slog.Logger
	drops    *dropLog
	now      func() time.Time
	metrics  *metrics
	registry *audio.Registry
	driver   backend.Driver
	reg      prometheus.Registerer

	disabled bool
	err      error
	closed   atomic.Bool
	// ctxAlive is cleared before the context is torn down.
	ctxAlive atomic.Bool

	dev     backend.Device
	ctx     backend.Context
	pools   [numPools]*pool
	filters *dsp.FilterBank

	listenerMtx    sync.Mutex
	listenerPos    Vec3
	listenerTarget Vec3
	listenerUp     Vec3
	listenerGain   float32

	soundsMtx sync.Mutex
	sounds    []*Sound

	categories  *xsync.MapOf[string, *category]
	compression atomicFloat32

	voipMtx   sync.Mutex
	voipGain  float32
	voipSetAt time.Time

	streamMtx     sync.Mutex
	streamRunning bool
	streamKick    bool
	streamWG      sync.WaitGroup
	quit          chan struct{}
}

type Option func(*Engine)

func WithLogger(log slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithDriver replaces the driver built from Config.Output.
func WithDriver(d backend.Driver) Option {
	return func(e *Engine) { e.driver = d }
}

// WithClock replaces time.Now for the voice chat release timer.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics registers the engine metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.reg = reg }
}

// WithRegistry replaces the default decoder registry.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// Open initializes the engine. It never returns a nil Engine. When the
// device or context cannot be brought up the engine is disabled and Open
// returns no error; the cause is kept in Err. Backend failures after the
// device is up, and invalid configuration, are returned together with a
// disabled engine.
func Open(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:            cfg,
		log:            slog.Disabled,
		now:            time.Now,
		disabled:       true,
		listenerTarget: Vec3{Z: 1},
		listenerUp:     Vec3{Y: -1},
		listenerGain:   1,
		categories:     xsync.NewMapOf[string, *category](),
		voipGain:       1,
		quit:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.drops = newDropLog(e.log)
	e.metrics = newMetrics(e.reg, e.log)
	e.compression.Store(1)
	e.metrics.compressionGain.Set(1)
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}

	if err := cfg.Validate(); err != nil {
		e.err = err
		return e, err
	}
	e.filters = dsp.NewFilterBank(cfg.MuffleCutoff)

	if e.driver == nil {
		open, err := OutputOpener(cfg)
		if err != nil {
			e.err = err
			return e, err
		}
		e.driver = softmix.NewDriver(open,
			softmix.WithSampleRate(cfg.SampleRate),
			softmix.WithMaxVoices(cfg.MaxVoices),
			softmix.WithLogger(e.log))
	}

	if err := e.openDevice(); err != nil {
		e.err = err
		e.log.Errorf("Audio disabled: %v", err)
		return e, nil
	}
	if err := e.setup(); err != nil {
		e.err = err
		e.teardown()
		return e, err
	}

	e.disabled = false
	e.log.Infof("Audio engine up: %d default voices, %d voice chat voices",
		cfg.DefaultPoolSize, cfg.VoicePoolSize)

	return e, nil
}

// openDevice opens the device and makes a context current. A device that
// is not ready yet gets one more try after OpenRetryDelay.
func (e *Engine) openDevice() error {
	dev, err := e.driver.OpenDevice()
	if errors.Is(err, backend.ErrDeviceNotReady) {
		e.log.Debugf("Audio device not ready, retrying in %v", e.cfg.OpenRetryDelay)
		time.Sleep(e.cfg.OpenRetryDelay.D())
		dev, err = e.driver.OpenDevice()
	}
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	ctx, err := dev.CreateContext()
	if err != nil {
		dev.Close()
		return fmt.Errorf("create context: %w", err)
	}
	if err := ctx.MakeCurrent(); err != nil {
		ctx.Destroy()
		dev.Close()
		return fmt.Errorf("make context current: %w", err)
	}

	e.dev = dev
	e.ctx = ctx
	e.ctxAlive.Store(true)

	return nil
}

func (e *Engine) setup() error {
	if err := e.ctx.SetDistanceModel(backend.DistanceLinearClamped); err != nil {
		return backendErr("distance model", err)
	}
	if err := e.ctx.SetListenerPosition(e.listenerPos); err != nil {
		return backendErr("listener position", err)
	}
	if err := e.ctx.SetListenerOrientation(e.listenerTarget, e.listenerUp); err != nil {
		return backendErr("listener orientation", err)
	}
	if err := e.ctx.SetListenerGain(e.listenerGain); err != nil {
		return backendErr("listener gain", err)
	}

	sizes := [numPools]int{
		PoolDefault: e.cfg.DefaultPoolSize,
		PoolVoice:   e.cfg.VoicePoolSize,
	}
	for id, size := range sizes {
		p, err := newPool(e.ctx, PoolID(id), size)
		if err != nil {
			return err
		}
		e.pools[id] = p
		e.log.Debugf("Created %s pool with %d voices", PoolID(id), size)
	}

	return nil
}

// teardown releases whatever openDevice and setup built.
func (e *Engine) teardown() error {
	var errs []error
	for i, p := range e.pools {
		if p != nil {
			errs = append(errs, p.release(e.ctx))
			e.pools[i] = nil
		}
	}
	if e.ctx != nil {
		e.ctxAlive.Store(false)
		errs = append(errs, e.ctx.Release(), e.ctx.Destroy())
	}
	if e.dev != nil {
		errs = append(errs, e.dev.Close())
	}

	return errors.Join(errs...)
}

// Disabled reports whether the engine runs without a device.
func (e *Engine) Disabled() bool { return e.disabled }

// Err returns why the engine is disabled.
func (e *Engine) Err() error { return e.err }

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() Config { return e.cfg }

// Context exposes the backend context, or nil when disabled.
func (e *Engine) Context() backend.Context {
	if e.disabled {
		return nil
	}

	return e.ctx
}

func (e *Engine) off() bool { return e.disabled || e.closed.Load() }

// offErr is the error for value-returning calls on an engine that is off.
func (e *Engine) offErr() error {
	if e.closed.Load() && !e.disabled {
		return ErrClosed
	}

	return ErrDisabled
}

func (e *Engine) ListenerPosition() Vec3 {
	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	return e.listenerPos
}

func (e *Engine) SetListenerPosition(p Vec3) error {
	if e.off() {
		return nil
	}

	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	e.listenerPos = p
	if err := e.ctx.SetListenerPosition(p); err != nil {
		return backendErr("listener position", err)
	}

	return nil
}

func (e *Engine) ListenerTargetVector() Vec3 {
	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	return e.listenerTarget
}

func (e *Engine) SetListenerTargetVector(v Vec3) error {
	if e.off() {
		return nil
	}

	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	e.listenerTarget = v
	if err := e.ctx.SetListenerOrientation(v, e.listenerUp); err != nil {
		return backendErr("listener orientation", err)
	}

	return nil
}

func (e *Engine) ListenerUpVector() Vec3 {
	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	return e.listenerUp
}

func (e *Engine) SetListenerUpVector(v Vec3) error {
	if e.off() {
		return nil
	}

	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	e.listenerUp = v
	if err := e.ctx.SetListenerOrientation(e.listenerTarget, v); err != nil {
		return backendErr("listener orientation", err)
	}

	return nil
}

func (e *Engine) ListenerGain() float32 {
	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	return e.listenerGain
}

// SetListenerGain sets the master gain. Changes smaller than 0.001 are
// ignored.
func (e *Engine) SetListenerGain(g float32) error {
	if e.off() {
		return nil
	}

	e.listenerMtx.Lock()
	defer e.listenerMtx.Unlock()

	if math.Abs(float64(e.listenerGain-g)) < listenerGainEpsilon {
		return nil
	}
	e.listenerGain = g
	if err := e.ctx.SetListenerGain(g); err != nil {
		return backendErr("listener gain", err)
	}

	return nil
}

// Close disposes every channel, stops the streaming goroutine, releases
// all sounds and shuts the device down. Later calls do nothing.
func (e *Engine) Close() error {
	if e.closed.Swap(true) || e.disabled {
		return nil
	}

	for _, p := range e.pools {
		for _, ch := range p.snapshot() {
			ch.Dispose()
		}
	}

	close(e.quit)
	e.streamWG.Wait()

	e.soundsMtx.Lock()
	sounds := e.sounds
	e.sounds = nil
	e.soundsMtx.Unlock()
	e.metrics.loadedSounds.Set(0)

	var errs []error
	for _, s := range sounds {
		if s.closed.Swap(true) {
			continue
		}
		if err := s.data.release(e.ctx); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", s.path, err))
		}
	}
	errs = append(errs, e.teardown())
	e.log.Debugf("Audio engine closed")

	return errors.Join(errs...)
}
