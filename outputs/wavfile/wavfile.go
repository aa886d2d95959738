// SPDX-License-Identifier: EPL-2.0

package wavfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/utils"
)

const (
	// DefaultPeriod is how often a block is rendered.
	DefaultPeriod = 10 * time.Millisecond

	bitDepth  = 16
	pcmFormat = 1
)

// Output renders in real time on its own goroutine, encoding every block
// to a WAV file or discarding it.
type Output struct {
	sampleRate int
	channels   int
	period     time.Duration

	w   io.WriteSeeker
	c   io.Closer
	enc *wav.Encoder

	mtx     sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	err     error
	frames  int64
	closed  bool
	started bool
}

// Opener returns an opener that writes the mix to path.
func Opener(path string) backend.OutputOpener {
	return func(sampleRate, channels int) (backend.Output, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backend.ErrNoDevice, err)
		}

		return New(f, f, sampleRate, channels, DefaultPeriod), nil
	}
}

// Discard is an opener whose output renders on schedule and drops the
// result.
func Discard(sampleRate, channels int) (backend.Output, error) {
	return New(nil, nil, sampleRate, channels, DefaultPeriod), nil
}

// New builds an output encoding to w, which may be nil to discard. c, when
// set, is closed after the encoder is finalised.
func New(w io.WriteSeeker, c io.Closer, sampleRate, channels int, period time.Duration) *Output {
	if period <= 0 {
		period = DefaultPeriod
	}

	o := &Output{
		sampleRate: sampleRate,
		channels:   channels,
		period:     period,
		w:          w,
		c:          c,
	}
	if w != nil {
		o.enc = wav.NewEncoder(w, sampleRate, bitDepth, channels, pcmFormat)
	}

	return o
}

func (o *Output) Start(r backend.Renderer) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return backend.ErrNoDevice
	}
	if o.started {
		return nil
	}
	o.started = true
	o.stop = make(chan struct{})
	o.done = make(chan struct{})

	go o.run(r)

	return nil
}

func (o *Output) run(r backend.Renderer) {
	defer close(o.done)

	frames := max(int(int64(o.sampleRate)*int64(o.period)/int64(time.Second)), 1)
	buf := make([]float32, frames*o.channels)
	ibuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: o.channels, SampleRate: o.sampleRate},
		Data:           make([]int, len(buf)),
		SourceBitDepth: bitDepth,
	}

	ticker := time.NewTicker(o.period)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
		}

		r.Render(buf)
		if o.enc != nil {
			for i, s := range buf {
				ibuf.Data[i] = int(utils.Float32ToInt16(s))
			}
			if err := o.enc.Write(ibuf); err != nil {
				o.mtx.Lock()
				o.err = fmt.Errorf("encode: %w", err)
				o.mtx.Unlock()
				return
			}
		}

		o.mtx.Lock()
		o.frames += int64(frames)
		o.mtx.Unlock()
	}
}

// Frames returns how many frames have been rendered.
func (o *Output) Frames() int64 {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	return o.frames
}

// Close stops rendering and finalises the WAV header.
func (o *Output) Close() error {
	o.mtx.Lock()
	if o.closed {
		o.mtx.Unlock()
		return nil
	}
	o.closed = true
	started := o.started
	o.mtx.Unlock()

	if started {
		close(o.stop)
		<-o.done
	}

	errs := []error{o.err}
	if o.enc != nil {
		errs = append(errs, o.enc.Close())
	}
	if o.c != nil {
		errs = append(errs, o.c.Close())
	}

	return errors.Join(errs...)
}
