// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"sync"

	"github.com/ik5/audspace/backend"
)

// ManualOutput is a backend.Output that only renders when a test calls
// Step, which makes playback progress deterministic.
type ManualOutput struct {
	SampleRate int
	Channels   int

	mtx      sync.Mutex
	renderer backend.Renderer
	closed   bool
	rendered int
	last     []float32
}

// Opener returns a backend.OutputOpener that records the output it opens
// into *out.
func Opener(out **ManualOutput) backend.OutputOpener {
	return func(sampleRate, channels int) (backend.Output, error) {
		o := &ManualOutput{SampleRate: sampleRate, Channels: channels}
		*out = o
		return o, nil
	}
}

// FailingOpener returns an opener that always fails with err, counting
// attempts into *calls.
func FailingOpener(err error, calls *int) backend.OutputOpener {
	return func(int, int) (backend.Output, error) {
		*calls++
		return nil, err
	}
}

func (o *ManualOutput) Start(r backend.Renderer) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	if o.closed {
		return errors.New("output closed")
	}
	o.renderer = r

	return nil
}

func (o *ManualOutput) Close() error {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	o.closed = true
	o.renderer = nil

	return nil
}

// Step renders frames frames and returns them interleaved. It returns nil
// before Start or after Close.
func (o *ManualOutput) Step(frames int) []float32 {
	o.mtx.Lock()
	r := o.renderer
	o.mtx.Unlock()

	if r == nil {
		return nil
	}
	buf := make([]float32, frames*max(o.Channels, 1))
	r.Render(buf)

	o.mtx.Lock()
	o.rendered += frames
	o.last = buf
	o.mtx.Unlock()

	return buf
}

// Rendered returns how many frames have been rendered so far.
func (o *ManualOutput) Rendered() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	return o.rendered
}

// Closed reports whether Close was called.
func (o *ManualOutput) Closed() bool {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	return o.closed
}
