// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/audspace/utils"
)

// maxEmptyReads bounds how many (0, nil) reads a source may return in a
// row before the resampler gives up on it.
const maxEmptyReads = 100

// Resampler converts src to dstRate using Catmull-Rom interpolation over a
// four frame window. When downsampling, input frames first pass through a
// one-pole low-pass with its cutoff at the output Nyquist frequency.
//
// For n input frames the resampler yields floor((n-1)*dstRate/srcRate)+1
// output frames, so the first and last input frames are always hit.
type Resampler struct {
	src      Source
	dstRate  int
	channels int
	step     float64

	// win[1] is the frame at the integer part of the read position; win[0]
	// precedes it and win[2], win[3] follow. real marks which of them came
	// from src rather than being repeated at the edges.
	win  [4][]float32
	real [4]bool
	pos  float64

	in      []float32
	inPos   int
	inLen   int
	srcDone bool
	primed  bool
	done    bool

	lowPass bool
	alpha   float32
	lp      []float32
	lpInit  bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)
	srcRate := src.SampleRate()

	size := max(src.BufSize(), 1024)
	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		channels: channels,
		step:     float64(srcRate) / float64(dstRate),
		in:       make([]float32, size-size%channels),
		lp:       make([]float32, channels),
	}
	for i := range r.win {
		r.win[i] = make([]float32, channels)
	}
	if dstRate < srcRate {
		cutoff := float64(dstRate) / 2
		r.lowPass = true
		r.alpha = float32(1 - math.Exp(-2*math.Pi*cutoff/float64(srcRate)))
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return len(r.in) }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// next copies the following source frame into dst, filtered when
// downsampling. It reports false once src is exhausted.
func (r *Resampler) next(dst []float32) (bool, error) {
	for empty := 0; r.inPos >= r.inLen; empty++ {
		if r.srcDone {
			return false, nil
		}
		if empty == maxEmptyReads {
			return false, fmt.Errorf("read source: %w", io.ErrNoProgress)
		}

		n, err := r.src.ReadSamples(r.in)
		r.inPos, r.inLen = 0, n-n%r.channels
		if errors.Is(err, io.EOF) {
			r.srcDone = true
		} else if err != nil {
			return false, fmt.Errorf("read source: %w", err)
		}
	}

	frame := r.in[r.inPos : r.inPos+r.channels]
	r.inPos += r.channels

	if !r.lowPass {
		copy(dst, frame)
		return true, nil
	}
	if !r.lpInit {
		copy(r.lp, frame)
		r.lpInit = true
	}
	for c, x := range frame {
		r.lp[c] += r.alpha * (x - r.lp[c])
		dst[c] = r.lp[c]
	}

	return true, nil
}

// fill loads win[i], repeating win[i-1] when src has run out.
func (r *Resampler) fill(i int) error {
	ok, err := r.next(r.win[i])
	if err != nil {
		return err
	}
	r.real[i] = ok
	if !ok {
		copy(r.win[i], r.win[i-1])
	}

	return nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.next(r.win[1])
	if err != nil {
		return err
	}
	if !ok {
		r.done = true
		return nil
	}
	r.real[1] = true
	copy(r.win[0], r.win[1])

	if err := r.fill(2); err != nil {
		return err
	}

	return r.fill(3)
}

// advance slides the window one frame forward, reporting false when there
// is no real frame to move onto.
func (r *Resampler) advance() (bool, error) {
	if !r.real[2] {
		return false, nil
	}

	r.win[0], r.win[1], r.win[2], r.win[3] = r.win[1], r.win[2], r.win[3], r.win[0]
	r.real[0], r.real[1], r.real[2] = r.real[1], r.real[2], r.real[3]
	r.pos--

	return true, r.fill(3)
}

// ReadSamples produces interleaved samples at the target rate. len(dst)
// must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(dst) {
		if r.done {
			return written, io.EOF
		}

		for r.pos >= 1 {
			ok, err := r.advance()
			if err != nil {
				return written, err
			}
			if !ok {
				r.done = true
				break
			}
		}
		if r.done || (r.pos > 0 && !r.real[2]) {
			r.done = true
			continue
		}

		x := float32(r.pos)
		for c := range r.channels {
			dst[written+c] = utils.CubicInterpolate(r.win[0][c], r.win[1][c], r.win[2][c], r.win[3][c], x)
		}
		written += r.channels
		r.pos += r.step
	}

	return written, nil
}
