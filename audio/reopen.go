// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// OpenFunc produces a fresh Source positioned at frame 0.
type OpenFunc func() (Source, error)

// Reopener turns a forward-only Source into a SeekableSource. Seeking
// forward discards frames; seeking backwards reopens the underlying Source
// and skips from the start. Seeking to the current frame is free, so a
// sequential reader pays nothing.
type Reopener struct {
	open   OpenFunc
	src    Source
	pos    int64
	length int64
	skip   []float32
}

// NewReopener opens the first Source through open.
func NewReopener(open OpenFunc) (*Reopener, error) {
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	return &Reopener{
		open:   open,
		src:    src,
		length: -1,
	}, nil
}

func (r *Reopener) SampleRate() int { return r.src.SampleRate() }
func (r *Reopener) Channels() int   { return r.src.Channels() }
func (r *Reopener) BufSize() int    { return r.src.BufSize() }

// Length is unknown until the source has been read to its end once.
func (r *Reopener) Length() int64 { return r.length }

// Position returns the current frame.
func (r *Reopener) Position() int64 { return r.pos }

func (r *Reopener) ReadSamples(dst []float32) (int, error) {
	n, err := r.src.ReadSamples(dst)
	r.pos += int64(n / max(r.src.Channels(), 1))
	if errors.Is(err, io.EOF) {
		r.length = r.pos
	}

	return n, err
}

func (r *Reopener) Seek(frame int64) error {
	if frame < 0 || (r.length >= 0 && frame > r.length) {
		return fmt.Errorf("%w: frame %d", ErrSeekOutOfRange, frame)
	}
	if frame == r.pos {
		return nil
	}

	if frame < r.pos {
		if err := r.src.Close(); err != nil {
			return fmt.Errorf("close source: %w", err)
		}
		src, err := r.open()
		if err != nil {
			return fmt.Errorf("reopen source: %w", err)
		}
		r.src = src
		r.pos = 0
	}

	channels := max(r.src.Channels(), 1)
	if r.skip == nil {
		size := max(r.src.BufSize(), 4096)
		r.skip = make([]float32, size-size%channels)
	}

	for r.pos < frame {
		want := min(int64(len(r.skip)/channels), frame-r.pos)
		n, err := r.ReadSamples(r.skip[:int(want)*channels])
		if errors.Is(err, io.EOF) {
			if r.pos < frame {
				return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, r.pos)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("skip frames: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("skip frames: %w", io.ErrNoProgress)
		}
	}

	return nil
}

func (r *Reopener) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// Seekable returns src as a SeekableSource when it can actually seek,
// reporting false for sources whose Seek fails with ErrNotSeekable. A
// seekable src is left rewound to frame 0.
func Seekable(src Source) (SeekableSource, bool) {
	ss, ok := src.(SeekableSource)
	if !ok {
		return nil, false
	}
	if err := ss.Seek(0); errors.Is(err, ErrNotSeekable) {
		return nil, false
	}

	return ss, true
}
