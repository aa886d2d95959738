// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/audspace/audio"
	"github.com/jfreymuth/oggvorbis"
)

// frameReader is the part of oggvorbis.Reader the source reads through.
// Read fills whole frames and returns the number of samples written.
type frameReader interface {
	SampleRate() int
	Channels() int
	Read(p []float32) (int, error)
}

// positioner is satisfied by oggvorbis.Reader.
type positioner interface {
	Length() int64
	SetPosition(pos int64) error
}

type source struct {
	dec frameReader
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.dec.Channels() }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// Length returns the number of frames, or -1 if the input could not be
// scanned for it.
func (s *source) Length() int64 {
	if p, ok := s.dec.(positioner); ok && p.Length() > 0 {
		return p.Length()
	}

	return -1
}

func (s *source) Seek(frame int64) error {
	length := s.Length()
	if length < 0 {
		return audio.ErrNotSeekable
	}
	if frame < 0 || frame > length {
		return fmt.Errorf("%w: frame %d of %d", audio.ErrSeekOutOfRange, frame, length)
	}
	if err := s.dec.(positioner).SetPosition(frame); err != nil {
		return fmt.Errorf("seek vorbis: %w", err)
	}

	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	ch := s.dec.Channels()
	dst = dst[:len(dst)-len(dst)%ch]
	if len(dst) == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("decode vorbis: %w", err)
	}

	return n, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vorbis: %w", err)
	}

	return &source{dec: dec}, nil
}
