// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audspace/audio"
)

// pcmReader is the part of aiff.Decoder the source needs.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec       pcmReader
	format    *goaudio.Format
	frames    int64
	scale     float32
	intBuf    *goaudio.IntBuffer
	exhausted bool
}

func (s *source) SampleRate() int { return s.format.SampleRate }
func (s *source) Channels() int   { return s.format.NumChannels }
func (s *source) Close() error    { return nil }
func (s *source) Length() int64   { return s.frames }

func (s *source) BufSize() int {
	if s.intBuf == nil {
		return 4096
	}

	return cap(s.intBuf.Data)
}

// Seek always fails; go-audio/aiff only reads forward.
func (s *source) Seek(int64) error { return audio.ErrNotSeekable }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.exhausted {
		return 0, io.EOF
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	for i, v := range s.intBuf.Data[:n] {
		dst[i] = float32(v) / s.scale
	}

	switch {
	case err == io.EOF || (err == nil && n < len(dst)):
		s.exhausted = true
		return n, io.EOF
	case err != nil:
		return n, fmt.Errorf("read aiff pcm: %w", err)
	}

	return n, nil
}

// fullScale is the magnitude of the most negative sample at depth bits.
func fullScale(bits int) (float32, bool) {
	switch bits {
	case 8, 16, 24, 32:
		return float32(uint64(1) << (bits - 1)), true
	}

	return 0, false
}

type Decoder struct{}

// Decode reads the COMM chunk and returns a source positioned at the first
// sample. go-audio needs an io.ReadSeeker, so other readers are buffered
// in memory first.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read aiff: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	scale, ok := fullScale(int(dec.BitDepth))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, ErrUnsupportedLayout
	}

	return &source{
		dec:    dec,
		format: format,
		frames: int64(dec.NumSampleFrames),
		scale:  scale,
	}, nil
}
