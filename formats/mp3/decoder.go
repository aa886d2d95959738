// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/utils"
)

const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// pcmStream is the part of gomp3.Decoder the source reads through. Length
// and Seek are optional; see seeker.
type pcmStream interface {
	io.Reader
	SampleRate() int
}

type seeker interface {
	Length() int64
	Seek(offset int64, whence int) (int64, error)
}

type source struct {
	dec pcmStream
	buf []byte
	// pending holds the first byte of a sample split across two reads.
	pending    byte
	hasPending bool
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

// Length returns the number of frames, or -1 when the input was not
// seekable.
func (s *source) Length() int64 {
	sk, ok := s.dec.(seeker)
	if !ok || sk.Length() < 0 {
		return -1
	}

	return sk.Length() / bytesPerFrame
}

func (s *source) Seek(frame int64) error {
	length := s.Length()
	if length < 0 {
		return audio.ErrNotSeekable
	}
	if frame < 0 || frame > length {
		return fmt.Errorf("%w: frame %d of %d", audio.ErrSeekOutOfRange, frame, length)
	}
	if _, err := s.dec.(seeker).Seek(frame*bytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("seek mp3: %w", err)
	}
	s.hasPending = false

	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	want := len(dst) * bytesPerSample
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	off := 0
	if s.hasPending {
		buf[0] = s.pending
		off = 1
	}
	n, err := s.dec.Read(buf[off:])
	n += off

	samples := n / bytesPerSample
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(buf[2*i:])))
	}
	s.hasPending = n%bytesPerSample == 1
	if s.hasPending {
		s.pending = buf[n-1]
	}

	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("decode mp3: %w", err)
	}

	return samples, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	return &source{
		dec: dec,
		buf: make([]byte, 8192),
	}, nil
}
