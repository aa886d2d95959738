// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/ik5/audspace/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// flacStream is an interface for flac.Stream to allow testing
type flacStream interface {
	ParseNext() (*frame.Frame, error)
	Seek(sampleNum uint64) (uint64, error)
	Close() error
}

type source struct {
	stream     flacStream
	sampleRate int
	channels   int
	bitDepth   int
	total      int64
	seekable   bool

	// pending holds decoded frames not yet handed out, interleaved.
	pending []float32
	eof     bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return 4096 }

func (s *source) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// Length returns the total frame count from STREAMINFO, or -1 when the
// encoder left it unset.
func (s *source) Length() int64 {
	if s.total <= 0 {
		return -1
	}

	return s.total
}

func (s *source) Seek(frame int64) error {
	if !s.seekable {
		return audio.ErrNotSeekable
	}
	if frame < 0 || (s.total > 0 && frame > s.total) {
		return fmt.Errorf("%w: frame %d of %d", audio.ErrSeekOutOfRange, frame, s.total)
	}

	s.pending = s.pending[:0]
	s.eof = false
	if s.total > 0 && frame == s.total {
		s.eof = true
		return nil
	}

	got, err := s.stream.Seek(uint64(frame))
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	// The stream lands on the start of the FLAC frame holding the target.
	if skip := frame - int64(got); skip > 0 {
		if err := s.fill(); err != nil && err != io.EOF {
			return err
		}
		drop := min(int(skip)*s.channels, len(s.pending))
		s.pending = s.pending[drop:]
	}

	return nil
}

func (s *source) fill() error {
	f, err := s.stream.ParseNext()
	if err == io.EOF {
		s.eof = true
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("parse frame: %w", err)
	}

	scale := float32(int64(1) << (s.bitDepth - 1))
	block := int(f.BlockSize)
	for i := range block {
		for ch := range s.channels {
			s.pending = append(s.pending, float32(f.Subframes[ch].Samples[i])/scale)
		}
	}

	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	for len(s.pending) < want && !s.eof {
		if err := s.fill(); err != nil && err != io.EOF {
			return 0, err
		}
	}

	n := copy(dst[:want], s.pending)
	s.pending = append(s.pending[:0], s.pending[n:]...)

	if n == 0 && s.eof {
		return 0, io.EOF
	}
	if s.eof && len(s.pending) == 0 {
		return n, io.EOF
	}

	return n, nil
}

type Decoder struct{}

// Decode parses STREAMINFO and prepares frame-by-frame decoding. Seeking is
// available when r is an io.ReadSeeker.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	var (
		stream   *flac.Stream
		err      error
		seekable bool
	)
	if rs, ok := r.(io.ReadSeeker); ok {
		stream, err = flac.NewSeek(rs)
		seekable = true
	} else {
		stream, err = flac.New(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	info := stream.Info
	if info.BitsPerSample == 0 || info.BitsPerSample > 32 {
		return nil, ErrUnsupportedBitDepth
	}

	return &source{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		total:      int64(info.NSamples),
		seekable:   seekable,
	}, nil
}
