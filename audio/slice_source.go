// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// SliceSource serves interleaved samples held in memory.
type SliceSource struct {
	samples    []float32
	sampleRate int
	channels   int
	pos        int
}

// NewSliceSource wraps samples without copying them.
func NewSliceSource(sampleRate, channels int, samples []float32) *SliceSource {
	return &SliceSource{
		samples:    samples[:len(samples)-len(samples)%channels],
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (s *SliceSource) SampleRate() int { return s.sampleRate }
func (s *SliceSource) Channels() int   { return s.channels }
func (s *SliceSource) BufSize() int    { return 4096 }
func (s *SliceSource) Close() error    { return nil }

func (s *SliceSource) Length() int64 { return int64(len(s.samples) / s.channels) }

// Position returns the current frame.
func (s *SliceSource) Position() int64 { return int64(s.pos / s.channels) }

func (s *SliceSource) Seek(frame int64) error {
	if frame < 0 || frame > s.Length() {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekOutOfRange, frame, s.Length())
	}
	s.pos = int(frame) * s.channels

	return nil
}

func (s *SliceSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}

	want := len(dst) - len(dst)%s.channels
	n := copy(dst[:want], s.samples[s.pos:])
	s.pos += n
	if s.pos >= len(s.samples) {
		return n, io.EOF
	}

	return n, nil
}

// ReadAll drains src and returns every interleaved sample it produced.
func ReadAll(src Source) ([]float32, error) {
	channels := max(src.Channels(), 1)
	size := max(src.BufSize(), 4096)
	buf := make([]float32, size-size%channels)

	var out []float32
	if ss, ok := src.(SeekableSource); ok {
		if frames := ss.Length(); frames > 0 {
			out = make([]float32, 0, int(frames)*channels)
		}
	}

	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			return out, nil
		}
	}
}
