// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/audspace/audio"
)

// fakeReader serves interleaved samples the way oggvorbis.Reader does:
// whole frames only, at most chunk frames per call.
type fakeReader struct {
	channels int
	samples  []float32
	pos      int
	chunk    int
	err      error
}

func (f *fakeReader) SampleRate() int { return 48000 }
func (f *fakeReader) Channels() int   { return f.channels }

func (f *fakeReader) Read(p []float32) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.pos >= len(f.samples) {
		return 0, io.EOF
	}
	want := len(p) - len(p)%f.channels
	if f.chunk > 0 {
		want = min(want, f.chunk*f.channels)
	}
	n := copy(p[:want], f.samples[f.pos:])
	f.pos += n

	return n, nil
}

type seekableReader struct {
	*fakeReader
}

func (s seekableReader) Length() int64 { return int64(len(s.samples) / s.channels) }

func (s seekableReader) SetPosition(frame int64) error {
	s.pos = int(frame) * s.channels
	return nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		chunk    int
		dst      int
	}{
		{"mono", 1, 0, 64},
		{"stereo", 2, 0, 64},
		{"stereo small chunks", 2, 3, 64},
		{"5.1 odd dst", 6, 0, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in := make([]float32, 60*tt.channels)
			for i := range in {
				in[i] = float32(i) / float32(len(in))
			}
			s := &source{dec: &fakeReader{channels: tt.channels, samples: in, chunk: tt.chunk}}

			var out []float32
			buf := make([]float32, tt.dst)
			for {
				n, err := s.ReadSamples(buf)
				if n%tt.channels != 0 {
					t.Fatalf("ReadSamples() = %d, not whole frames", n)
				}
				out = append(out, buf[:n]...)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatal(err)
				}
			}

			if !slicesEqual(out, in) {
				t.Errorf("decoded %d samples, want %d matching", len(out), len(in))
			}
		})
	}
}

func slicesEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestSource_ShortDst(t *testing.T) {
	t.Parallel()

	s := &source{dec: &fakeReader{channels: 2, samples: []float32{1, 2}}}
	if n, err := s.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("ReadSamples(1 sample) = %d, %v; want 0, nil", n, err)
	}
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	s := &source{dec: &fakeReader{channels: 1, err: io.ErrUnexpectedEOF}}
	if _, err := s.ReadSamples(make([]float32, 8)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestSource_Seek(t *testing.T) {
	t.Parallel()

	s := &source{dec: seekableReader{&fakeReader{channels: 2, samples: []float32{0, 0, 1, 1, 2, 2}}}}
	if s.Length() != 3 {
		t.Fatalf("Length() = %d, want 3", s.Length())
	}
	if err := s.Seek(2); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 2)
	if n, _ := s.ReadSamples(buf); n != 2 || buf[0] != 2 {
		t.Errorf("after Seek(2) read %d samples %v, want frame [2 2]", n, buf)
	}
	if err := s.Seek(-1); !errors.Is(err, audio.ErrSeekOutOfRange) {
		t.Errorf("Seek(-1) error = %v, want ErrSeekOutOfRange", err)
	}

	plain := &source{dec: &fakeReader{channels: 1}}
	if err := plain.Seek(0); !errors.Is(err, audio.ErrNotSeekable) {
		t.Errorf("Seek() without positioner error = %v, want ErrNotSeekable", err)
	}
}

func TestDecoder_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("OggS but not really"))); err == nil {
		t.Error("Decode(garbage) succeeded")
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	in := make([]float32, 2<<16)
	buf := make([]float32, 4096)

	for b.Loop() {
		s := &source{dec: &fakeReader{channels: 2, samples: in}}
		for {
			if _, err := s.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
