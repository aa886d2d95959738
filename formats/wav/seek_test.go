// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/audspace/audio"
)

func stereoFile(t *testing.T, frames int) []byte {
	t.Helper()

	samples := make([]int16, frames*2)
	for i := range frames {
		samples[2*i] = int16(i)
		samples[2*i+1] = -int16(i)
	}

	var buf bytes.Buffer
	if err := WriteWAV16Channels(&buf, 22050, 2, samples); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestWriteWAV16Channels_Stereo(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(stereoFile(t, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if src.Channels() != 2 || src.SampleRate() != 22050 {
		t.Errorf("format = %d ch %d Hz, want 2 ch 22050 Hz", src.Channels(), src.SampleRate())
	}

	ss, ok := src.(audio.SeekableSource)
	if !ok {
		t.Fatal("source over a bytes.Reader is not seekable")
	}
	if ss.Length() != 10 {
		t.Errorf("Length() = %d, want 10", ss.Length())
	}
}

func TestWriteWAV16Channels_BadLayout(t *testing.T) {
	t.Parallel()

	if err := WriteWAV16Channels(io.Discard, 8000, 0, nil); !errors.Is(err, ErrUnsupportedWavLayout) {
		t.Errorf("WriteWAV16Channels(0 channels) error = %v, want ErrUnsupportedWavLayout", err)
	}
}

func TestSource_Seek(t *testing.T) {
	t.Parallel()

	src, _ := Decoder{}.Decode(bytes.NewReader(stereoFile(t, 100)))
	ss := src.(audio.SeekableSource)

	tests := []struct {
		frame int64
		want  float32
	}{
		{50, 50.0 / 32768},
		{3, 3.0 / 32768},
		{99, 99.0 / 32768},
		{0, 0},
	}

	dst := make([]float32, 2)
	for _, tt := range tests {
		if err := ss.Seek(tt.frame); err != nil {
			t.Fatalf("Seek(%d) error = %v", tt.frame, err)
		}
		if _, err := ss.ReadSamples(dst); err != nil && err != io.EOF {
			t.Fatal(err)
		}
		if dst[0] != tt.want || dst[1] != -tt.want {
			t.Errorf("frame %d = %v, want [%v %v]", tt.frame, dst, tt.want, -tt.want)
		}
	}

	if err := ss.Seek(100); err != nil {
		t.Errorf("Seek(end) error = %v", err)
	}
	if n, err := ss.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() at end = %d, %v; want 0, EOF", n, err)
	}
	if err := ss.Seek(101); !errors.Is(err, audio.ErrSeekOutOfRange) {
		t.Errorf("Seek(101) error = %v, want ErrSeekOutOfRange", err)
	}
}

func TestSource_SeekForwardOnly(t *testing.T) {
	t.Parallel()

	// io.MultiReader hides the Seek method of the bytes.Reader.
	r := io.MultiReader(bytes.NewReader(stereoFile(t, 10)))
	src, err := Decoder{}.Decode(r)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := audio.Seekable(src); ok {
		t.Error("Seekable() = true for a forward-only reader")
	}
}
