// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"
)

// forwardOnly hides the Seek and Length methods of the wrapped source.
type forwardOnly struct {
	Source
}

type refusesSeek struct {
	*SliceSource
}

func (refusesSeek) Seek(int64) error { return ErrNotSeekable }

func ramp(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i) / 100
	}

	return s
}

func countingOpener(samples []float32, opens *int) OpenFunc {
	return func() (Source, error) {
		*opens++
		return forwardOnly{NewSliceSource(100, 1, samples)}, nil
	}
}

func readOne(t *testing.T, r *Reopener) float32 {
	t.Helper()

	buf := make([]float32, 1)
	if n, err := r.ReadSamples(buf); n != 1 {
		t.Fatalf("ReadSamples() = %d, %v; want 1 sample", n, err)
	}

	return buf[0]
}

func TestReopener_Seek(t *testing.T) {
	t.Parallel()

	opens := 0
	r, err := NewReopener(countingOpener(ramp(100), &opens))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Length() != -1 {
		t.Errorf("Length() before EOF = %d, want -1", r.Length())
	}

	tests := []struct {
		name      string
		seek      int64
		want      float32
		wantOpens int
	}{
		{"forward", 50, 0.5, 1},
		{"current frame", 51, 0.51, 1},
		{"backward reopens", 20, 0.2, 2},
		{"forward again", 99, 0.99, 2},
		{"rewind", 0, 0, 3},
	}

	for _, tt := range tests {
		if err := r.Seek(tt.seek); err != nil {
			t.Fatalf("%s: Seek(%d) error = %v", tt.name, tt.seek, err)
		}
		if got := readOne(t, r); got != tt.want {
			t.Errorf("%s: sample = %v, want %v", tt.name, got, tt.want)
		}
		if opens != tt.wantOpens {
			t.Errorf("%s: opens = %d, want %d", tt.name, opens, tt.wantOpens)
		}
		if r.Position() != tt.seek+1 {
			t.Errorf("%s: Position() = %d, want %d", tt.name, r.Position(), tt.seek+1)
		}
	}
}

func TestReopener_LengthAfterEOF(t *testing.T) {
	t.Parallel()

	opens := 0
	r, _ := NewReopener(countingOpener(ramp(100), &opens))

	all, err := ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 100 {
		t.Fatalf("ReadAll() = %d samples, want 100", len(all))
	}
	if r.Length() != 100 {
		t.Errorf("Length() = %d, want 100", r.Length())
	}

	for _, frame := range []int64{-1, 101} {
		if err := r.Seek(frame); !errors.Is(err, ErrSeekOutOfRange) {
			t.Errorf("Seek(%d) error = %v, want ErrSeekOutOfRange", frame, err)
		}
	}
	if err := r.Seek(100); err != nil {
		t.Errorf("Seek(end) error = %v", err)
	}
}

func TestReopener_SeekPastUnknownEnd(t *testing.T) {
	t.Parallel()

	opens := 0
	r, _ := NewReopener(countingOpener(ramp(10), &opens))

	if err := r.Seek(200); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("Seek(200) error = %v, want ErrSeekOutOfRange", err)
	}
	if r.Length() != 10 {
		t.Errorf("Length() = %d, want 10 once the end was seen", r.Length())
	}
}

func TestReopener_OpenError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := NewReopener(func() (Source, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("NewReopener() error = %v, want %v", err, boom)
	}
}

func TestSeekable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  Source
		want bool
	}{
		{"slice", NewSliceSource(100, 1, ramp(10)), true},
		{"forward only", forwardOnly{NewSliceSource(100, 1, ramp(10))}, false},
		{"refuses seek", refusesSeek{NewSliceSource(100, 1, ramp(10))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, ok := Seekable(tt.src); ok != tt.want {
				t.Errorf("Seekable() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestSliceSource(t *testing.T) {
	t.Parallel()

	// The trailing half frame is dropped.
	s := NewSliceSource(100, 2, []float32{0, 1, 2, 3, 4})
	if s.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", s.Length())
	}

	if err := s.Seek(1); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 3)
	n, err := s.ReadSamples(buf)
	if n != 2 || err == nil {
		t.Errorf("ReadSamples() = %d, %v; want 2 samples and EOF", n, err)
	}
	if buf[0] != 2 || buf[1] != 3 {
		t.Errorf("samples = %v, want [2 3]", buf[:2])
	}
	if s.Position() != 2 {
		t.Errorf("Position() = %d, want 2", s.Position())
	}
	if err := s.Seek(3); !errors.Is(err, ErrSeekOutOfRange) {
		t.Errorf("Seek(3) error = %v, want ErrSeekOutOfRange", err)
	}
}

func TestRegistry_ForPath(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	ogg := &mockDecoder{name: "ogg"}
	registry.Register("ogg", ogg)
	registry.Register("WAV", &mockDecoder{name: "wav"})

	tests := []struct {
		path string
		want bool
	}{
		{"sounds/hull.ogg", true},
		{"Sounds/Hull.OGG", true},
		{"alarm.wav", true},
		{"readme", false},
		{"music.flac", false},
	}
	for _, tt := range tests {
		if _, ok := registry.ForPath(tt.path); ok != tt.want {
			t.Errorf("ForPath(%q) ok = %v, want %v", tt.path, ok, tt.want)
		}
	}

	if d, _ := registry.ForPath("x.ogg"); d != ogg {
		t.Error("ForPath() returned the wrong decoder")
	}

	formats := registry.Formats()
	if len(formats) != 2 || formats[0] != "ogg" || formats[1] != "wav" {
		t.Errorf("Formats() = %v, want [ogg wav]", formats)
	}
}
