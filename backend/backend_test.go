// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"math"
	"testing"
)

func TestLinearClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		dist, near, far float32
		want            float32
	}{
		{"inside near", 5, 10, 100, 1},
		{"at near", 10, 10, 100, 1},
		{"halfway", 55, 10, 100, 0.5},
		{"at far", 100, 10, 100, 0},
		{"past far", 500, 10, 100, 0},
		{"degenerate range", 20, 10, 10, 0},
		{"degenerate inside", 5, 10, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := LinearClamped(tt.dist, tt.near, tt.far)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("LinearClamped(%v, %v, %v) = %v, want %v", tt.dist, tt.near, tt.far, got, tt.want)
			}
		})
	}
}

func TestVec3(t *testing.T) {
	t.Parallel()

	x := Vec3{X: 1}
	y := Vec3{Y: 1}

	if got := x.Cross(y); got != (Vec3{Z: 1}) {
		t.Errorf("x.Cross(y) = %v, want {0 0 1}", got)
	}
	if got := x.Dot(y); got != 0 {
		t.Errorf("x.Dot(y) = %v, want 0", got)
	}
	if got := Distance(Vec3{X: 3}, Vec3{Y: 4}); got != 5 {
		t.Errorf("Distance() = %v, want 5", got)
	}
	if got := (Vec3{X: 3, Y: 4}).Normalize().Len(); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("Normalize().Len() = %v, want 1", got)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero Normalize() = %v, want zero", got)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	for _, ch := range []int{1, 2} {
		f, ok := FormatFor(ch)
		if !ok {
			t.Fatalf("FormatFor(%d) not ok", ch)
		}
		if f.Channels() != ch {
			t.Errorf("FormatFor(%d).Channels() = %d", ch, f.Channels())
		}
	}
	for _, ch := range []int{0, 3, 6} {
		if _, ok := FormatFor(ch); ok {
			t.Errorf("FormatFor(%d) ok, want unsupported", ch)
		}
	}
	if Format(99).Channels() != 0 {
		t.Error("unknown format should report 0 channels")
	}
}

func TestVoiceState_String(t *testing.T) {
	t.Parallel()

	tests := map[VoiceState]string{
		VoiceInitial:   "initial",
		VoicePlaying:   "playing",
		VoicePaused:    "paused",
		VoiceStopped:   "stopped",
		VoiceState(42): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("VoiceState(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
