// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.DefaultPoolSize != 32 || cfg.VoicePoolSize != 16 {
		t.Errorf("pools = %d, %d; want 32, 16", cfg.DefaultPoolSize, cfg.VoicePoolSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero pool", func(c *Config) { c.VoicePoolSize = 0 }, ErrInvalidPool},
		{"pools exceed voices", func(c *Config) { c.MaxVoices = 40 }, ErrInvalidPool},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }, nil},
		{"one stream buffer", func(c *Config) { c.StreamBuffers = 1 }, nil},
		{"zero block", func(c *Config) { c.StreamBlockFrames = 0 }, nil},
		{"fade step", func(c *Config) { c.FadeStep = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audio.toml")
	os.WriteFile(path, []byte(`
output = "wavfile"
output_file = "/tmp/mix.wav"
sample_rate = 44100
stream_interval = "5ms"
voip_release_delay = "1s"
dynamic_range_compression = false
`), 0o644)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output != OutputWAVFile || cfg.OutputFile != "/tmp/mix.wav" || cfg.SampleRate != 44100 {
		t.Errorf("output = %q %q %d", cfg.Output, cfg.OutputFile, cfg.SampleRate)
	}
	if cfg.StreamInterval.D() != 5*time.Millisecond || cfg.VoipReleaseDelay.D() != time.Second {
		t.Errorf("durations = %v, %v", cfg.StreamInterval, cfg.VoipReleaseDelay)
	}
	if cfg.DynamicRangeCompression {
		t.Error("DynamicRangeCompression not overridden")
	}
	// Untouched keys keep their defaults.
	if cfg.DefaultPoolSize != 32 || cfg.MuffleCutoff != 800 || !cfg.VoipAttenuation {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		os.WriteFile(p, []byte(body), 0o644)
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "none.toml"), os.ErrNotExist},
		{"syntax", write("bad.toml", "sample_rate = ="), nil},
		{"duration", write("dur.toml", `stream_interval = "soon"`), nil},
		{"pools", write("pools.toml", "max_voices = 8"), ErrInvalidPool},
	}

	for _, tt := range tests {
		_, err := LoadConfig(tt.path)
		if err == nil {
			t.Errorf("%s: LoadConfig() = nil error", tt.name)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: LoadConfig() error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestDuration_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"10ms", 10 * time.Millisecond},
		{"1.5s", 1500 * time.Millisecond},
		{"1d", 24 * time.Hour},
		{"2h30m", 150 * time.Minute},
	}

	for _, tt := range tests {
		var d Duration
		if err := d.UnmarshalText([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", tt.in, err)
		}
		if d.D() != tt.want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.in, d.D(), tt.want)
		}

		text, _ := d.MarshalText()
		var back Duration
		if err := back.UnmarshalText(text); err != nil || back != d {
			t.Errorf("round trip of %q through %q = %v, %v", tt.in, text, back, err)
		}
	}
}
