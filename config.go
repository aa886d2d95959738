// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	strduration "github.com/xhit/go-str2duration/v2"
)

// Output driver names accepted in Config.Output.
const (
	OutputPulse   = "pulse"
	OutputMalgo   = "malgo"
	OutputOto     = "oto"
	OutputWAVFile = "wavfile"
	OutputNull    = "null"
)

// Config holds the engine settings. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Output selects the output driver, see the Output* constants.
	Output string `toml:"output"`
	// OutputFile is the destination for the wavfile output.
	OutputFile string `toml:"output_file"`

	SampleRate      int `toml:"sample_rate"`
	DefaultPoolSize int `toml:"default_pool_size"`
	VoicePoolSize   int `toml:"voice_pool_size"`
	// MaxVoices is the backend voice capacity; both pools must fit.
	MaxVoices int `toml:"max_voices"`

	OpenRetryDelay Duration `toml:"open_retry_delay"`

	StreamInterval    Duration `toml:"stream_interval"`
	StreamBlockFrames int      `toml:"stream_block_frames"`
	StreamBuffers     int      `toml:"stream_buffers"`
	FadeStep          float32  `toml:"fade_step"`

	MuffleCutoff float64 `toml:"muffle_cutoff"`

	DynamicRangeCompression bool     `toml:"dynamic_range_compression"`
	VoipAttenuation         bool     `toml:"voip_attenuation"`
	VoipReleaseDelay        Duration `toml:"voip_release_delay"`

	// CheckFilenameCase logs an error when a sound path differs in case
	// from the file on disk.
	CheckFilenameCase bool `toml:"check_filename_case"`
}

func DefaultConfig() Config {
	return Config{
		Output:                  OutputPulse,
		SampleRate:              48000,
		DefaultPoolSize:         32,
		VoicePoolSize:           16,
		MaxVoices:               64,
		OpenRetryDelay:          Duration(100 * time.Millisecond),
		StreamInterval:          Duration(10 * time.Millisecond),
		StreamBlockFrames:       8192,
		StreamBuffers:           4,
		FadeStep:                0.1,
		MuffleCutoff:            800,
		DynamicRangeCompression: true,
		VoipAttenuation:         true,
		VoipReleaseDelay:        Duration(200 * time.Millisecond),
		CheckFilenameCase:       true,
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks that pool sizes are positive and fit in MaxVoices.
func (c Config) Validate() error {
	switch {
	case c.DefaultPoolSize <= 0 || c.VoicePoolSize <= 0:
		return fmt.Errorf("%w: pool sizes %d and %d", ErrInvalidPool, c.DefaultPoolSize, c.VoicePoolSize)
	case c.DefaultPoolSize+c.VoicePoolSize > c.MaxVoices:
		return fmt.Errorf("%w: %d+%d voices exceed max_voices %d", ErrInvalidPool,
			c.DefaultPoolSize, c.VoicePoolSize, c.MaxVoices)
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	case c.StreamBlockFrames <= 0 || c.StreamBuffers < 2:
		return fmt.Errorf("invalid streaming setup: %d buffers of %d frames",
			c.StreamBuffers, c.StreamBlockFrames)
	case c.FadeStep <= 0:
		return fmt.Errorf("invalid fade step %v", c.FadeStep)
	}

	return nil
}

// Duration is a time.Duration that reads from TOML strings such as "10ms"
// or "1d".
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return strduration.String(time.Duration(d)) }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := strduration.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(v)

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
