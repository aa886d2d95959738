// SPDX-License-Identifier: EPL-2.0

// Command spaceplay plays sounds through the audspace engine, optionally
// placed in 3D around the listener.
//
//	spaceplay --catalog sounds.toml --pos 10,0,0 --muffle door_slam
//	spaceplay --output wavfile --outfile out.wav music.ogg
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/hako/durafmt"
	"github.com/ik5/audspace"
	_ "github.com/ik5/audspace/outputs/malgo"
	_ "github.com/ik5/audspace/outputs/oto"
	"github.com/jessevdk/go-flags"
	"github.com/mitchellh/go-homedir"
)

type options struct {
	Config     string  `short:"c" long:"config" description:"TOML engine configuration"`
	Catalog    string  `long:"catalog" description:"TOML sound catalog; arguments are then sound names"`
	Output     string  `short:"o" long:"output" description:"Output driver (pulse, malgo, oto, wavfile, null)"`
	OutFile    string  `long:"outfile" description:"Destination for the wavfile output"`
	Stream     bool    `short:"s" long:"stream" description:"Stream files instead of decoding them up front"`
	Gain       float32 `short:"g" long:"gain" default:"1" description:"Channel gain"`
	Pos        string  `short:"p" long:"pos" description:"Sound position as x,y,z; omit to play at the listener"`
	Category   string  `long:"category" default:"default" description:"Sound category"`
	Muffle     bool    `short:"m" long:"muffle" description:"Play muffled"`
	Loop       bool    `short:"l" long:"loop" description:"Loop until --duration elapses"`
	Duration   string  `short:"d" long:"duration" description:"Stop after this long, e.g. 30s"`
	DebugLevel string  `long:"debuglevel" default:"info" description:"Log level, or subsys=level pairs"`
	LogFile    string  `long:"logfile" description:"Also log to this rotating file"`

	Args struct {
		Sounds []string `positional-arg-name:"sound" required:"1"`
	} `positional-args:"yes"`
}

func parseVec(s string) (*audspace.Vec3, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("position %q is not x,y,z", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("position %q: %w", s, err)
		}
		v[i] = float32(f)
	}

	return &audspace.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// expandPaths resolves a leading ~ in every path option and argument.
func expandPaths(opts *options) error {
	paths := []*string{&opts.Config, &opts.Catalog, &opts.OutFile, &opts.LogFile}
	for i := range opts.Args.Sounds {
		paths = append(paths, &opts.Args.Sounds[i])
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}

	return nil
}

// length renders how long s plays, or "unknown length" for streams that
// cannot tell.
func length(s *audspace.Sound) string {
	frames := s.Frames()
	if frames < 0 || s.SampleRate() <= 0 {
		return "unknown length"
	}
	d := time.Duration(frames) * time.Second / time.Duration(s.SampleRate())

	return durafmt.Parse(d.Round(time.Millisecond)).LimitFirstN(2).String()
}

func run(opts *options, log slog.Logger, engineLog slog.Logger) error {
	cfg := audspace.DefaultConfig()
	if opts.Config != "" {
		var err error
		if cfg, err = audspace.LoadConfig(opts.Config); err != nil {
			return err
		}
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.OutFile != "" {
		cfg.OutputFile = opts.OutFile
	}
	var limit time.Duration
	if opts.Duration != "" {
		var d audspace.Duration
		if err := d.UnmarshalText([]byte(opts.Duration)); err != nil {
			return err
		}
		limit = d.D()
	}
	pos, err := parseVec(opts.Pos)
	if err != nil {
		return err
	}

	e, err := audspace.Open(cfg, audspace.WithLogger(engineLog))
	if err != nil {
		return err
	}
	defer e.Close()
	if e.Disabled() {
		return fmt.Errorf("no audio output: %w", e.Err())
	}

	var catalog map[string]*audspace.Sound
	if opts.Catalog != "" {
		if catalog, err = e.LoadCatalog(opts.Catalog); err != nil {
			return err
		}
	}

	params := audspace.PlayParams{
		Gain:     opts.Gain,
		Position: pos,
		Category: opts.Category,
		Muffle:   opts.Muffle,
		Loop:     opts.Loop,
	}
	var channels []*audspace.Channel
	for _, name := range opts.Args.Sounds {
		s, ok := catalog[name]
		if !ok {
			if s, err = e.LoadSound(name, opts.Stream); err != nil {
				return err
			}
		}
		ch, err := e.Play(s, params)
		if errors.Is(err, audspace.ErrNoVoice) {
			log.Warnf("Dropped %s: %v", name, err)
			continue
		} else if err != nil {
			return err
		}
		log.Infof("Playing %s (%s)", s.Path(), length(s))
		channels = append(channels, ch)
	}

	start := time.Now()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		e.Update()
		if limit > 0 && time.Since(start) >= limit {
			log.Infof("Stopping after %v", limit)
			return nil
		}
		playing := false
		for _, ch := range channels {
			playing = playing || ch.IsPlaying()
		}
		if !playing {
			return nil
		}
	}

	return nil
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := expandPaths(&opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	bknd, err := newLogBackend(opts.LogFile, opts.DebugLevel, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer bknd.Close()

	log := bknd.logger("PLAY")
	if err := run(&opts, log, bknd.logger("AUDS")); err != nil {
		log.Errorf("%v", err)
		bknd.Close()
		os.Exit(1)
	}
}
