// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decred/slog"
	"github.com/ik5/audspace"
	"github.com/ik5/audspace/formats/wav"
)

func TestParseVec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    *audspace.Vec3
		wantErr bool
	}{
		{"", nil, false},
		{"1,2,3", &audspace.Vec3{X: 1, Y: 2, Z: 3}, false},
		{" -10.5, 0 ,4", &audspace.Vec3{X: -10.5, Z: 4}, false},
		{"1,2", nil, true},
		{"a,b,c", nil, true},
	}

	for _, tt := range tests {
		got, err := parseVec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVec(%q) error = %v", tt.in, err)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseVec(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogBackend_Levels(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	b, err := newLogBackend("", "warn,AUDS=debug", &out)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	b.logger("PLAY").Infof("hidden")
	b.logger("AUDS").Debugf("shown")

	if strings.Contains(out.String(), "hidden") {
		t.Error("info logged at the warn default level")
	}
	if !strings.Contains(out.String(), "shown") {
		t.Error("debug not logged for a subsystem set to debug")
	}
	if lvl := b.logger("PLAY").Level(); lvl != slog.LevelWarn {
		t.Errorf("PLAY level = %v, want warn", lvl)
	}
}

func TestLogBackend_Errors(t *testing.T) {
	t.Parallel()

	for _, lvl := range []string{"AUDS=loud", "a=b=c"} {
		if _, err := newLogBackend("", lvl, nil); err == nil {
			t.Errorf("newLogBackend(%q) succeeded", lvl)
		}
	}
}

func TestLogBackend_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "spaceplay.log")
	b, err := newLogBackend(path, "info", nil)
	if err != nil {
		t.Fatal(err)
	}
	b.logger("PLAY").Infof("to file")
	if err := b.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestExpandPaths(t *testing.T) {
	t.Parallel()

	opts := options{Config: "~/engine.toml", Catalog: "sounds.toml"}
	opts.Args.Sounds = []string{"~/music/theme.ogg", "/abs/hull.wav"}
	if err := expandPaths(&opts); err != nil {
		t.Skipf("no home directory: %v", err)
	}

	if strings.HasPrefix(opts.Config, "~") || !strings.HasSuffix(opts.Config, "engine.toml") {
		t.Errorf("Config = %q, want it expanded", opts.Config)
	}
	if strings.HasPrefix(opts.Args.Sounds[0], "~") {
		t.Errorf("sound = %q, want it expanded", opts.Args.Sounds[0])
	}
	if opts.Catalog != "sounds.toml" || opts.Args.Sounds[1] != "/abs/hull.wav" {
		t.Errorf("plain paths changed: %q %q", opts.Catalog, opts.Args.Sounds[1])
	}
}

func TestLength(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarm.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	wav.WriteWAV16(f, 22050, make([]int16, 22050*3/2))
	f.Close()

	cfg := audspace.DefaultConfig()
	cfg.Output = audspace.OutputNull
	e, err := audspace.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	s, err := e.LoadSound(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := length(s); got != "1 second 500 milliseconds" {
		t.Errorf("length() = %q, want 1 second 500 milliseconds", got)
	}
}
