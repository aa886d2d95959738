// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"
)

// catalogEntry is one [[sound]] table. Pointers tell missing keys apart
// from zero values.
type catalogEntry struct {
	Name   string   `toml:"name"`
	File   string   `toml:"file"`
	Volume *float32 `toml:"volume"`
	Range  *float32 `toml:"range"`
	Stream bool     `toml:"stream"`
	Pool   string   `toml:"pool"`
}

type catalogFile struct {
	Sounds []catalogEntry `toml:"sound"`
}

// ParseCatalog reads sound definitions from a TOML catalog. Relative file
// paths are resolved against the catalog's directory.
func ParseCatalog(path string) ([]SoundDefinition, error) {
	var cf catalogFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, path, err)
	}

	dir := filepath.Dir(path)
	seen := make(map[string]struct{}, len(cf.Sounds))
	defs := make([]SoundDefinition, 0, len(cf.Sounds))
	for i, ent := range cf.Sounds {
		if ent.Name == "" || ent.File == "" {
			return nil, fmt.Errorf("%w: sound %d needs a name and a file", ErrInvalidCatalog, i)
		}
		if _, dup := seen[ent.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate sound %q", ErrInvalidCatalog, ent.Name)
		}
		seen[ent.Name] = struct{}{}

		pool, err := ParsePool(ent.Pool)
		if err != nil {
			return nil, fmt.Errorf("%w: sound %q: %w", ErrInvalidCatalog, ent.Name, err)
		}
		def := SoundDefinition{
			Name:   ent.Name,
			File:   ent.File,
			Volume: DefaultVolume,
			Range:  DefaultRange,
			Stream: ent.Stream,
			Pool:   pool,
		}
		if ent.Volume != nil {
			def.Volume = *ent.Volume
		}
		if ent.Range != nil {
			def.Range = *ent.Range
		}
		if !filepath.IsAbs(def.File) {
			def.File = filepath.Join(dir, def.File)
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// LoadCatalog loads every sound of a catalog in parallel and returns them
// by name. If any load fails the ones already loaded are closed.
func (e *Engine) LoadCatalog(path string) (map[string]*Sound, error) {
	if e.off() {
		return nil, e.offErr()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	defs, err := ParseCatalog(path)
	if err != nil {
		return nil, err
	}

	var (
		mtx    sync.Mutex
		sounds = make(map[string]*Sound, len(defs))
	)
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, def := range defs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			s, err := e.LoadSoundDefinition(def)
			if err != nil {
				return fmt.Errorf("sound %q: %w", def.Name, err)
			}
			mtx.Lock()
			sounds[def.Name] = s
			mtx.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, s := range sounds {
			s.Close()
		}
		return nil, err
	}
	e.log.Infof("Loaded %d sounds from %s", len(sounds), path)

	return sounds, nil
}
