// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/dsp"
	"github.com/ik5/audspace/utils"
)

// Default sound parameters, used when a definition leaves them out.
const (
	DefaultVolume = 1.0
	DefaultRange  = 1000.0
	// nearFraction places the near radius relative to the range.
	nearFraction = 0.4
)

// soundData is either *bufferedData or *streamData.
type soundData interface {
	release(ctx backend.Context) error
}

// bufferedData holds a fully decoded sound: a clear and a low-passed copy
// in the backend, plus the loudness envelope of the clear copy.
type bufferedData struct {
	clear   backend.Buffer
	muffled backend.Buffer
	env     *dsp.Envelope
	frames  int
}

func (d *bufferedData) release(ctx backend.Context) error {
	return errors.Join(ctx.DeleteBuffer(d.clear), ctx.DeleteBuffer(d.muffled))
}

// streamData is a decoder shared by every channel playing the sound. Each
// channel keeps its own cursor and reads go through readAt.
type streamData struct {
	mtx sync.Mutex
	src audio.Source
	// seek is nil for live sources, which are read in arrival order.
	seek   audio.SeekableSource
	pos    int64
	frames int64
}

func (d *streamData) release(backend.Context) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.src.Close()
}

// readAt fills dst with frames starting at frame. It returns fewer samples
// than asked only at the end of the stream, or when a live source has
// nothing queued.
func (d *streamData) readAt(frame int64, dst []float32, channels int) (int, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.seek != nil && frame != d.pos {
		if err := d.seek.Seek(frame); err != nil {
			return 0, err
		}
		d.pos = frame
	}

	total := 0
	for total < len(dst) {
		n, err := d.src.ReadSamples(dst[total:])
		total += n
		if err != nil {
			d.pos += int64(total / channels)
			return total, err
		}
		if n == 0 {
			break
		}
	}
	d.pos += int64(total / channels)

	return total, nil
}

// Sound is a loaded asset. A Sound is either buffered, decoded in full at
// load time, or streamed from its decoder while it plays.
type Sound struct {
	engine     *Engine
	name       string
	path       string
	sampleRate int
	channels   int
	format     backend.Format
	baseGain   float32
	near       float32
	far        float32
	pool       PoolID

	data   soundData
	closed atomic.Bool
}

func (s *Sound) Path() string      { return s.path }
func (s *Sound) Name() string      { return s.name }
func (s *Sound) SampleRate() int   { return s.sampleRate }
func (s *Sound) Channels() int     { return s.channels }
func (s *Sound) BaseGain() float32 { return s.baseGain }
func (s *Sound) Near() float32     { return s.near }
func (s *Sound) Far() float32      { return s.far }
func (s *Sound) Pool() PoolID      { return s.pool }

// Streamed reports whether the sound is decoded during playback.
func (s *Sound) Streamed() bool {
	_, ok := s.data.(*streamData)
	return ok
}

// Frames returns the length of the sound, or -1 when a streamed decoder
// cannot tell.
func (s *Sound) Frames() int64 {
	switch d := s.data.(type) {
	case *bufferedData:
		return int64(d.frames)
	case *streamData:
		return d.frames
	}

	return -1
}

// Envelope returns the loudness envelope; streamed sounds have none.
func (s *Sound) Envelope() *dsp.Envelope {
	if d, ok := s.data.(*bufferedData); ok {
		return d.env
	}

	return nil
}

// AmplitudeAt returns the peak amplitude around frame. It is 0 for
// streamed sounds.
func (s *Sound) AmplitudeAt(frame int) float32 {
	return s.Envelope().At(frame)
}

// Close stops every channel playing s, frees its buffers or decoder and
// removes it from the engine.
func (s *Sound) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	e := s.engine
	e.KillChannels(s)
	e.RemoveSound(s)

	if !e.ctxAlive.Load() {
		return nil
	}
	if err := s.data.release(e.ctx); err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrBackend, s.path, err)
	}

	return nil
}

// SoundDefinition describes a sound in a catalog.
type SoundDefinition struct {
	Name   string
	File   string
	Volume float32
	Range  float32
	Stream bool
	Pool   PoolID
}

// LoadSound loads path with the default volume and range. A missing file
// yields ErrNotFound; a disabled engine yields ErrDisabled.
func (e *Engine) LoadSound(path string, streamed bool) (*Sound, error) {
	return e.LoadSoundDefinition(SoundDefinition{
		File:   path,
		Volume: DefaultVolume,
		Range:  DefaultRange,
		Stream: streamed,
	})
}

// LoadSoundDefinition loads def.File. The near radius is 40% of def.Range
// and the far radius is def.Range.
func (e *Engine) LoadSoundDefinition(def SoundDefinition) (*Sound, error) {
	if e.off() {
		return nil, e.offErr()
	}
	if def.Pool != PoolDefault && def.Pool != PoolVoice {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPool, def.Pool)
	}

	fi, err := os.Stat(def.File)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, def.File)
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", def.File, err)
	}
	if e.cfg.CheckFilenameCase {
		e.checkFilenameCase(def.File)
	}

	name := def.Name
	if name == "" {
		name = filepath.Base(def.File)
	}
	s := &Sound{
		engine:   e,
		name:     name,
		path:     def.File,
		baseGain: def.Volume,
		near:     def.Range * nearFraction,
		far:      def.Range,
		pool:     def.Pool,
	}

	if def.Stream {
		err = e.loadStreamed(s)
	} else {
		err = e.loadBuffered(s)
	}
	if err != nil {
		return nil, err
	}

	e.soundsMtx.Lock()
	e.sounds = append(e.sounds, s)
	n := len(e.sounds)
	e.soundsMtx.Unlock()
	e.metrics.loadedSounds.Set(float64(n))

	e.log.Debugf("Loaded %s (%s, %d Hz, %d ch, streamed=%v)", s.path,
		humanize.IBytes(uint64(fi.Size())), s.sampleRate, s.channels, def.Stream)

	return s, nil
}

// checkFilenameCase logs when path only matches the file on disk
// case-insensitively. Such paths break on case-sensitive filesystems.
func (e *Engine) checkFilenameCase(path string) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if ent.Name() == name {
			return
		}
	}
	e.log.Errorf("Sound file %q has incorrect case", path)
}

// closingSource closes the file a decoder reads from together with the
// decoder.
type closingSource struct {
	audio.Source
	c io.Closer
}

func (s closingSource) Close() error {
	return errors.Join(s.Source.Close(), s.c.Close())
}

type closingSeekableSource struct {
	audio.SeekableSource
	c io.Closer
}

func (s closingSeekableSource) Close() error {
	return errors.Join(s.SeekableSource.Close(), s.c.Close())
}

func (e *Engine) openSource(path string) (audio.Source, error) {
	dec, ok := e.registry.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: decode %s: %w", ErrUnknownFormat, path, err)
	}

	return closingSource{Source: src, c: f}, nil
}

// openSeekable opens path as a SeekableSource, falling back to reopening
// the file for decoders that cannot seek.
func (e *Engine) openSeekable(path string) (audio.SeekableSource, error) {
	src, err := e.openSource(path)
	if err != nil {
		return nil, err
	}
	cs := src.(closingSource)
	if ss, ok := audio.Seekable(cs.Source); ok {
		return closingSeekableSource{SeekableSource: ss, c: cs.c}, nil
	}
	if err := src.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}

	r, err := audio.NewReopener(func() (audio.Source, error) {
		return e.openSource(path)
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (e *Engine) loadStreamed(s *Sound) error {
	src, err := e.openSeekable(s.path)
	if err != nil {
		return err
	}
	format, ok := backend.FormatFor(src.Channels())
	if !ok {
		src.Close()
		return fmt.Errorf("%w: %d channels in streamed %s", ErrUnknownFormat, src.Channels(), s.path)
	}

	s.sampleRate = src.SampleRate()
	s.channels = src.Channels()
	s.format = format
	s.data = &streamData{
		src:    src,
		seek:   src,
		frames: src.Length(),
	}

	return nil
}

func (e *Engine) loadBuffered(s *Sound) error {
	src, err := e.openSource(s.path)
	if err != nil {
		return err
	}
	defer src.Close()

	var in audio.Source = src
	if _, ok := backend.FormatFor(src.Channels()); !ok {
		in = audio.NewMonoMixer(src)
	}
	samples, err := audio.ReadAll(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.sampleRate = in.SampleRate()
	s.channels = in.Channels()
	s.format, _ = backend.FormatFor(s.channels)

	data, err := e.uploadBuffered(samples, s.sampleRate, s.channels, s.format)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	s.data = data

	return nil
}

// uploadBuffered builds the envelope, uploads samples as the clear buffer,
// muffles samples in place and uploads them again. Either both buffers
// exist afterwards or neither does.
func (e *Engine) uploadBuffered(samples []float32, rate, channels int, format backend.Format) (*bufferedData, error) {
	d := &bufferedData{
		env:    dsp.NewEnvelope(samples, rate, channels),
		frames: len(samples) / channels,
	}

	var err error
	if d.clear, err = e.ctx.GenBuffer(); err != nil {
		return nil, fmt.Errorf("%w: gen buffer: %w", ErrBackend, err)
	}
	if d.muffled, err = e.ctx.GenBuffer(); err != nil {
		e.ctx.DeleteBuffer(d.clear)
		return nil, fmt.Errorf("%w: gen buffer: %w", ErrBackend, err)
	}

	pcm := utils.CastBuffer(nil, samples)
	if err = e.ctx.BufferData(d.clear, format, pcm, rate); err == nil {
		e.filters.Muffle(samples, rate, channels)
		pcm = utils.CastBuffer(pcm, samples)
		err = e.ctx.BufferData(d.muffled, format, pcm, rate)
	}
	if err != nil {
		d.release(e.ctx)
		return nil, fmt.Errorf("%w: buffer data: %w", ErrBackend, err)
	}

	return d, nil
}

// RemoveSound unregisters s without releasing it.
func (e *Engine) RemoveSound(s *Sound) {
	e.soundsMtx.Lock()
	for i, ls := range e.sounds {
		if ls == s {
			e.sounds = append(e.sounds[:i], e.sounds[i+1:]...)
			break
		}
	}
	n := len(e.sounds)
	e.soundsMtx.Unlock()

	e.metrics.loadedSounds.Set(float64(n))
}

// LoadedSoundCount returns the number of registered sounds.
func (e *Engine) LoadedSoundCount() int {
	e.soundsMtx.Lock()
	defer e.soundsMtx.Unlock()

	return len(e.sounds)
}

// UniqueLoadedSoundCount counts registered sounds with distinct paths.
func (e *Engine) UniqueLoadedSoundCount() int {
	e.soundsMtx.Lock()
	defer e.soundsMtx.Unlock()

	seen := make(map[string]struct{}, len(e.sounds))
	for _, s := range e.sounds {
		seen[s.path] = struct{}{}
	}

	return len(seen)
}
