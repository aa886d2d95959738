// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ik5/audspace/formats/wav"
	"github.com/ik5/audspace/voip"
)

func TestStreamed_PlaysToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, err := e.LoadSound(writeWAV(t, dir, "ambience.wav", 1, 1000, 0.5), true)
	if err != nil {
		t.Fatal(err)
	}

	a, err := e.Play(s, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Play(s, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsStream() || !a.IsPlaying() {
		t.Fatalf("IsStream() = %v, IsPlaying() = %v", a.IsStream(), a.IsPlaying())
	}
	if amp := a.CurrentAmplitude(); amp < 0.49 || amp > 0.51 {
		t.Errorf("CurrentAmplitude() = %v, want the first block's peak", amp)
	}
	if !e.StreamThreadRunning() {
		t.Error("streaming goroutine not started")
	}

	waitFor(t, out, func() bool {
		return e.ChannelAt(PoolDefault, a.Slot()) == nil && e.ChannelAt(PoolDefault, b.Slot()) == nil
	})
	if a.IsPlaying() || b.IsPlaying() {
		t.Error("finished streams still playing")
	}
	waitFor(t, out, func() bool { return !e.StreamThreadRunning() })

	// The decoder is rewound for the next channel.
	c, err := e.Play(s, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	if amp := c.CurrentAmplitude(); amp < 0.49 {
		t.Errorf("replay CurrentAmplitude() = %v", amp)
	}
}

func TestStreamed_AmplitudeFollowsPlayingBuffer(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	block := cfg.StreamBlockFrames

	// One loud block followed by a long quiet tail.
	samples := make([]int16, 11*block)
	for i := range samples {
		samples[i] = 3277
		if i < block {
			samples[i] = 16384
		}
	}
	path := filepath.Join(t.TempDir(), "swell.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.WriteWAV16Channels(f, testRate, 1, samples); err != nil {
		t.Fatal(err)
	}
	f.Close()

	e, out := newTestEngine(t, cfg)
	s, err := e.LoadSound(path, true)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := e.Play(s, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}

	// The quiet second block is already queued behind the loud one.
	if amp := ch.CurrentAmplitude(); amp < 0.49 || amp > 0.51 {
		t.Errorf("CurrentAmplitude() = %v, want the loud block playing", amp)
	}
	waitFor(t, out, func() bool {
		amp := ch.CurrentAmplitude()
		return amp > 0.09 && amp < 0.11
	})
	waitFor(t, out, func() bool { return !ch.IsPlaying() })
	if amp := ch.CurrentAmplitude(); amp != 0 {
		t.Errorf("CurrentAmplitude() after the end = %v, want 0", amp)
	}
}

func TestStreamed_Looping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "loop.wav", 1, 300, 0.5), true)

	ch, err := e.Play(s, PlayParams{Gain: 1, Loop: true})
	if err != nil {
		t.Fatal(err)
	}

	for range 20 {
		out.Step(128)
		time.Sleep(2 * time.Millisecond)
	}
	if !ch.IsPlaying() {
		t.Fatal("looping stream ended")
	}

	if err := ch.SetLooping(false); err != nil {
		t.Fatal(err)
	}
	waitFor(t, out, func() bool { return !ch.IsPlaying() })
}

func TestStreamed_CloseWhilePlaying(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "engine.wav", 2, testRate, 0.5), true)

	ch, _ := e.Play(s, DefaultPlayParams())
	out.Step(128)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if ch.IsPlaying() {
		t.Error("stream still playing after its sound was closed")
	}
	waitFor(t, out, func() bool { return !e.StreamThreadRunning() })
}

func pcmPacket(n int, v int16) []byte {
	b := make([]byte, 2*n)
	for i := range n {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}

	return b
}

func TestPlayVoice(t *testing.T) {
	t.Parallel()

	e, out := newTestEngine(t, smallPoolConfig())
	stream := voip.NewStream(testRate, 1, voip.PCMDecoder{})
	stream.Input(pcmPacket(300, 16384))

	ch, err := e.PlayVoice(stream, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	if !ch.IsStream() || ch.Sound().Pool() != PoolVoice || ch.Sound().Path() != voipPath {
		t.Fatalf("voice channel: stream %v pool %v path %q", ch.IsStream(), ch.Sound().Pool(), ch.Sound().Path())
	}
	if e.ChannelAt(PoolVoice, ch.Slot()) != ch {
		t.Error("voice channel not in the voice pool")
	}
	if e.CountPlayingInstances(ch.Sound()) != 1 {
		t.Errorf("CountPlayingInstances() = %d, want 1", e.CountPlayingInstances(ch.Sound()))
	}

	// Draining the stream is an underrun, not the end.
	waitFor(t, out, func() bool { return stream.Queued() == 0 })
	for range 10 {
		out.Step(128)
		time.Sleep(2 * time.Millisecond)
	}
	if !ch.IsPlaying() {
		t.Fatal("voice channel ended on an underrun")
	}

	stream.Input(pcmPacket(100, 8192))
	waitFor(t, out, func() bool { return stream.Queued() == 0 })

	stream.Close()
	waitFor(t, out, func() bool {
		return !ch.IsPlaying() && e.ChannelAt(PoolVoice, ch.Slot()) == nil
	})
}

func TestPlayVoice_Errors(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, smallPoolConfig())

	if _, err := e.PlayVoice(nil, DefaultPlayParams()); !errors.Is(err, ErrSoundClosed) {
		t.Errorf("PlayVoice(nil) error = %v, want ErrSoundClosed", err)
	}
	if _, err := e.PlayVoice(voip.NewStream(testRate, 3, voip.PCMDecoder{}), DefaultPlayParams()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("3 channel PlayVoice() error = %v, want ErrUnknownFormat", err)
	}

	for range 2 {
		if _, err := e.PlayVoice(voip.NewStream(testRate, 1, voip.PCMDecoder{}), DefaultPlayParams()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.PlayVoice(voip.NewStream(testRate, 1, voip.PCMDecoder{}), DefaultPlayParams()); !errors.Is(err, ErrNoVoice) {
		t.Errorf("PlayVoice() on a full voice pool error = %v, want ErrNoVoice", err)
	}
}
