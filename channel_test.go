// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"testing"

	"github.com/ik5/audspace/backend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func smallPoolConfig() Config {
	cfg := testConfig()
	cfg.DefaultPoolSize = 4
	cfg.VoicePoolSize = 2
	cfg.MaxVoices = 8

	return cfg
}

func TestPlay_PoolExhaustion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := prometheus.NewRegistry()
	e, out := newTestEngine(t, smallPoolConfig(), WithMetrics(reg))

	short, _ := e.LoadSound(writeWAV(t, dir, "click.wav", 1, 10, 0.5), false)
	long, _ := e.LoadSound(writeWAV(t, dir, "drone.wav", 1, 4*testRate, 0.5), false)

	first, err := e.Play(short, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := e.Play(long, DefaultPlayParams()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.Play(long, DefaultPlayParams()); !errors.Is(err, ErrNoVoice) {
		t.Fatalf("fifth Play() error = %v, want ErrNoVoice", err)
	}
	if got := testutil.ToFloat64(e.metrics.playsDropped.WithLabelValues("default")); got != 1 {
		t.Errorf("plays dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.metrics.voicesInUse.WithLabelValues("default")); got != 4 {
		t.Errorf("voices in use = %v, want 4", got)
	}

	// The click ends; its voice is handed to the next request.
	out.Step(100)
	if first.IsPlaying() {
		t.Fatal("click still playing")
	}

	next, err := e.Play(long, DefaultPlayParams())
	if err != nil {
		t.Fatalf("Play() after a voice freed error = %v", err)
	}
	if next.Slot() != first.Slot() {
		t.Errorf("reused slot %d, want %d", next.Slot(), first.Slot())
	}
	if e.ChannelAt(PoolDefault, first.Slot()) != next {
		t.Error("ChannelAt() does not return the new channel")
	}
	if !first.disposed {
		t.Error("evicted channel was not disposed")
	}
	first.Dispose()
	if e.ChannelAt(PoolDefault, next.Slot()) != next {
		t.Error("disposing the evicted channel again cleared its successor")
	}

	if e.CountPlayingInstances(long) != 4 {
		t.Errorf("CountPlayingInstances() = %d, want 4", e.CountPlayingInstances(long))
	}
}

func TestPlay_VoicePoolSeparate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, _ := newTestEngine(t, smallPoolConfig())
	path := writeWAV(t, dir, "chatter.wav", 1, testRate, 0.5)

	fx, _ := e.LoadSound(path, false)
	vc, _ := e.LoadSoundDefinition(SoundDefinition{File: path, Volume: 1, Range: 100, Pool: PoolVoice})

	for range 4 {
		e.Play(fx, DefaultPlayParams())
	}
	if _, err := e.Play(vc, DefaultPlayParams()); err != nil {
		t.Errorf("voice pool play with a full default pool error = %v", err)
	}
	if ch := e.ChannelAt(PoolVoice, 0); ch == nil || ch.Sound() != vc {
		t.Errorf("ChannelAt(voice, 0) = %v", ch)
	}
}

func TestChannel_Params(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, _ := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "pump.wav", 1, testRate, 0.5), false)

	pos := Vec3{X: 10}
	ch, err := e.Play(s, PlayParams{Gain: 0.8, Position: &pos, Near: 5, Far: 50, Category: "Machines", Loop: true})
	if err != nil {
		t.Fatal(err)
	}
	pos.X = 99

	if got := ch.Position(); got == nil || *got != (Vec3{X: 10}) {
		t.Errorf("Position() = %v, want a copy of (10,0,0)", got)
	}
	if ch.Near() != 5 || ch.Far() != 50 {
		t.Errorf("range = %v..%v, want 5..50", ch.Near(), ch.Far())
	}
	if ch.Gain() != 0.8 || ch.Category() != "machines" || !ch.Looping() || ch.IsStream() {
		t.Errorf("gain %v category %q looping %v stream %v", ch.Gain(), ch.Category(), ch.Looping(), ch.IsStream())
	}

	if err := ch.SetPosition(nil); err != nil {
		t.Fatal(err)
	}
	if ch.Position() != nil {
		t.Error("Position() not cleared")
	}
	if err := ch.SetRange(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := ch.SetLooping(false); err != nil || ch.Looping() {
		t.Errorf("SetLooping(false) = %v, Looping() = %v", err, ch.Looping())
	}
	if err := ch.SetGain(0.3); err != nil || ch.Gain() != 0.3 {
		t.Errorf("SetGain() = %v, Gain() = %v", err, ch.Gain())
	}

	plain, _ := e.Play(s, DefaultPlayParams())
	if plain.Near() != s.Near() || plain.Far() != s.Far() || plain.Category() != DefaultCategory {
		t.Errorf("defaults not taken from the sound: %v..%v %q", plain.Near(), plain.Far(), plain.Category())
	}
}

func TestChannel_Muffle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "radio.wav", 1, testRate, 0.5), false)

	pos := Vec3{X: 3}
	ch, _ := e.Play(s, PlayParams{Gain: 0.7, Position: &pos, Category: "radio"})
	out.Step(100)

	if err := ch.SetMuffled(true); err != nil {
		t.Fatal(err)
	}
	if !ch.Muffled() || !ch.IsPlaying() {
		t.Errorf("Muffled() = %v, IsPlaying() = %v", ch.Muffled(), ch.IsPlaying())
	}
	if ch.Gain() != 0.7 || *ch.Position() != pos {
		t.Errorf("muffling changed gain %v or position %v", ch.Gain(), ch.Position())
	}
	if off, _ := e.ctx.Offset(ch.voice); off != 100 {
		t.Errorf("offset after muffle = %d, want 100", off)
	}

	if err := ch.SetMuffled(false); err != nil || ch.Muffled() {
		t.Errorf("SetMuffled(false) = %v, Muffled() = %v", err, ch.Muffled())
	}
}

func TestChannel_MufflePaused(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, _ := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "radio.wav", 1, testRate, 0.5), false)
	ch, _ := e.Play(s, DefaultPlayParams())

	e.ctx.Pause(ch.voice)
	if err := ch.SetMuffled(true); err != nil {
		t.Fatal(err)
	}
	if st, _ := e.ctx.State(ch.voice); st != backend.VoicePaused {
		t.Errorf("state after muffle = %v, want paused", st)
	}
}

func TestChannel_FadeOutAndDispose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "music.wav", 1, testRate, 0.5), false)
	ch, _ := e.Play(s, PlayParams{Gain: 1, Loop: true})

	ch.FadeOutAndDispose()
	if !ch.FadingOutAndDisposing() {
		t.Fatal("FadingOutAndDisposing() = false")
	}

	waitFor(t, out, func() bool {
		return !ch.IsPlaying() && e.ChannelAt(PoolDefault, ch.Slot()) == nil
	})
	if ch.Gain() > 0 {
		t.Errorf("Gain() = %v after the fade, want <= 0", ch.Gain())
	}
	waitFor(t, out, func() bool { return !e.StreamThreadRunning() })
}

func TestChannel_Dispose(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, _ := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "hiss.wav", 1, testRate, 0.5), false)
	ch, _ := e.Play(s, DefaultPlayParams())

	ch.Dispose()
	ch.Dispose()
	if ch.IsPlaying() || ch.CurrentAmplitude() != 0 {
		t.Error("disposed channel still playing")
	}
	if e.ChannelAt(PoolDefault, ch.Slot()) != nil {
		t.Error("slot not freed")
	}
	if err := ch.SetGain(0.5); err != nil {
		t.Errorf("SetGain() on a disposed channel error = %v", err)
	}
	if err := ch.SetMuffled(true); err != nil {
		t.Errorf("SetMuffled() on a disposed channel error = %v", err)
	}
}

func TestCategoryGain(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, testConfig())

	if g := e.CategoryGainMultiplier("music", 0); g != 1 {
		t.Errorf("unset category gain = %v, want 1", g)
	}
	if g := e.CategoryGainMultiplier("music", -1); g != 1 {
		t.Errorf("unset category product = %v, want 1", g)
	}

	e.SetCategoryGainMultiplier("Music", 0.5, 0)
	e.SetCategoryGainMultiplier("music", 0.5, 2)
	e.SetCategoryGainMultiplier("music", 0, -1)

	tests := []struct {
		layer int
		want  float32
	}{
		{0, 0.5},
		{1, 1},
		{2, 0.5},
		{7, 1},
		{-1, 0.25},
	}
	for _, tt := range tests {
		if g := e.CategoryGainMultiplier("MUSIC", tt.layer); g != tt.want {
			t.Errorf("layer %d = %v, want %v", tt.layer, g, tt.want)
		}
	}
}

func TestCategoryGain_AppliesToPlaying(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, out := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "tone.wav", 1, testRate, 0.5), false)

	e.Play(s, PlayParams{Gain: 1, Category: "ui"})
	if mix := out.Step(1); mix[0] < 0.49 || mix[0] > 0.51 {
		t.Fatalf("mix = %v, want 0.5", mix[0])
	}

	e.SetCategoryGainMultiplier("ui", 0.5, 0)
	if mix := out.Step(1); mix[0] < 0.24 || mix[0] > 0.26 {
		t.Errorf("mix after category gain = %v, want 0.25", mix[0])
	}

	e.SetCategoryGainMultiplier("default", 0, 0)
	if mix := out.Step(1); mix[0] < 0.24 {
		t.Errorf("another category's gain changed the mix to %v", mix[0])
	}
}

func TestCategoryMuffle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, _ := newTestEngine(t, testConfig())
	s, _ := e.LoadSound(writeWAV(t, dir, "comms.wav", 1, testRate, 0.5), false)

	before, _ := e.Play(s, PlayParams{Gain: 1, Category: "radio"})
	e.SetCategoryMuffle("Radio", true)

	if !e.CategoryMuffle("radio") {
		t.Error("CategoryMuffle() = false")
	}
	if !before.Muffled() {
		t.Error("playing channel not muffled by its category")
	}

	after, _ := e.Play(s, PlayParams{Gain: 1, Category: "RADIO"})
	if !after.Muffled() {
		t.Error("new channel not muffled by its category")
	}
	other, _ := e.Play(s, PlayParams{Gain: 1, Category: "ui"})
	if other.Muffled() {
		t.Error("channel in another category muffled")
	}

	e.SetCategoryMuffle("radio", false)
	if before.Muffled() || after.Muffled() {
		t.Error("channels still muffled after the category was cleared")
	}
}
