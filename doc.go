// SPDX-License-Identifier: EPL-2.0

// Package audspace is a positional audio engine for games and simulations.
//
// An Engine owns an output device, two fixed pools of voices (one for sound
// effects and music, one for voice chat) and the sounds loaded through it.
// Playing a sound binds a Channel to a free voice; when every voice of a
// pool is busy the request is dropped with ErrNoVoice rather than queued,
// and finished channels are evicted to make room.
//
// # Sounds
//
// A Sound is either buffered or streamed. Buffered sounds are decoded in
// full when loaded: the engine keeps a clear copy, a low-passed "muffled"
// copy and a loudness envelope. Streamed sounds keep their decoder open and
// are fed to the voice in blocks by a background goroutine. Muffling only
// switches buffers, so streamed channels record the flag but play
// unfiltered.
//
//	e, err := audspace.Open(audspace.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	s, err := e.LoadSound("sounds/door.ogg", false)
//	if err != nil {
//	    return err
//	}
//	ch, err := e.Play(s, audspace.PlayParams{
//	    Gain:     1,
//	    Position: &audspace.Vec3{X: 10},
//	    Category: "default",
//	})
//
// # Categories and compression
//
// Channels belong to a category. Each category has any number of gain
// layers, owned by independent systems, and a muffle override. Update, to
// be called once per tick, ducks background categories while voice chat is
// active and runs a compressor that lowers every channel's gain when the
// estimated mix amplitude would clip.
//
// # Disabled engines
//
// When no output device can be opened Open still returns an Engine. It is
// disabled: loads return ErrDisabled, queries return zero values and
// setters do nothing, so a machine without audio keeps running.
//
// See the backend package for the device boundary, backend/softmix for the
// software mixer behind it and outputs/ for the audio sinks.
package audspace
