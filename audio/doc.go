// SPDX-License-Identifier: EPL-2.0

// Package audio holds the PCM plumbing shared by the decoders, the
// software mixer and the engine.
//
// Everything is a pull-based Source producing interleaved float32 samples
// in [-1, 1]. Sources that know their length and can jump around also
// implement SeekableSource; streamed sounds need that to loop and to
// restart, so a forward-only decoder is wrapped in a Reopener which seeks
// by reopening the file and skipping ahead.
//
// The Resampler and MonoMixer adapt a Source to the mix rate and to a
// single channel. The Registry maps file extensions to the Decoder that
// understands them:
//
//	reg := audio.NewRegistry()
//	reg.Register("ogg", vorbis.Decoder{})
//	dec, ok := reg.ForPath("Content/Sounds/Hull/Creak1.ogg")
//
// A Source signals the end of its data with io.EOF, possibly together with
// the final samples.
package audio
