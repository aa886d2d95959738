// SPDX-License-Identifier: EPL-2.0

// Package softmix implements the backend boundary in software.
//
// A Driver wraps a backend.OutputOpener. Opening a device opens the output,
// and making the device's single context current starts pulling mixed
// frames from it. The context holds a fixed number of voices; GenVoice
// fails with backend.ErrOutOfMemory once they are all allocated.
//
// Uploaded buffers are converted to float32, resampled to the mix rate with
// audio.Resampler and downmixed with audio.MonoMixer once, so rendering
// never resamples. Positional voices play the mono downmix with equal-power
// panning taken from the listener orientation; a relative voice at the
// origin plays its channels unchanged. Distance attenuation follows the
// linear-clamped model when it is selected.
//
//	drv := softmix.NewDriver(pulse.Open, softmix.WithSampleRate(48000))
//	dev, err := drv.OpenDevice()
//	ctx, err := dev.CreateContext()
//	err = ctx.MakeCurrent()
package softmix
