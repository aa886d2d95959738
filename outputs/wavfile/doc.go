// SPDX-License-Identifier: EPL-2.0

// Package wavfile provides headless outputs: one that renders the mix in
// real time into a 16-bit WAV file through github.com/go-audio/wav, and one
// that renders on the same schedule and throws the result away.
package wavfile
