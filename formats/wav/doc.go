// Package wav reads and writes 16-bit PCM RIFF/WAVE files.
//
// The decoder walks the chunk list up to "data" and skips anything it does
// not use (LIST, cue, fact, ...), honouring the RIFF pad byte after odd
// sized chunks. Given an io.ReadSeeker the source knows its length and
// seeks by frame, which is what streamed sounds need to loop.
//
// WriteWAV16Channels emits the canonical 44 byte header; the engine's
// tests and the wavfile output use it to produce fixtures and captures.
package wav
