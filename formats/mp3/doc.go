// Package mp3 decodes MPEG-1/2 layer III audio with hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so every source is two channels
// regardless of the file; mono clips simply carry the same signal twice.
// Over an io.ReadSeeker the decoder knows its length and can seek, which
// lets the engine stream and loop mp3 music directly.
package mp3
