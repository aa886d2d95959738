// Package aiff decodes uncompressed AIFF files through go-audio/aiff.
//
// 8, 16, 24 and 32-bit PCM are accepted. The go-audio decoder cannot
// reposition itself, so the sources report their length but refuse to
// seek; the engine wraps them in an audio.Reopener when it streams one.
package aiff
