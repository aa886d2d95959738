// SPDX-License-Identifier: EPL-2.0

// Package voip carries live voice chat into the engine. A Stream is an
// audio.Source that network code feeds packet by packet; the engine plays it
// on the voice-chat pool like any other streamed sound.
//
// Packets are decoded by a PacketDecoder: PCMDecoder for raw little-endian
// 16-bit PCM, or OpusDecoder, which wraps libopus through
// github.com/companyzero/gopus and needs cgo.
package voip
