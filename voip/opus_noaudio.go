//go:build !cgo || noaudio

// SPDX-License-Identifier: EPL-2.0

package voip

// OpusDecoder is unavailable without cgo.
type OpusDecoder struct{}

func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	return nil, ErrOpusUnavailable
}

func (d *OpusDecoder) Decode(packet []byte, out []int16) ([]int16, error) {
	return out, ErrOpusUnavailable
}
