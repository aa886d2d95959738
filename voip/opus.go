//go:build cgo && !noaudio

// SPDX-License-Identifier: EPL-2.0

package voip

import (
	"fmt"

	"github.com/companyzero/gopus"
)

// maxFrameMS is the longest Opus frame.
const maxFrameMS = 120

// OpusDecoder decodes Opus packets with libopus.
type OpusDecoder struct {
	dec       *gopus.Decoder
	channels  int
	frameSize int
	buf       []int16
}

func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpusUnavailable, err)
	}
	frameSize := sampleRate / 1000 * maxFrameMS

	return &OpusDecoder{
		dec:       dec,
		channels:  channels,
		frameSize: frameSize,
		buf:       make([]int16, frameSize*channels),
	}, nil
}

func (d *OpusDecoder) Decode(packet []byte, out []int16) ([]int16, error) {
	pcm, err := d.dec.Decode(packet, d.frameSize, false, d.buf[:0])
	if err != nil {
		return out, fmt.Errorf("opus: %w", err)
	}

	return append(out, pcm...), nil
}
