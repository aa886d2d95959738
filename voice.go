// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"fmt"

	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/voip"
)

// voipPath names live voice sounds in logs and instance counts.
const voipPath = "voip:"

// PlayVoice plays a live voice chat stream on the voice pool. The channel
// keeps playing through gaps in the stream and ends once the stream is
// closed and drained. The stream stays owned by the caller.
func (e *Engine) PlayVoice(stream *voip.Stream, p PlayParams) (*Channel, error) {
	if e.off() {
		return nil, e.offErr()
	}
	if stream == nil {
		return nil, ErrSoundClosed
	}
	format, ok := backend.FormatFor(stream.Channels())
	if !ok {
		return nil, fmt.Errorf("%w: %d channel voice stream", ErrUnknownFormat, stream.Channels())
	}

	s := &Sound{
		engine:     e,
		path:       voipPath,
		sampleRate: stream.SampleRate(),
		channels:   stream.Channels(),
		format:     format,
		baseGain:   DefaultVolume,
		near:       DefaultRange * nearFraction,
		far:        DefaultRange,
		pool:       PoolVoice,
		data: &streamData{
			src:    liveSource{stream},
			frames: -1,
		},
	}

	return e.play(s, p)
}

// liveSource keeps closing a channel's sound from closing the caller's
// stream.
type liveSource struct {
	*voip.Stream
}

func (liveSource) Close() error { return nil }
