// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/formats/aiff"
	"github.com/ik5/audspace/formats/flac"
	"github.com/ik5/audspace/formats/mp3"
	"github.com/ik5/audspace/formats/vorbis"
	"github.com/ik5/audspace/formats/wav"
)

// DefaultRegistry returns a registry with every bundled decoder.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("flac", flac.Decoder{})

	return r
}
