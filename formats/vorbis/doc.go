// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis through jfreymuth/oggvorbis, the
// format most game sounds ship in. The decoder already yields float
// samples, so reads are a straight copy; length and seeking are available
// whenever the input is an io.ReadSeeker.
package vorbis
