// SPDX-License-Identifier: EPL-2.0

package voip

import "errors"

var (
	ErrStreamClosed    = errors.New("voice stream closed")
	ErrOddPacket       = errors.New("PCM packet has an odd byte count")
	ErrPartialFrame    = errors.New("packet does not hold whole frames")
	ErrOpusUnavailable = errors.New("opus decoding unavailable")
)
