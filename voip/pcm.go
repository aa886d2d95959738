// SPDX-License-Identifier: EPL-2.0

package voip

import "encoding/binary"

// PCMDecoder passes little-endian 16-bit PCM packets through.
type PCMDecoder struct{}

func (PCMDecoder) Decode(packet []byte, out []int16) ([]int16, error) {
	if len(packet)%2 != 0 {
		return out, ErrOddPacket
	}
	for i := 0; i+1 < len(packet); i += 2 {
		out = append(out, int16(binary.LittleEndian.Uint16(packet[i:])))
	}

	return out, nil
}
