// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

// header is the canonical 44 byte RIFF/WAVE header for 16-bit PCM.
type header struct {
	RIFF       [4]byte
	RIFFSize   uint32
	WAVE       [4]byte
	Fmt        [4]byte
	FmtSize    uint32
	Format     uint16
	Channels   uint16
	SampleRate uint32
	ByteRate   uint32
	BlockAlign uint16
	Bits       uint16
	Data       [4]byte
	DataSize   uint32
}

const writeChunk = 4096

// WriteWAV16 writes mono 16-bit PCM at sampleRate.
func WriteWAV16(w io.Writer, sampleRate int, samples []int16) error {
	return WriteWAV16Channels(w, sampleRate, 1, samples)
}

// WriteWAV16Channels writes interleaved 16-bit PCM. len(samples) must be a
// multiple of channels.
func WriteWAV16Channels(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels <= 0 || len(samples)%channels != 0 {
		return ErrUnsupportedWavLayout
	}

	align := uint16(channels * bytesPerSample)
	dataSize := uint32(len(samples) * bytesPerSample)
	h := header{
		RIFF:       [4]byte{'R', 'I', 'F', 'F'},
		RIFFSize:   36 + dataSize,
		WAVE:       [4]byte{'W', 'A', 'V', 'E'},
		Fmt:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:    16,
		Format:     1,
		Channels:   uint16(channels),
		SampleRate: uint32(sampleRate),
		ByteRate:   uint32(sampleRate) * uint32(align),
		BlockAlign: align,
		Bits:       8 * bytesPerSample,
		Data:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:   dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	buf := make([]byte, 0, min(len(samples), writeChunk)*bytesPerSample)
	for len(samples) > 0 {
		n := min(len(samples), writeChunk)
		buf = buf[:0]
		for _, s := range samples[:n] {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
		samples = samples[n:]
	}

	return nil
}
