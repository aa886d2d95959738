// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audspace/audio"
)

const bytesPerSample = 2

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	// PCM 16-bit only
	buf []byte

	// dataStart is the byte offset of the first sample when r can seek,
	// -1 otherwise.
	dataStart int64
	dataSize  int64
	remaining int64
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BufSize() int    { return cap(s.buf) / bytesPerSample }
func (s *wavSource) Close() error    { return nil }

// Length returns the number of frames in the data chunk.
func (s *wavSource) Length() int64 {
	return s.dataSize / int64(bytesPerSample*s.channels)
}

func (s *wavSource) Seek(frame int64) error {
	seeker, ok := s.r.(io.Seeker)
	if !ok || s.dataStart < 0 {
		return audio.ErrNotSeekable
	}
	if frame < 0 || frame > s.Length() {
		return fmt.Errorf("%w: frame %d of %d", audio.ErrSeekOutOfRange, frame, s.Length())
	}

	offset := frame * int64(bytesPerSample*s.channels)
	if _, err := seeker.Seek(s.dataStart+offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	s.remaining = s.dataSize - offset

	return nil
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.remaining <= 0 {
		return 0, io.EOF
	}

	want := min(int64(len(dst)*bytesPerSample), s.remaining)
	if int64(cap(s.buf)) < want {
		s.buf = make([]byte, want)
	}
	s.buf = s.buf[:want]

	n, err := io.ReadFull(s.r, s.buf)
	s.remaining -= int64(n)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		s.remaining = 0
	} else if err != nil {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / bytesPerSample
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
		dst[i] = float32(v) / 32768.0
	}

	if samples == 0 {
		return 0, io.EOF
	}
	if s.remaining <= 0 && samples < len(dst) {
		return samples, io.EOF
	}

	return samples, nil
}

type Decoder struct{}

// Decode walks the RIFF chunks up to "data", skipping anything it does not
// understand. When r is an io.Seeker the returned source can seek.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if !bytes.HasPrefix(header[:4], []byte("RIFF")) || !bytes.HasPrefix(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	offset := int64(12)
	var (
		channels   int
		sampleRate int
		haveFmt    bool
		chunk      = make([]byte, 8)
	)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, ErrUnsupportedWavChunks
		}
		offset += 8

		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w", err)
			}
			offset += int64(len(body))

			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])

			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, ErrOnlyPCM16bitSupported
			}
			if channels <= 0 {
				return nil, ErrUnsupportedWavLayout
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}

			src := &wavSource{
				r:          r,
				sampleRate: sampleRate,
				channels:   channels,
				buf:        make([]byte, 4096),
				dataStart:  -1,
				dataSize:   size,
				remaining:  size,
			}
			if _, ok := r.(io.Seeker); ok {
				src.dataStart = offset
			}

			return src, nil

		default:
			skip := size + size%2
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, ErrUnsupportedWavChunks
			}
			offset += skip
		}
	}
}
