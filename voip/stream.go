// SPDX-License-Identifier: EPL-2.0

package voip

import (
	"fmt"
	"io"
	"sync"

	"github.com/ik5/audspace/utils"
)

// DefaultMaxQueued bounds the queued PCM to one second at 48 kHz stereo.
const DefaultMaxQueued = 48000 * 2

// PacketDecoder turns one network packet into interleaved 16-bit PCM,
// appending to out.
type PacketDecoder interface {
	Decode(packet []byte, out []int16) ([]int16, error)
}

// Stream is a live audio.Source fed by Input. Reads never block: with
// nothing queued they return 0 samples and a nil error, and once the
// stream is closed and drained they return io.EOF.
type Stream struct {
	sampleRate int
	channels   int
	dec        PacketDecoder
	maxQueued  int

	mtx     sync.Mutex
	queue   []float32
	scratch []int16
	dropped int
	closed  bool
}

func NewStream(sampleRate, channels int, dec PacketDecoder) *Stream {
	return &Stream{
		sampleRate: sampleRate,
		channels:   channels,
		dec:        dec,
		maxQueued:  DefaultMaxQueued,
	}
}

// SetMaxQueued changes the queue bound, in samples.
func (s *Stream) SetMaxQueued(n int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.maxQueued = max(n, s.channels)
}

func (s *Stream) SampleRate() int { return s.sampleRate }
func (s *Stream) Channels() int   { return s.channels }
func (s *Stream) BufSize() int    { return 4096 }

// Input decodes packet and queues the result. A packet that does not
// decode to whole frames is rejected. When the queue is full the oldest
// samples are dropped so latency stays bounded.
func (s *Stream) Input(packet []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	pcm, err := s.dec.Decode(packet, s.scratch[:0])
	if err != nil {
		return fmt.Errorf("decode packet: %w", err)
	}
	s.scratch = pcm
	if len(pcm)%s.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrPartialFrame, len(pcm), s.channels)
	}

	for _, v := range pcm {
		s.queue = append(s.queue, utils.Int16ToFloat32(v))
	}
	if over := len(s.queue) - s.maxQueued; over > 0 {
		over += (s.channels - over%s.channels) % s.channels
		s.queue = append(s.queue[:0], s.queue[over:]...)
		s.dropped += over
	}

	return nil
}

// Queued returns the number of samples waiting to be read.
func (s *Stream) Queued() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.queue)
}

// Dropped returns how many samples were discarded because the queue was
// full.
func (s *Stream) Dropped() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.dropped
}

func (s *Stream) ReadSamples(dst []float32) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n := min(len(dst), len(s.queue))
	n -= n % s.channels
	copy(dst, s.queue[:n])
	s.queue = append(s.queue[:0], s.queue[n:]...)

	if n == 0 && s.closed {
		return 0, io.EOF
	}

	return n, nil
}

// Close ends the stream; queued samples can still be read.
func (s *Stream) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.closed = true

	return nil
}
