// SPDX-License-Identifier: EPL-2.0

package backend

import "math"

// Vec3 is a position or direction in listener space.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Normalize returns v scaled to unit length, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}

	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns |a-b|.
func Distance(a, b Vec3) float32 { return a.Sub(b).Len() }

// LinearClamped is the attenuation of the linear-clamped distance model: 1
// up to near, falling linearly to 0 at far.
func LinearClamped(dist, near, far float32) float32 {
	if dist <= near {
		return 1
	}
	if far <= near {
		return 0
	}

	return 1 - min(1, (dist-near)/(far-near))
}

// Format describes the sample layout of buffer data.
type Format int

const (
	FormatMono16 Format = iota + 1
	FormatStereo16
)

// FormatFor returns the 16-bit format for a channel count.
func FormatFor(channels int) (Format, bool) {
	switch channels {
	case 1:
		return FormatMono16, true
	case 2:
		return FormatStereo16, true
	}

	return 0, false
}

// Channels returns the channel count of f, or 0 for an unknown format.
func (f Format) Channels() int {
	switch f {
	case FormatMono16:
		return 1
	case FormatStereo16:
		return 2
	}

	return 0
}

// DistanceModel selects how voice gain falls off with distance.
type DistanceModel int

const (
	DistanceNone DistanceModel = iota
	DistanceLinearClamped
)

// VoiceState is the playback state of a voice.
type VoiceState int

const (
	VoiceInitial VoiceState = iota
	VoicePlaying
	VoicePaused
	VoiceStopped
)

func (s VoiceState) String() string {
	switch s {
	case VoiceInitial:
		return "initial"
	case VoicePlaying:
		return "playing"
	case VoicePaused:
		return "paused"
	case VoiceStopped:
		return "stopped"
	}

	return "unknown"
}

// Buffer names a block of PCM held by the backend. Zero is never a valid
// name.
type Buffer uint32

// Voice names a hardware voice. Zero is never a valid name.
type Voice uint32

// Driver opens output devices.
type Driver interface {
	// OpenDevice opens the default output device. A device that exists
	// but cannot be used yet reports ErrDeviceNotReady.
	OpenDevice() (Device, error)
}

// Device is an open output device.
type Device interface {
	CreateContext() (Context, error)
	Close() error
}

// Context owns listener state, buffers and voices. Every call returns the
// backend error it produced instead of leaving it to be queried.
type Context interface {
	MakeCurrent() error
	Release() error
	Destroy() error

	SetDistanceModel(m DistanceModel) error

	SetListenerPosition(p Vec3) error
	SetListenerOrientation(target, up Vec3) error
	SetListenerGain(g float32) error

	GenBuffer() (Buffer, error)
	BufferData(b Buffer, f Format, data []int16, sampleRate int) error
	DeleteBuffer(b Buffer) error

	GenVoice() (Voice, error)
	DeleteVoice(v Voice) error
	IsVoice(v Voice) bool

	// SetVoiceBuffer binds a single buffer; zero unbinds everything,
	// queued buffers included.
	SetVoiceBuffer(v Voice, b Buffer) error
	QueueBuffers(v Voice, bs ...Buffer) error
	// UnqueueProcessed removes and returns queued buffers the voice has
	// finished with.
	UnqueueProcessed(v Voice) ([]Buffer, error)
	QueuedBuffers(v Voice) (int, error)

	SetVoiceGain(v Voice, g float32) error
	// SetVoicePosition places the voice; a relative voice is placed
	// relative to the listener.
	SetVoicePosition(v Voice, p Vec3, relative bool) error
	SetVoiceRange(v Voice, near, far float32) error
	SetVoiceLooping(v Voice, loop bool) error

	Play(v Voice) error
	Pause(v Voice) error
	Stop(v Voice) error
	State(v Voice) (VoiceState, error)
	// Offset is the playback position within the current buffer, in
	// frames at the buffer's own sample rate.
	Offset(v Voice) (int, error)
	SetOffset(v Voice, frame int) error
}

// Renderer fills dst with interleaved float32 frames at the output rate.
type Renderer interface {
	Render(dst []float32)
}

// Output is a sink that pulls from a Renderer on its own schedule, usually
// from a device callback goroutine.
type Output interface {
	Start(r Renderer) error
	Close() error
}

// OutputOpener opens an output running at sampleRate with the given number
// of interleaved channels.
type OutputOpener func(sampleRate, channels int) (Output, error)
