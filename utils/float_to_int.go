// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1,1] and scales it to signed 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 keeps +1.0 from overflowing.
	return int16(x * 32767.0)
}

// Int16ToFloat32 maps a signed 16-bit PCM sample into [-1,1).
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// CastBuffer converts src into 16-bit PCM, reusing dst when it is large
// enough. The returned slice has len(src) elements.
func CastBuffer(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]

	for i, v := range src {
		dst[i] = Float32ToInt16(v)
	}

	return dst
}

// PeakAbs returns the largest absolute sample value in buf.
func PeakAbs(buf []float32) float32 {
	var peak float32
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	return peak
}
