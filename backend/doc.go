// SPDX-License-Identifier: EPL-2.0

// Package backend declares the boundary between the engine and whatever
// renders audio: a Driver opens a Device, the Device creates a Context, and
// the Context owns listener state, PCM buffers and a fixed set of voices.
//
// The model follows the classic 3D audio API shape. Buffers are uploaded as
// 16-bit PCM with a format and sample rate; a voice plays either one bound
// buffer or a queue of buffers, with its own gain, position and distance
// range. The software implementation lives in backend/softmix.
package backend
