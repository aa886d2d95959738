// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC streams with github.com/mewkiz/flac. Samples
// of any bit depth are scaled to [-1,1]. Sources built over an
// io.ReadSeeker can seek by frame using the stream's seek table.
package flac
