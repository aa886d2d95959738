//go:build !cgo || noaudio

// SPDX-License-Identifier: EPL-2.0

package malgo

import (
	"fmt"

	"github.com/ik5/audspace/backend"
)

// Open always fails: miniaudio needs cgo.
func Open(sampleRate, channels int) (backend.Output, error) {
	return nil, fmt.Errorf("%w: malgo output not built in", backend.ErrNoDevice)
}
