//go:build headless

// SPDX-License-Identifier: EPL-2.0

package oto

import (
	"fmt"

	"github.com/ik5/audspace/backend"
)

// Open always fails in headless builds.
func Open(sampleRate, channels int) (backend.Output, error) {
	return nil, fmt.Errorf("%w: oto output not built in", backend.ErrNoDevice)
}
