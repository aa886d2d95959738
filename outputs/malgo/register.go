// SPDX-License-Identifier: EPL-2.0

package malgo

import (
	"github.com/ik5/audspace"
	"github.com/ik5/audspace/backend"
)

func init() {
	audspace.RegisterOutput(audspace.OutputMalgo, func(audspace.Config) (backend.OutputOpener, error) {
		return Open, nil
	})
}
