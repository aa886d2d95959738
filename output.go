// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"fmt"
	"strings"

	"github.com/ik5/audspace/backend"
	"github.com/ik5/audspace/outputs/pulse"
	"github.com/ik5/audspace/outputs/wavfile"
	"github.com/puzpuzpuz/xsync/v3"
)

// OutputFactory builds the opener for the output cfg selects.
type OutputFactory func(cfg Config) (backend.OutputOpener, error)

var outputs = xsync.NewMapOf[string, OutputFactory]()

func init() {
	RegisterOutput(OutputPulse, func(Config) (backend.OutputOpener, error) {
		return pulse.Open, nil
	})
	RegisterOutput(OutputWAVFile, func(cfg Config) (backend.OutputOpener, error) {
		if cfg.OutputFile == "" {
			return nil, fmt.Errorf("output %q needs output_file", cfg.Output)
		}
		return wavfile.Opener(cfg.OutputFile), nil
	})
	RegisterOutput(OutputNull, func(Config) (backend.OutputOpener, error) {
		return wavfile.Discard, nil
	})
}

// RegisterOutput makes an output selectable by name through Config.Output.
// The pulse, wavfile and null outputs are always available; the cgo
// backed ones register themselves when their package is imported:
//
//	import _ "github.com/ik5/audspace/outputs/oto"
func RegisterOutput(name string, f OutputFactory) {
	outputs.Store(strings.ToLower(name), f)
}

// OutputOpener returns the opener for the output named by cfg.Output.
func OutputOpener(cfg Config) (backend.OutputOpener, error) {
	f, ok := outputs.Load(strings.ToLower(cfg.Output))
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOutput, cfg.Output)
	}

	return f(cfg)
}
