// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"

	"github.com/decred/slog"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are always collected; they are only exported when a Registerer
// was given through WithMetrics.
type metrics struct {
	voicesInUse     *prometheus.GaugeVec
	playsDropped    *prometheus.CounterVec
	compressionGain prometheus.Gauge
	loadedSounds    prometheus.Gauge
	streamPasses    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, log slog.Logger) *metrics {
	return &metrics{
		voicesInUse: register(reg, log, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "audspace_voices_in_use",
			Help: "Voices bound to a channel, per pool",
		}, []string{"pool"})),
		playsDropped: register(reg, log, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audspace_plays_dropped_total",
			Help: "Play requests dropped because no voice was free",
		}, []string{"pool"})),
		compressionGain: register(reg, log, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audspace_compression_gain",
			Help: "Current dynamic range compression gain",
		})),
		loadedSounds: register(reg, log, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audspace_loaded_sounds",
			Help: "Sounds currently loaded",
		})),
		streamPasses: register(reg, log, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audspace_stream_passes_total",
			Help: "Passes made by the streaming goroutine",
		})),
	}
}

// register adds c to reg. An engine reopened on the same registry takes
// over the collector the previous one registered. Any other registration
// failure leaves c collected but unexported.
func register[C prometheus.Collector](reg prometheus.Registerer, log slog.Logger, c C) C {
	if reg == nil {
		return c
	}

	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	log.Warnf("Metrics not exported: %v", err)

	return c
}
